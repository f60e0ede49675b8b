package ports

import (
	"context"

	"github.com/fixora/agentpulse/internal/domain"
)

// HelpdeskSource is the read-only view of the remote ticketing API
type HelpdeskSource interface {
	// FetchAgents fetches each target agent individually. Agents that fail
	// to load are omitted rather than failing the whole call.
	FetchAgents(ctx context.Context, externalIDs []int64) ([]*domain.Agent, error)

	// FetchTickets pages through the ticket feed, optionally bounded by window
	FetchTickets(ctx context.Context, window *domain.Window) ([]*domain.Ticket, error)

	// FetchSatisfactionRatings pages through survey results, optionally bounded by window
	FetchSatisfactionRatings(ctx context.Context, window *domain.Window) ([]*domain.SatisfactionRating, error)
}
