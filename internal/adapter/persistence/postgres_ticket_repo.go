package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/fixora/agentpulse/internal/domain"
	"github.com/fixora/agentpulse/internal/ports"
)

// DefaultTicketBatchSize is the number of tickets written per statement
const DefaultTicketBatchSize = 100

var ticketColumns = []string{
	"external_id", "subject", "status", "priority", "type",
	"assignee_external_id", "requester_id", "submitter_id",
	"tags", "custom_fields", "created_at", "updated_at", "solved_at",
}

// PostgresTicketRepository implements TicketRepository using PostgreSQL
type PostgresTicketRepository struct {
	db        *sql.DB
	batchSize int
}

// NewPostgresTicketRepository creates a new PostgreSQL ticket repository
func NewPostgresTicketRepository(db *sql.DB, batchSize int) ports.TicketRepository {
	if batchSize <= 0 {
		batchSize = DefaultTicketBatchSize
	}
	return &PostgresTicketRepository{db: db, batchSize: batchSize}
}

// UpsertTickets writes tickets one batch per statement. Earlier batches stay
// committed when a later one fails; the returned count covers them only.
func (r *PostgresTicketRepository) UpsertTickets(ctx context.Context, tickets []*domain.Ticket) (int, error) {
	written := 0
	for start := 0; start < len(tickets); start += r.batchSize {
		end := min(start+r.batchSize, len(tickets))
		batch := tickets[start:end]

		query, args, err := buildTicketUpsert(batch)
		if err != nil {
			return written, newWriteError("tickets", err)
		}

		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return written, newWriteError("tickets", fmt.Errorf("batch %d-%d: %w", start, end-1, err))
		}
		written += len(batch)
	}
	return written, nil
}

func buildTicketUpsert(batch []*domain.Ticket) (string, []interface{}, error) {
	var b strings.Builder
	b.WriteString("INSERT INTO tickets (")
	b.WriteString(strings.Join(ticketColumns, ", "))
	b.WriteString(") VALUES ")

	args := make([]interface{}, 0, len(batch)*len(ticketColumns))
	for i, ticket := range batch {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for c := range ticketColumns {
			if c > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", i*len(ticketColumns)+c+1)
		}
		b.WriteString(")")

		var customFields []byte
		if len(ticket.CustomFields) > 0 {
			var err error
			customFields, err = json.Marshal(ticket.CustomFields)
			if err != nil {
				return "", nil, fmt.Errorf("failed to marshal custom fields of ticket %d: %w", ticket.ExternalID, err)
			}
		}

		var ticketType *string
		if ticket.Type != nil {
			t := string(*ticket.Type)
			ticketType = &t
		}

		tags := ticket.Tags
		if tags == nil {
			tags = []string{}
		}

		args = append(args,
			ticket.ExternalID,
			ticket.Subject,
			string(ticket.Status),
			string(ticket.Priority),
			ticketType,
			ticket.AssigneeID,
			ticket.RequesterID,
			ticket.SubmitterID,
			pq.Array(tags),
			customFields,
			ticket.CreatedAt,
			ticket.UpdatedAt,
			ticket.SolvedAt,
		)
	}

	b.WriteString(" ON CONFLICT (external_id) DO UPDATE SET ")
	for i, column := range ticketColumns[1:] {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s = EXCLUDED.%s", column, column)
	}
	b.WriteString(", synced_at = NOW()")

	return b.String(), args, nil
}
