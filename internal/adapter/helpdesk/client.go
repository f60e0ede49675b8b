package helpdesk

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fixora/agentpulse/internal/domain"
	"github.com/fixora/agentpulse/internal/logger"
)

const (
	defaultTimeout     = 10 * time.Second
	defaultMaxPages    = 50
	defaultConcurrency = 4
	maxErrorBodyBytes  = 1024
)

// Config holds the helpdesk connection settings
type Config struct {
	BaseURL        string
	Email          string
	APIToken       string
	Timeout        time.Duration
	MaxPages       int
	MaxConcurrency int
}

// Client reads agents, tickets and satisfaction ratings from a Zendesk-style API
type Client struct {
	baseURL        string
	authHeader     string
	maxPages       int
	maxConcurrency int
	httpClient     *http.Client
	logger         logger.Logger
}

// NewClient creates a new helpdesk client
func NewClient(config Config, log logger.Logger) *Client {
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}
	if config.MaxPages <= 0 {
		config.MaxPages = defaultMaxPages
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = defaultConcurrency
	}

	credentials := config.Email + "/token:" + config.APIToken

	return &Client{
		baseURL:        strings.TrimRight(config.BaseURL, "/"),
		authHeader:     "Basic " + base64.StdEncoding.EncodeToString([]byte(credentials)),
		maxPages:       config.MaxPages,
		maxConcurrency: config.MaxConcurrency,
		httpClient:     &http.Client{Timeout: config.Timeout},
		logger:         log,
	}
}

// FetchAgents loads every target agent concurrently. Agents that fail to
// load are logged and omitted; the result keeps the order of externalIDs.
func (c *Client) FetchAgents(ctx context.Context, externalIDs []int64) ([]*domain.Agent, error) {
	results := make([]*domain.Agent, len(externalIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxConcurrency)

	for i, id := range externalIDs {
		g.Go(func() error {
			agent, err := c.fetchAgent(gctx, id)
			if err != nil {
				c.logger.Warn(ctx, "Skipping agent that failed to load", map[string]interface{}{
					"agent_id": id,
					"error":    err.Error(),
				})
				return nil
			}
			results[i] = agent
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("failed to fetch agents: %w", err)
	}

	agents := make([]*domain.Agent, 0, len(results))
	for _, agent := range results {
		if agent != nil {
			agents = append(agents, agent)
		}
	}
	return agents, nil
}

func (c *Client) fetchAgent(ctx context.Context, id int64) (*domain.Agent, error) {
	var response struct {
		User userPayload `json:"user"`
	}

	endpoint := fmt.Sprintf("%s/api/v2/users/%d.json", c.baseURL, id)
	if err := c.getJSON(ctx, endpoint, &response); err != nil {
		return nil, err
	}

	agent := response.User.toDomain()
	if err := agent.Validate(); err != nil {
		return nil, fmt.Errorf("user %d: %w", id, err)
	}
	return agent, nil
}

// FetchTickets pages through the incremental cursor feed. With a window,
// tickets updated outside it are dropped since the feed filters on update
// time only from the start. A ticket returned more than once is kept once,
// as its most recently updated copy.
func (c *Client) FetchTickets(ctx context.Context, window *domain.Window) ([]*domain.Ticket, error) {
	query := url.Values{}
	query.Set("start_time", "0")
	if window != nil {
		query.Set("start_time", strconv.FormatInt(window.Start.Unix(), 10))
		query.Set("end_time", strconv.FormatInt(window.End.Unix(), 10))
	}
	next := c.baseURL + "/api/v2/incremental/tickets/cursor.json?" + query.Encode()

	var tickets []*domain.Ticket
	// the feed repeats a ticket that changes while it is being paged
	seen := make(map[int64]int)
	pages := 0
	for next != "" {
		if pages >= c.maxPages {
			c.logger.Warn(ctx, "Ticket feed page ceiling reached", map[string]interface{}{
				"max_pages": c.maxPages,
				"tickets":   len(tickets),
			})
			break
		}

		var page struct {
			Tickets     []ticketPayload `json:"tickets"`
			AfterURL    string          `json:"after_url"`
			EndOfStream bool            `json:"end_of_stream"`
		}
		if err := c.getJSON(ctx, next, &page); err != nil {
			return nil, fmt.Errorf("failed to fetch tickets page %d: %w", pages+1, err)
		}
		pages++

		for _, raw := range page.Tickets {
			ticket, ok := raw.toDomain()
			if !ok {
				c.logger.Debug(ctx, "Skipping ticket with unknown status", map[string]interface{}{
					"ticket_id": raw.ID,
					"status":    raw.Status,
				})
				continue
			}
			if window != nil && !window.Contains(ticket.UpdatedAt) {
				continue
			}
			if i, dup := seen[ticket.ExternalID]; dup {
				if !ticket.UpdatedAt.Before(tickets[i].UpdatedAt) {
					tickets[i] = ticket
				}
				continue
			}
			seen[ticket.ExternalID] = len(tickets)
			tickets = append(tickets, ticket)
		}

		if page.EndOfStream {
			break
		}
		next = page.AfterURL
	}

	c.logger.Debug(ctx, "Fetched tickets", map[string]interface{}{
		"pages":   pages,
		"tickets": len(tickets),
	})
	return tickets, nil
}

// FetchSatisfactionRatings pages through survey results via next_page links
func (c *Client) FetchSatisfactionRatings(ctx context.Context, window *domain.Window) ([]*domain.SatisfactionRating, error) {
	next := c.baseURL + "/api/v2/satisfaction_ratings.json"
	if window != nil {
		query := url.Values{}
		query.Set("start_time", strconv.FormatInt(window.Start.Unix(), 10))
		query.Set("end_time", strconv.FormatInt(window.End.Unix(), 10))
		next += "?" + query.Encode()
	}

	var ratings []*domain.SatisfactionRating
	pages := 0
	for next != "" {
		if pages >= c.maxPages {
			c.logger.Warn(ctx, "Satisfaction rating page ceiling reached", map[string]interface{}{
				"max_pages": c.maxPages,
				"ratings":   len(ratings),
			})
			break
		}

		var page struct {
			SatisfactionRatings []ratingPayload `json:"satisfaction_ratings"`
			NextPage            *string         `json:"next_page"`
		}
		if err := c.getJSON(ctx, next, &page); err != nil {
			return nil, fmt.Errorf("failed to fetch satisfaction ratings page %d: %w", pages+1, err)
		}
		pages++

		for _, raw := range page.SatisfactionRatings {
			ratings = append(ratings, raw.toDomain())
		}

		next = ""
		if page.NextPage != nil {
			next = *page.NextPage
		}
	}

	return ratings, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call helpdesk API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return &APIError{
			StatusCode: resp.StatusCode,
			Endpoint:   stripQuery(endpoint),
			Body:       strings.TrimSpace(string(body)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func stripQuery(endpoint string) string {
	if i := strings.IndexByte(endpoint, '?'); i >= 0 {
		return endpoint[:i]
	}
	return endpoint
}
