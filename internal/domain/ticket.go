package domain

import (
	"strings"
	"time"
)

// TicketStatus represents the status of a helpdesk ticket
type TicketStatus string

const (
	TicketStatusNew     TicketStatus = "new"
	TicketStatusOpen    TicketStatus = "open"
	TicketStatusPending TicketStatus = "pending"
	TicketStatusHold    TicketStatus = "hold"
	TicketStatusSolved  TicketStatus = "solved"
	TicketStatusClosed  TicketStatus = "closed"
)

// TicketPriority represents the priority of a ticket
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityNormal TicketPriority = "normal"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// TicketType represents the kind of request a ticket carries
type TicketType string

const (
	TicketTypeProblem  TicketType = "problem"
	TicketTypeIncident TicketType = "incident"
	TicketTypeQuestion TicketType = "question"
	TicketTypeTask     TicketType = "task"
)

// Ticket represents one support case as mirrored from the helpdesk
type Ticket struct {
	ExternalID   int64                  `json:"external_id"`
	Subject      string                 `json:"subject"`
	Status       TicketStatus           `json:"status"`
	Priority     TicketPriority         `json:"priority"`
	Type         *TicketType            `json:"type,omitempty"`
	AssigneeID   *int64                 `json:"assignee_id,omitempty"`
	RequesterID  *int64                 `json:"requester_id,omitempty"`
	SubmitterID  *int64                 `json:"submitter_id,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
	SolvedAt     *time.Time             `json:"solved_at,omitempty"`
	Tags         []string               `json:"tags"`
	CustomFields map[string]interface{} `json:"custom_fields,omitempty"`
}

// IsClosed reports whether the ticket counts as closed for metrics.
func (t *Ticket) IsClosed() bool {
	return t.Status == TicketStatusSolved || t.Status == TicketStatusClosed
}

// IsOpen reports whether the ticket counts as open for metrics.
// Tickets on hold are neither open nor closed.
func (t *Ticket) IsOpen() bool {
	switch t.Status {
	case TicketStatusNew, TicketStatusOpen, TicketStatusPending:
		return true
	}
	return false
}

// AssignedTo reports whether the ticket is assigned to the given agent
func (t *Ticket) AssignedTo(agentExternalID int64) bool {
	return t.AssigneeID != nil && *t.AssigneeID == agentExternalID
}

// ResolutionTime returns the time from creation to resolution. SolvedAt is
// preferred; UpdatedAt stands in when the helpdesk did not report one.
func (t *Ticket) ResolutionTime() time.Duration {
	end := t.UpdatedAt
	if t.SolvedAt != nil {
		end = *t.SolvedAt
	}
	return end.Sub(t.CreatedAt)
}

// HasTag reports whether the ticket carries the tag, ignoring case
func (t *Ticket) HasTag(tag string) bool {
	for _, existing := range t.Tags {
		if strings.EqualFold(existing, tag) {
			return true
		}
	}
	return false
}

// HasAnyTag reports whether the ticket carries at least one of the tags
func (t *Ticket) HasAnyTag(tags ...string) bool {
	for _, tag := range tags {
		if t.HasTag(tag) {
			return true
		}
	}
	return false
}

// ParseTicketStatus maps a raw status onto a known status
func ParseTicketStatus(raw string) (TicketStatus, error) {
	status := TicketStatus(strings.ToLower(strings.TrimSpace(raw)))
	switch status {
	case TicketStatusNew, TicketStatusOpen, TicketStatusPending,
		TicketStatusHold, TicketStatusSolved, TicketStatusClosed:
		return status, nil
	}
	return "", ErrInvalidStatus
}

// ParseTicketPriority maps a raw priority onto a known priority.
// Tickets without a priority are treated as normal.
func ParseTicketPriority(raw string) TicketPriority {
	switch p := TicketPriority(strings.ToLower(strings.TrimSpace(raw))); p {
	case TicketPriorityLow, TicketPriorityHigh, TicketPriorityUrgent:
		return p
	}
	return TicketPriorityNormal
}

// ParseTicketType maps a raw type; unknown or empty types yield nil
func ParseTicketType(raw string) *TicketType {
	switch tt := TicketType(strings.ToLower(strings.TrimSpace(raw))); tt {
	case TicketTypeProblem, TicketTypeIncident, TicketTypeQuestion, TicketTypeTask:
		return &tt
	}
	return nil
}

// FilterTicketsByAssignees keeps tickets assigned to one of the agents
func FilterTicketsByAssignees(tickets []*Ticket, agentExternalIDs map[int64]bool) []*Ticket {
	filtered := make([]*Ticket, 0, len(tickets))
	for _, ticket := range tickets {
		if ticket.AssigneeID != nil && agentExternalIDs[*ticket.AssigneeID] {
			filtered = append(filtered, ticket)
		}
	}
	return filtered
}

// Ticket errors
var (
	ErrTicketNotFound = NewDomainError("ticket not found")
	ErrInvalidStatus  = NewDomainError("invalid ticket status")
)
