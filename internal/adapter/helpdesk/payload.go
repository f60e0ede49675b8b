package helpdesk

import (
	"strconv"
	"time"

	"github.com/fixora/agentpulse/internal/domain"
)

type userPayload struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u userPayload) toDomain() *domain.Agent {
	agent := domain.NewAgent(u.ID, u.Name, u.Email, u.Role, u.Active)
	agent.UpdatedAt = u.UpdatedAt
	return agent
}

type customFieldPayload struct {
	ID    int64       `json:"id"`
	Value interface{} `json:"value"`
}

type ticketPayload struct {
	ID           int64                `json:"id"`
	Subject      string               `json:"subject"`
	Status       string               `json:"status"`
	Priority     string               `json:"priority"`
	Type         string               `json:"type"`
	AssigneeID   *int64               `json:"assignee_id"`
	RequesterID  *int64               `json:"requester_id"`
	SubmitterID  *int64               `json:"submitter_id"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
	SolvedAt     *time.Time           `json:"solved_at"`
	Tags         []string             `json:"tags"`
	CustomFields []customFieldPayload `json:"custom_fields"`
}

// toDomain returns false for statuses the metrics cannot classify, such as deleted
func (t ticketPayload) toDomain() (*domain.Ticket, bool) {
	status, err := domain.ParseTicketStatus(t.Status)
	if err != nil {
		return nil, false
	}

	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}

	var fields map[string]interface{}
	for _, field := range t.CustomFields {
		if field.Value == nil {
			continue
		}
		if fields == nil {
			fields = make(map[string]interface{})
		}
		fields[strconv.FormatInt(field.ID, 10)] = field.Value
	}

	return &domain.Ticket{
		ExternalID:   t.ID,
		Subject:      t.Subject,
		Status:       status,
		Priority:     domain.ParseTicketPriority(t.Priority),
		Type:         domain.ParseTicketType(t.Type),
		AssigneeID:   t.AssigneeID,
		RequesterID:  t.RequesterID,
		SubmitterID:  t.SubmitterID,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
		SolvedAt:     t.SolvedAt,
		Tags:         tags,
		CustomFields: fields,
	}, true
}

type ratingPayload struct {
	ID         int64     `json:"id"`
	TicketID   int64     `json:"ticket_id"`
	AssigneeID *int64    `json:"assignee_id"`
	Score      string    `json:"score"`
	Comment    string    `json:"comment"`
	CreatedAt  time.Time `json:"created_at"`
}

func (r ratingPayload) toDomain() *domain.SatisfactionRating {
	return &domain.SatisfactionRating{
		ExternalID: r.ID,
		TicketID:   r.TicketID,
		AssigneeID: r.AssigneeID,
		Score:      domain.ParseRatingScore(r.Score),
		Comment:    r.Comment,
		CreatedAt:  r.CreatedAt,
	}
}
