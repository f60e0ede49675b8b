package domain

import (
	"strings"
	"time"
)

// Agent represents a tracked support engineer
type Agent struct {
	ID         int64     `json:"id"`
	ExternalID int64     `json:"external_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	Active     bool      `json:"active"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewAgent creates an agent as reported by the helpdesk
func NewAgent(externalID int64, name, email, role string, active bool) *Agent {
	return &Agent{
		ExternalID: externalID,
		Name:       strings.TrimSpace(name),
		Email:      strings.ToLower(strings.TrimSpace(email)),
		Role:       role,
		Active:     active,
	}
}

// Validate checks the fields the store relies on
func (a *Agent) Validate() error {
	if a.ExternalID <= 0 {
		return ErrInvalidAgent
	}
	if a.Name == "" {
		return ErrInvalidAgent
	}
	return nil
}

// AgentExternalIDs returns the set of external IDs of the agents
func AgentExternalIDs(agents []*Agent) map[int64]bool {
	ids := make(map[int64]bool, len(agents))
	for _, agent := range agents {
		ids[agent.ExternalID] = true
	}
	return ids
}

// Agent errors
var (
	ErrAgentNotFound = NewDomainError("agent not found")
	ErrInvalidAgent  = NewDomainError("agent requires an external id and a name")
)
