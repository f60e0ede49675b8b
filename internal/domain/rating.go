package domain

import (
	"strings"
	"time"
)

// RatingScore is the ordinal outcome of a satisfaction survey
type RatingScore string

const (
	RatingScoreGood      RatingScore = "good"
	RatingScoreBad       RatingScore = "bad"
	RatingScoreOffered   RatingScore = "offered"
	RatingScoreUnoffered RatingScore = "unoffered"
	RatingScoreReceived  RatingScore = "received"
)

// SatisfactionRating correlates one survey answer to one ticket
type SatisfactionRating struct {
	ExternalID int64       `json:"external_id"`
	TicketID   int64       `json:"ticket_id"`
	AssigneeID *int64      `json:"assignee_id,omitempty"`
	Score      RatingScore `json:"score"`
	Comment    string      `json:"comment,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

// IsResponse reports whether the customer actually answered the survey
func (r *SatisfactionRating) IsResponse() bool {
	return r.Score == RatingScoreGood || r.Score == RatingScoreBad
}

// AssignedTo reports whether the rating belongs to the given agent
func (r *SatisfactionRating) AssignedTo(agentExternalID int64) bool {
	return r.AssigneeID != nil && *r.AssigneeID == agentExternalID
}

// ParseRatingScore normalizes helpdesk score spellings such as
// "good_with_comment" onto the known scores.
func ParseRatingScore(raw string) RatingScore {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.HasPrefix(s, "good"):
		return RatingScoreGood
	case strings.HasPrefix(s, "bad"):
		return RatingScoreBad
	case s == string(RatingScoreOffered):
		return RatingScoreOffered
	case s == string(RatingScoreReceived):
		return RatingScoreReceived
	}
	return RatingScoreUnoffered
}
