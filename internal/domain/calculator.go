package domain

import "time"

const (
	// OpenAgingThreshold is the age past which an open ticket counts as stale
	OpenAgingThreshold = 14 * 24 * time.Hour
	// FastClosureThreshold and VeryFastClosureThreshold bound the closure-speed buckets
	FastClosureThreshold     = 7 * 24 * time.Hour
	VeryFastClosureThreshold = 24 * time.Hour

	// NeutralScore is reported for a heuristic 1-5 score without input
	NeutralScore = 3.0

	TagEnterprise = "enterprise"
	TagReopened   = "reopened"
)

// TechnicalTags marks a ticket as technical when any of them is present
var TechnicalTags = []string{"technical", "api", "integration", "development", "bug"}

// CalculatePeriodMetric derives the snapshot for one agent over one window.
// Tickets and ratings may contain other agents' records; they are filtered
// by assignee. now drives the open-aging bucket only.
//
// The 1-5 sub-scores are best-effort heuristics built from proxies:
//   - participation:      share of tickets updated inside the window
//   - communication:      good share among answered surveys
//   - response quality:   share of closed tickets resolved within 7 days
//   - technical accuracy: penalized by the share of closed tickets tagged "reopened"
func CalculatePeriodMetric(agent *Agent, tickets []*Ticket, ratings []*SatisfactionRating, window Window, now time.Time) *PeriodMetric {
	metric := &PeriodMetric{
		AgentID:         agent.ID,
		AgentExternalID: agent.ExternalID,
		AgentName:       agent.Name,
		PeriodStart:     window.Start,
		PeriodEnd:       window.End,
		CalculatedAt:    now,
	}

	var (
		total          int
		closedFast     int
		closedVeryFast int
		reopened       int
		updatedInside  int
		enterprise     int
		technical      int
		hoursSum       float64
	)

	for _, ticket := range tickets {
		if !ticket.AssignedTo(agent.ExternalID) {
			continue
		}
		total++
		hoursSum += ticket.UpdatedAt.Sub(ticket.CreatedAt).Hours()

		if window.Contains(ticket.UpdatedAt) {
			updatedInside++
		}
		if ticket.HasTag(TagEnterprise) {
			enterprise++
		}
		if ticket.HasAnyTag(TechnicalTags...) {
			technical++
		}

		switch {
		case ticket.IsClosed():
			metric.Closed++
			resolution := ticket.ResolutionTime()
			if resolution <= FastClosureThreshold {
				closedFast++
			}
			if resolution <= VeryFastClosureThreshold {
				closedVeryFast++
			}
			if ticket.HasTag(TagReopened) {
				reopened++
			}
		case ticket.IsOpen():
			metric.Open++
			if now.Sub(ticket.CreatedAt) > OpenAgingThreshold {
				metric.OpenGreaterThan14++
			}
		}
	}

	var ratingTotal, good, bad int
	for _, rating := range ratings {
		if !rating.AssignedTo(agent.ExternalID) {
			continue
		}
		ratingTotal++
		switch rating.Score {
		case RatingScoreGood:
			good++
		case RatingScoreBad:
			bad++
		}
	}

	metric.CESPercent = percent(good, ratingTotal)
	metric.SurveyCount = good + bad
	metric.ClosedLessThan7Percent = percent(closedFast, metric.Closed)
	metric.ClosedEqual1Percent = percent(closedVeryFast, metric.Closed)
	metric.EnterprisePercent = percent(enterprise, total)
	metric.TechnicalPercent = percent(technical, total)
	if total > 0 {
		metric.AverageResponseTimeHours = round2(hoursSum / float64(total))
	}

	metric.ParticipationRate = scaleScore(updatedInside, total, false)
	metric.CommunicationScore = scaleScore(good, good+bad, false)
	metric.ResponseQuality = scaleScore(closedFast, metric.Closed, false)
	metric.TechnicalAccuracy = scaleScore(reopened, metric.Closed, true)

	return metric
}

// scaleScore maps part/total onto 1..5, or 5..1 when inverted.
// An empty population yields NeutralScore.
func scaleScore(part, total int, inverted bool) float64 {
	if total == 0 {
		return NeutralScore
	}
	share := float64(part) / float64(total)
	if inverted {
		return round2(5 - 4*share)
	}
	return round2(1 + 4*share)
}
