package domain

import (
	"math"
	"time"
)

// PeriodMetric is one pre-computed statistics snapshot for one agent over one window
type PeriodMetric struct {
	ID              int64     `json:"id,omitempty"`
	AgentID         int64     `json:"agent_id"`
	AgentExternalID int64     `json:"agent_external_id"`
	AgentName       string    `json:"agent_name"`
	PeriodStart     time.Time `json:"period_start"`
	PeriodEnd       time.Time `json:"period_end"`
	CalculatedAt    time.Time `json:"calculated_at"`

	CESPercent               float64 `json:"ces_percent"`
	AverageResponseTimeHours float64 `json:"average_response_time_hours"`
	Closed                   int     `json:"closed"`
	Open                     int     `json:"open"`
	OpenGreaterThan14        int     `json:"open_greater_than_14"`
	ClosedLessThan7Percent   float64 `json:"closed_less_than_7_percent"`
	ClosedEqual1Percent      float64 `json:"closed_equal_1_percent"`
	ParticipationRate        float64 `json:"participation_rate"`
	CommunicationScore       float64 `json:"communication_score"`
	ResponseQuality          float64 `json:"response_quality"`
	TechnicalAccuracy        float64 `json:"technical_accuracy"`
	EnterprisePercent        float64 `json:"enterprise_percent"`
	TechnicalPercent         float64 `json:"technical_percent"`
	SurveyCount              int     `json:"survey_count"`
}

// Window returns the period the metric covers
func (m *PeriodMetric) Window() Window {
	return Window{Start: m.PeriodStart, End: m.PeriodEnd}
}

// TeamAverage is the per-field arithmetic mean over a set of agent snapshots.
// Counts are averaged too, so every field is fractional.
type TeamAverage struct {
	AgentCount int `json:"agent_count"`

	CESPercent               float64 `json:"ces_percent"`
	AverageResponseTimeHours float64 `json:"average_response_time_hours"`
	Closed                   float64 `json:"closed"`
	Open                     float64 `json:"open"`
	OpenGreaterThan14        float64 `json:"open_greater_than_14"`
	ClosedLessThan7Percent   float64 `json:"closed_less_than_7_percent"`
	ClosedEqual1Percent      float64 `json:"closed_equal_1_percent"`
	ParticipationRate        float64 `json:"participation_rate"`
	CommunicationScore       float64 `json:"communication_score"`
	ResponseQuality          float64 `json:"response_quality"`
	TechnicalAccuracy        float64 `json:"technical_accuracy"`
	EnterprisePercent        float64 `json:"enterprise_percent"`
	TechnicalPercent         float64 `json:"technical_percent"`
	SurveyCount              float64 `json:"survey_count"`
}

// CalculateTeamAverage averages every field across the metrics.
// It returns nil when there is nothing to average.
func CalculateTeamAverage(metrics []*PeriodMetric) *TeamAverage {
	if len(metrics) == 0 {
		return nil
	}

	avg := &TeamAverage{AgentCount: len(metrics)}
	for _, m := range metrics {
		avg.CESPercent += m.CESPercent
		avg.AverageResponseTimeHours += m.AverageResponseTimeHours
		avg.Closed += float64(m.Closed)
		avg.Open += float64(m.Open)
		avg.OpenGreaterThan14 += float64(m.OpenGreaterThan14)
		avg.ClosedLessThan7Percent += m.ClosedLessThan7Percent
		avg.ClosedEqual1Percent += m.ClosedEqual1Percent
		avg.ParticipationRate += m.ParticipationRate
		avg.CommunicationScore += m.CommunicationScore
		avg.ResponseQuality += m.ResponseQuality
		avg.TechnicalAccuracy += m.TechnicalAccuracy
		avg.EnterprisePercent += m.EnterprisePercent
		avg.TechnicalPercent += m.TechnicalPercent
		avg.SurveyCount += float64(m.SurveyCount)
	}

	n := float64(len(metrics))
	for _, field := range []*float64{
		&avg.CESPercent, &avg.AverageResponseTimeHours, &avg.Closed, &avg.Open,
		&avg.OpenGreaterThan14, &avg.ClosedLessThan7Percent, &avg.ClosedEqual1Percent,
		&avg.ParticipationRate, &avg.CommunicationScore, &avg.ResponseQuality,
		&avg.TechnicalAccuracy, &avg.EnterprisePercent, &avg.TechnicalPercent, &avg.SurveyCount,
	} {
		*field = round2(*field / n)
	}
	return avg
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(part) / float64(total) * 100)
}

// Metric errors
var (
	ErrInvalidDateRange = NewDomainError("invalid date range")
)
