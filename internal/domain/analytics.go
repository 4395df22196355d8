package domain

import "time"

// UserQuery is one logged chat query, the raw material for pulse snapshots
type UserQuery struct {
	ID              string    `json:"id"`
	TechID          string    `json:"tech_id"`
	QueryText       string    `json:"query_text"`
	DetectedProcess string    `json:"detected_process"`
	UserSentiment   string    `json:"user_sentiment"`
	CreatedAt       time.Time `json:"created_at"`
}

// TrendingProcess is one aggregated business process in a pulse snapshot
type TrendingProcess struct {
	Name          string `json:"name"`
	FrictionLevel string `json:"friction_level"`
	Volume        int    `json:"volume"`
}

// PulseSnapshot is an aggregated analytics view over recent user queries
type PulseSnapshot struct {
	ID                string            `json:"id,omitempty"`
	TechID            string            `json:"tech_id"`
	SummaryText       string            `json:"summary_text"`
	KeyTakeaways      []string          `json:"key_takeaways"`
	TrendingProcesses []TrendingProcess `json:"trending_processes"`
	CreatedAt         time.Time         `json:"created_at"`
}
