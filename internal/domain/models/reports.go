package models

import "time"

// RefreshReport summarizes one batch-driver run.
type RefreshReport struct {
	Total         int       `json:"total"`
	Batches       int       `json:"batches"`
	Updated       []string  `json:"updated"`
	NotFound      []string  `json:"not_found"`
	Failed        []string  `json:"failed"`
	Pending       []string  `json:"pending"`
	RateLimitHits int       `json:"rate_limit_hits"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
}

// Complete is true when no symbol was left unprocessed.
func (r *RefreshReport) Complete() bool { return len(r.Pending) == 0 }

// EvaluationReport summarizes one alert-evaluation pass.
type EvaluationReport struct {
	Alerts      int       `json:"alerts"`
	Symbols     int       `json:"symbols"`
	Fetched     int       `json:"fetched"`
	FetchFailed []string  `json:"fetch_failed"`
	Triggered   []int64   `json:"triggered"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

// SchedulerStatus is a point-in-time view of the refresh scheduler.
type SchedulerStatus struct {
	Refreshing     bool              `json:"refreshing"`
	Cycles         int64             `json:"cycles"`
	Dropped        int64             `json:"dropped"`
	LastRefresh    *RefreshReport    `json:"last_refresh,omitempty"`
	LastEvaluation *EvaluationReport `json:"last_evaluation,omitempty"`
}
