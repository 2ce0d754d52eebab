package domain

import "time"

// RunStats holds statistics about a pipeline run.
type RunStats struct {
	RunID            string
	Scraped          int
	New              int
	SkippedDuplicate int
	Failed           int
	Published        int
	PublishErrors    int
	Indexed          int
	IndexErrors      int
	StartedAt        time.Time
	Duration         time.Duration
}

const (
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// RunRecord is one row of the run log.
type RunRecord struct {
	ID               int64     `db:"id"`
	RunID            string    `db:"run_id"`
	Status           string    `db:"status"`
	Error            *string   `db:"error"`
	Scraped          int       `db:"scraped"`
	New              int       `db:"new"`
	SkippedDuplicate int       `db:"skipped_duplicate"`
	Failed           int       `db:"failed"`
	StartedAt        time.Time `db:"started_at"`
	DurationMillis   int64     `db:"duration_ms"`
}
