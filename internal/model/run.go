package model

import "time"

// RunSummary describes one bounded reconciliation pass. It is never persisted.
type RunSummary struct {
	RunID       string
	StartedAt   time.Time
	StaleCutoff time.Time

	// Candidates is the number of stale entries selected for this run
	Candidates int
	// Processed counts candidates whose full branch completed (including per-item failures)
	Processed int
	// StillExists counts candidates re-stamped because the provider still knows them
	StillExists int
	// DeletedFound counts candidates the provider reported as gone
	DeletedFound int
	// Removed counts deletions whose cleanup succeeded and were unregistered
	Removed int
	// Failed counts provider or cleanup failures left for the next run
	Failed int
	// Truncated is true when the run stopped early because the time budget elapsed
	Truncated bool

	Duration time.Duration
}

// Remaining returns how many selected candidates were left for the next run
func (s *RunSummary) Remaining() int {
	return s.Candidates - s.Processed
}
