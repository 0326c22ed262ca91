package response

import (
	"encoding/json"
	"time"

	"github.com/mcoot/levelgrid/internal/model"
)

// Registration represents a monitored identifier in API responses
type Registration struct {
	Key             string    `json:"key"`
	Space           string    `json:"space"`
	LastCheckedAt   time.Time `json:"last_checked_at"`
	LastCheckedAtMs int64     `json:"last_checked_at_ms"`
}

// RegistrationFromModel converts a model.RegisteredIdentifier
func RegistrationFromModel(r model.RegisteredIdentifier) Registration {
	return Registration{
		Key:             r.Key,
		Space:           r.Space().String(),
		LastCheckedAt:   r.LastCheckedAt,
		LastCheckedAtMs: model.ScoreFromTime(r.LastCheckedAt),
	}
}

// RegistrationList is the response for listing registrations
type RegistrationList struct {
	StaleBefore   time.Time      `json:"stale_before"`
	Registrations []Registration `json:"registrations"`
}

// RegistrationListFromModel converts a slice of registrations
func RegistrationListFromModel(staleBefore time.Time, entries []model.RegisteredIdentifier) RegistrationList {
	list := RegistrationList{
		StaleBefore:   staleBefore,
		Registrations: make([]Registration, len(entries)),
	}
	for i, e := range entries {
		list.Registrations[i] = RegistrationFromModel(e)
	}
	return list
}

// Level represents a stored level
type Level struct {
	Name      string          `json:"name"`
	Owner     string          `json:"owner,omitempty"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// LevelFromModel converts a model.Level
func LevelFromModel(l *model.Level) Level {
	return Level{
		Name:      l.Name,
		Owner:     l.Owner,
		Data:      l.Data,
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
}

// LevelList is the response for listing levels by owner
type LevelList struct {
	Owner  string   `json:"owner"`
	Levels []string `json:"levels"`
}

// RunSummary reports the outcome of a deletion check run
type RunSummary struct {
	RunID        string    `json:"run_id"`
	StartedAt    time.Time `json:"started_at"`
	StaleCutoff  time.Time `json:"stale_cutoff"`
	Candidates   int       `json:"candidates"`
	Processed    int       `json:"processed"`
	StillExists  int       `json:"still_exists"`
	DeletedFound int       `json:"deleted_found"`
	Removed      int       `json:"removed"`
	Failed       int       `json:"failed"`
	Remaining    int       `json:"remaining"`
	Truncated    bool      `json:"truncated"`
	DurationMs   int64     `json:"duration_ms"`
}

// RunSummaryFromModel converts a model.RunSummary
func RunSummaryFromModel(s *model.RunSummary) *RunSummary {
	return &RunSummary{
		RunID:        s.RunID,
		StartedAt:    s.StartedAt,
		StaleCutoff:  s.StaleCutoff,
		Candidates:   s.Candidates,
		Processed:    s.Processed,
		StillExists:  s.StillExists,
		DeletedFound: s.DeletedFound,
		Removed:      s.Removed,
		Failed:       s.Failed,
		Remaining:    s.Remaining(),
		Truncated:    s.Truncated,
		DurationMs:   s.Duration.Milliseconds(),
	}
}

// Trigger statuses
const (
	TriggerStatusComplete = "complete"
	TriggerStatusSkipped  = "skipped"
	TriggerStatusError    = "error"
)

// TriggerResponse is the body returned to the external scheduler
type TriggerResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Summary *RunSummary `json:"summary,omitempty"`
}
