package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to stdout
func NewOutput(format string) *Output {
	return &Output{format: format, w: os.Stdout}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == OutputJSON {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == OutputJSON {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.w, string(data))
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case HealthResult:
		fmt.Fprintf(o.w, "Status: %s\n", v.Status)
	case RegistrationList:
		o.printRegistrations(v)
	case Level:
		o.printLevel(v)
	case LevelList:
		o.printLevelList(v)
	case TriggerResult:
		o.printTriggerResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

// Registration response type (matches API)
type Registration struct {
	Key             string    `json:"key"`
	Space           string    `json:"space"`
	LastCheckedAt   time.Time `json:"last_checked_at"`
	LastCheckedAtMs int64     `json:"last_checked_at_ms"`
}

// RegistrationList response type
type RegistrationList struct {
	StaleBefore   time.Time      `json:"stale_before"`
	Registrations []Registration `json:"registrations"`
}

// Level response type
type Level struct {
	Name      string          `json:"name"`
	Owner     string          `json:"owner,omitempty"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// LevelList response type
type LevelList struct {
	Owner  string   `json:"owner"`
	Levels []string `json:"levels"`
}

// RunSummary response type
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

// TriggerResult is the scheduler trigger response
type TriggerResult struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Summary *RunSummary `json:"summary,omitempty"`
}

func (o *Output) printRegistrations(l RegistrationList) {
	fmt.Fprintf(o.w, "Registrations last checked at or before %s (%d):\n",
		l.StaleBefore.Format(time.RFC3339), len(l.Registrations))
	for _, r := range l.Registrations {
		fmt.Fprintf(o.w, "  - %s [%s] last checked %s\n", r.Key, r.Space, r.LastCheckedAt.Format(time.RFC3339))
	}
}

func (o *Output) printLevel(l Level) {
	fmt.Fprintf(o.w, "Level: %s\n", l.Name)
	if l.Owner != "" {
		fmt.Fprintf(o.w, "Owner: %s\n", l.Owner)
	}
	fmt.Fprintf(o.w, "Created: %s\n", l.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(o.w, "Updated: %s\n", l.UpdatedAt.Format(time.RFC3339))
	fmt.Fprintf(o.w, "Data: %s\n", string(l.Data))
}

func (o *Output) printLevelList(l LevelList) {
	fmt.Fprintf(o.w, "Levels owned by %s (%d):\n", l.Owner, len(l.Levels))
	for _, name := range l.Levels {
		fmt.Fprintf(o.w, "  - %s\n", name)
	}
}

func (o *Output) printTriggerResult(t TriggerResult) {
	fmt.Fprintf(o.w, "Status: %s\n", t.Status)
	if t.Message != "" {
		fmt.Fprintf(o.w, "Message: %s\n", t.Message)
	}
	s := t.Summary
	if s == nil {
		return
	}
	fmt.Fprintf(o.w, "Run: %s\n", s.RunID)
	fmt.Fprintf(o.w, "Stale cutoff: %s\n", s.StaleCutoff.Format(time.RFC3339))
	fmt.Fprintf(o.w, "Processed: %d of %d\n", s.Processed, s.Candidates)
	fmt.Fprintf(o.w, "Still exist: %d\n", s.StillExists)
	fmt.Fprintf(o.w, "Deleted: %d found, %d removed\n", s.DeletedFound, s.Removed)
	if s.Failed > 0 {
		fmt.Fprintf(o.w, "Failed (retried next run): %d\n", s.Failed)
	}
	if s.Truncated {
		fmt.Fprintf(o.w, "Truncated: %d left for the next run\n", s.Remaining)
	}
	fmt.Fprintf(o.w, "Duration: %dms\n", s.DurationMs)
}
