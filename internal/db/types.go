package db

import (
	"time"

	"github.com/google/uuid"
)

// Run statuses
const (
	RunStatusRunning   = "running"
	RunStatusApproved  = "approved"
	RunStatusExhausted = "exhausted"
	RunStatusFailed    = "failed"
)

// Run represents a pipeline run record
type Run struct {
	ID          uuid.UUID  `json:"id"`
	Company     string     `json:"company"`
	RoleTitle   string     `json:"role_title"`
	Source      string     `json:"source"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// StepStatus constants
const (
	StepStatusPending    = "pending"
	StepStatusInProgress = "in_progress"
	StepStatusCompleted  = "completed"
	StepStatusFailed     = "failed"
	StepStatusSkipped    = "skipped"
)

// RunStep represents a single stage execution for a pipeline run
type RunStep struct {
	ID           uuid.UUID  `json:"id"`
	RunID        uuid.UUID  `json:"run_id"`
	Step         string     `json:"step"`
	Category     string     `json:"category,omitempty"`
	Status       string     `json:"status"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	DurationMs   *int       `json:"duration_ms,omitempty"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// RunStepInput represents a stage status change
type RunStepInput struct {
	Step     string
	Category string
	Status   string
	Duration time.Duration
	Error    string
}

// finished reports whether the status closes the step.
func (in *RunStepInput) finished() bool {
	return in.Status == StepStatusCompleted || in.Status == StepStatusFailed || in.Status == StepStatusSkipped
}

// Artifact is one session value stored for a run
type Artifact struct {
	RunID     uuid.UUID `json:"run_id"`
	Key       string    `json:"key"`
	Category  string    `json:"category"`
	Content   []byte    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Artifact categories
const (
	CategoryRecord    = "record"
	CategoryMatches   = "matches"
	CategoryCandidate = "candidate"
	CategoryIssues    = "issues"
	CategoryFinal     = "final"
	CategoryRaw       = "raw"
)

// DefaultPageCacheTTL is the default time-to-live for cached pages (7 days)
const DefaultPageCacheTTL = 7 * 24 * time.Hour

// Page is a fetched document kept in the page cache
type Page struct {
	URL        string    `json:"url"`
	HTML       string    `json:"html"`
	Text       string    `json:"text"`
	StatusCode int       `json:"status_code"`
	FetchedAt  time.Time `json:"fetched_at"`
}

func durationMs(d time.Duration) *int {
	if d <= 0 {
		return nil
	}
	ms := int(d / time.Millisecond)
	return &ms
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
