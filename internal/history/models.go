package history

import "time"

// Status is the lifecycle state of a recorded job.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	// StatusReview marks failures an operator must fix (configuration,
	// corrupt or stale ledger) before a retry can succeed.
	StatusReview   Status = "review"
	StatusCanceled Status = "canceled"
)

// IsTerminal reports whether the status ends a job.
func (s Status) IsTerminal() bool {
	return s != StatusRunning && s != ""
}

// Job is one recorded transcription run.
type Job struct {
	ID           int64
	RunID        string
	Source       string
	Output       string
	Ledger       string
	Engine       string
	ChunkSeconds int
	ChunkCount   int
	Processed    int
	Skipped      int
	Captions     int
	TotalSeconds float64
	Status       Status
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Elapsed returns the wall time of a finished job, or zero while running.
func (j Job) Elapsed() time.Duration {
	if j.FinishedAt.IsZero() || j.StartedAt.IsZero() {
		return 0
	}
	return j.FinishedAt.Sub(j.StartedAt)
}

// Outcome carries the fields written when a job finishes.
type Outcome struct {
	Status       Status
	ChunkCount   int
	Processed    int
	Skipped      int
	Captions     int
	TotalSeconds float64
	Err          error
}
