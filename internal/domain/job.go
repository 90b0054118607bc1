package domain

import "time"

// JobKind enumerates the batch operations tracked by the job ledger.
type JobKind string

const (
	JobKindScript     JobKind = "script_generation"
	JobKindAssetBatch JobKind = "asset_batch"
	JobKindAudioBatch JobKind = "audio_batch"
)

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether no further transitions are defined for the status.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job is a tracked unit of background work. The background task that owns
// the job is its only writer; pollers only read.
type Job struct {
	ID        string
	OwnerID   string
	Kind      JobKind
	Status    JobStatus
	Progress  int
	Message   string
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
