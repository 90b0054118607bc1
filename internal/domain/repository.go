package domain

import (
	"context"
	"time"
)

// JobRepository persists job rows. Updates against a terminal row must
// return ErrJobFinished and leave the row untouched.
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	UpdateProgress(ctx context.Context, jobID string, status JobStatus, progress int, message string) error
	MarkFailed(ctx context.Context, jobID string, errMsg string) error
	GetByID(ctx context.Context, jobID string) (*Job, error)
}

// CreditRepository persists balances and the transaction log.
type CreditRepository interface {
	Balance(ctx context.Context, ownerID string) (int64, error)
	// Deduct subtracts amount only when the balance covers it, as a single
	// conditional write. ok is false when the balance was insufficient.
	Deduct(ctx context.Context, ownerID string, amount int64) (balance int64, ok bool, err error)
	Add(ctx context.Context, ownerID string, amount int64) (int64, error)
	AppendTransaction(ctx context.Context, tx *CreditTransaction) error
	ListTransactions(ctx context.Context, ownerID string, limit int) ([]CreditTransaction, error)
}

// CacheRepository persists fingerprint to artifact mappings.
type CacheRepository interface {
	Lookup(ctx context.Context, fingerprint string) (*CacheEntry, error)
	Upsert(ctx context.Context, entry *CacheEntry) error
	Touch(ctx context.Context, fingerprint string, at time.Time) error
}

// UsageRepository persists usage records and the per-owner spend counter.
type UsageRepository interface {
	Append(ctx context.Context, record *UsageRecord) error
	AddSpend(ctx context.Context, ownerID string, micros int64) error
	TotalSpend(ctx context.Context, ownerID string) (int64, error)
	ListRecent(ctx context.Context, ownerID string, limit int) ([]UsageRecord, error)
}

// SceneRepository persists the scenes that receive generated artifacts.
type SceneRepository interface {
	ListByProject(ctx context.Context, projectID, ownerID string) ([]Scene, error)
	ReplaceForProject(ctx context.Context, projectID, ownerID string, scenes []Scene) error
	SetArtifact(ctx context.Context, sceneID string, kind GenerationKind, url string) error
}
