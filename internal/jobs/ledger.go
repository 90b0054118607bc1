// Package jobs tracks background work so clients can poll its progress.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"studio/internal/domain"
)

// Ledger creates jobs and records their transitions.
type Ledger struct {
	repo   domain.JobRepository
	logger zerolog.Logger
	now    func() time.Time
}

func NewLedger(repo domain.JobRepository, logger zerolog.Logger) *Ledger {
	return &Ledger{repo: repo, logger: logger, now: time.Now}
}

// Create inserts a pending job at 0% and returns its id.
func (l *Ledger) Create(ctx context.Context, ownerID string, kind domain.JobKind) (string, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return "", domain.ErrUnauthorized
	}
	now := l.now().UTC()
	job := &domain.Job{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Kind:      kind,
		Status:    domain.JobStatusPending,
		Progress:  0,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := l.repo.Create(ctx, job); err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}
	l.logger.Debug().Str("job_id", job.ID).Str("owner_id", ownerID).Str("kind", string(kind)).Msg("jobs: created")
	return job.ID, nil
}

// UpdateProgress clamps percent to 0..100 and moves the job to running, or to
// completed at 100. Writes against a finished job return
// domain.ErrJobFinished.
func (l *Ledger) UpdateProgress(ctx context.Context, jobID string, percent int, message string) error {
	percent = clamp(percent)
	status := domain.JobStatusRunning
	if percent == 100 {
		status = domain.JobStatusCompleted
	}
	if err := l.repo.UpdateProgress(ctx, jobID, status, percent, message); err != nil {
		if errors.Is(err, domain.ErrJobFinished) {
			l.logger.Warn().Str("job_id", jobID).Int("progress", percent).Msg("jobs: update ignored for finished job")
		}
		return fmt.Errorf("update job %s: %w", jobID, err)
	}
	return nil
}

// Fail marks the job failed with message as its error.
func (l *Ledger) Fail(ctx context.Context, jobID string, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		message = "job failed"
	}
	if err := l.repo.MarkFailed(ctx, jobID, message); err != nil {
		if errors.Is(err, domain.ErrJobFinished) {
			l.logger.Warn().Str("job_id", jobID).Msg("jobs: fail ignored for finished job")
		}
		return fmt.Errorf("fail job %s: %w", jobID, err)
	}
	l.logger.Info().Str("job_id", jobID).Str("error", message).Msg("jobs: failed")
	return nil
}

// Get returns the job regardless of owner.
func (l *Ledger) Get(ctx context.Context, jobID string) (*domain.Job, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return nil, domain.ErrNotFound
	}
	return l.repo.GetByID(ctx, jobID)
}

// GetForOwner returns the job only when it belongs to ownerID; foreign jobs
// read as not found.
func (l *Ledger) GetForOwner(ctx context.Context, jobID, ownerID string) (*domain.Job, error) {
	job, err := l.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	return job, nil
}

func clamp(percent int) int {
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}
