package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/sqlinline"
)

// JobRepositoryPG implements domain.JobRepository.
type JobRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(sql infra.SQLExecutor) *JobRepositoryPG {
	return &JobRepositoryPG{sql: sql}
}

// Create inserts a new job record and fills in the database timestamps.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.Job) error {
	row := r.sql.QueryRow(ctx, sqlinline.QInsertJob, job.ID, job.OwnerID, string(job.Kind), string(job.Status), job.Message)
	if err := row.Scan(&job.CreatedAt, &job.UpdatedAt); err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// UpdateProgress writes status, progress and message on a non-terminal job.
func (r *JobRepositoryPG) UpdateProgress(ctx context.Context, jobID string, status domain.JobStatus, progress int, message string) error {
	if !validID(jobID) {
		return domain.ErrNotFound
	}
	var id string
	err := r.sql.QueryRow(ctx, sqlinline.QUpdateJobProgress, jobID, string(status), progress, message).Scan(&id)
	if err != nil {
		if infra.IsNoRows(err) {
			return r.explainMiss(ctx, jobID)
		}
		return fmt.Errorf("update job progress: %w", err)
	}
	return nil
}

// MarkFailed moves a non-terminal job to failed.
func (r *JobRepositoryPG) MarkFailed(ctx context.Context, jobID string, errMsg string) error {
	if !validID(jobID) {
		return domain.ErrNotFound
	}
	var id string
	err := r.sql.QueryRow(ctx, sqlinline.QFailJob, jobID, errMsg).Scan(&id)
	if err != nil {
		if infra.IsNoRows(err) {
			return r.explainMiss(ctx, jobID)
		}
		return fmt.Errorf("fail job: %w", err)
	}
	return nil
}

// GetByID fetches a job by its identifier. Ids that are not UUIDs cannot
// exist and report domain.ErrNotFound.
func (r *JobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	if !validID(jobID) {
		return nil, domain.ErrNotFound
	}
	var (
		job          domain.Job
		kind, status string
	)
	err := r.sql.QueryRow(ctx, sqlinline.QSelectJob, jobID).Scan(
		&job.ID,
		&job.OwnerID,
		&kind,
		&status,
		&job.Progress,
		&job.Message,
		&job.Error,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select job: %w", err)
	}
	job.Kind = domain.JobKind(kind)
	job.Status = domain.JobStatus(status)
	return &job, nil
}

// explainMiss distinguishes an unknown job from a finished one after a
// guarded update matched no row.
func (r *JobRepositoryPG) explainMiss(ctx context.Context, jobID string) error {
	job, err := r.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status.Terminal() {
		return domain.ErrJobFinished
	}
	return fmt.Errorf("job %s not updated in status %s", jobID, job.Status)
}

// validID reports whether id is a canonical uuid, the only form ids are
// minted in.
func validID(id string) bool {
	return len(id) == 36 && uuid.Validate(id) == nil
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)
