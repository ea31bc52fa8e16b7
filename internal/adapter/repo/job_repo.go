package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"mediastudio/internal/domain"
	"mediastudio/internal/infra"
	"mediastudio/internal/sqlinline"
)

// JobRepositoryPG implements domain.JobRepository on PostgreSQL.
type JobRepositoryPG struct {
	db infra.SQLExecutor
}

// NewJobRepository creates a job repository backed by PostgreSQL.
func NewJobRepository(db infra.SQLExecutor) *JobRepositoryPG {
	return &JobRepositoryPG{db: db}
}

// Create inserts a new job record.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.Job) error {
	inputs, artifacts, err := encodeJob(job)
	if err != nil {
		return err
	}
	stage, message := errorColumns(job.Error)
	_, err = r.db.Exec(ctx, sqlinline.QInsertMediaJob,
		job.ID,
		job.Owner,
		string(job.Kind),
		string(job.Status),
		inputs,
		artifacts,
		stage,
		message,
		job.DisplayThumbnailURL,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// Get fetches a job regardless of owner.
func (r *JobRepositoryPG) Get(ctx context.Context, jobID string) (*domain.Job, error) {
	return r.one(ctx, sqlinline.QSelectMediaJob, jobID)
}

// GetForOwner fetches a job only when it belongs to owner.
func (r *JobRepositoryPG) GetForOwner(ctx context.Context, jobID, owner string) (*domain.Job, error) {
	return r.one(ctx, sqlinline.QSelectMediaJobForOwner, jobID, owner)
}

func (r *JobRepositoryPG) one(ctx context.Context, query string, args ...any) (*domain.Job, error) {
	job, err := scanJob(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

// ListByOwner returns the owner's jobs newest first. An empty kind lists all kinds.
func (r *JobRepositoryPG) ListByOwner(ctx context.Context, owner string, kind domain.JobKind, limit int) ([]*domain.Job, error) {
	rows, err := r.db.Query(ctx, sqlinline.QListMediaJobsByOwner, owner, string(kind), limit)
	if err != nil {
		return nil, err
	}
	return collectPG(rows)
}

// SaveArtifacts persists artifacts of a processing job.
func (r *JobRepositoryPG) SaveArtifacts(ctx context.Context, job *domain.Job) error {
	artifacts, err := json.Marshal(job.Artifacts)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, sqlinline.QSaveMediaJobArtifacts, job.ID, artifacts, job.UpdatedAt)
	if err != nil {
		return err
	}
	return r.guarded(ctx, job.ID, tag.RowsAffected())
}

// MarkCompleted moves a processing job to completed together with its final artifacts.
func (r *JobRepositoryPG) MarkCompleted(ctx context.Context, job *domain.Job) error {
	artifacts, err := json.Marshal(job.Artifacts)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, sqlinline.QMarkMediaJobCompleted, job.ID, artifacts, job.UpdatedAt)
	if err != nil {
		return err
	}
	return r.guarded(ctx, job.ID, tag.RowsAffected())
}

// MarkFailed moves a processing job to failed. Artifacts written so far are kept.
func (r *JobRepositoryPG) MarkFailed(ctx context.Context, job *domain.Job) error {
	artifacts, err := json.Marshal(job.Artifacts)
	if err != nil {
		return err
	}
	stage, message := errorColumns(job.Error)
	tag, err := r.db.Exec(ctx, sqlinline.QMarkMediaJobFailed, job.ID, artifacts, stage, message, job.UpdatedAt)
	if err != nil {
		return err
	}
	return r.guarded(ctx, job.ID, tag.RowsAffected())
}

func (r *JobRepositoryPG) guarded(ctx context.Context, jobID string, affected int64) error {
	if affected > 0 {
		return nil
	}
	var status string
	if err := r.db.QueryRow(ctx, sqlinline.QSelectMediaJobStatus, jobID).Scan(&status); err != nil {
		if infra.IsNoRows(err) {
			return domain.ErrNotFound
		}
		return err
	}
	return fmt.Errorf("%w: job %s is %s", domain.ErrTerminal, jobID, status)
}

// SetDisplayThumbnail replaces the owner-chosen thumbnail URL.
func (r *JobRepositoryPG) SetDisplayThumbnail(ctx context.Context, jobID, owner, url string) error {
	tag, err := r.db.Exec(ctx, sqlinline.QSetMediaJobDisplayThumbnail, jobID, owner, url)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes the owner's job record.
func (r *JobRepositoryPG) Delete(ctx context.Context, jobID, owner string) error {
	tag, err := r.db.Exec(ctx, sqlinline.QDeleteMediaJob, jobID, owner)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListStale returns processing jobs not touched since before.
func (r *JobRepositoryPG) ListStale(ctx context.Context, before time.Time, limit int) ([]*domain.Job, error) {
	rows, err := r.db.Query(ctx, sqlinline.QListStaleMediaJobs, before.UTC(), limit)
	if err != nil {
		return nil, err
	}
	return collectPG(rows)
}

// ListFailedBefore returns failed jobs last updated before the cutoff.
func (r *JobRepositoryPG) ListFailedBefore(ctx context.Context, before time.Time, limit int) ([]*domain.Job, error) {
	rows, err := r.db.Query(ctx, sqlinline.QListFailedMediaJobsBefore, before.UTC(), limit)
	if err != nil {
		return nil, err
	}
	return collectPG(rows)
}

// ReleaseObjects stores the artifacts left after the objects of a failed job
// were deleted and excludes it from later purges.
func (r *JobRepositoryPG) ReleaseObjects(ctx context.Context, job *domain.Job) error {
	artifacts, err := json.Marshal(job.Artifacts)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, sqlinline.QReleaseFailedMediaJobObjects, job.ID, artifacts)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func collectPG(rows pgx.Rows) ([]*domain.Job, error) {
	defer rows.Close()
	jobs := make([]*domain.Job, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.Job, error) {
	var (
		job                  domain.Job
		kind, status         string
		inputs, artifacts    []byte
		errStage, errMessage *string
	)
	if err := row.Scan(
		&job.ID,
		&job.Owner,
		&kind,
		&status,
		&inputs,
		&artifacts,
		&errStage,
		&errMessage,
		&job.DisplayThumbnailURL,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	job.Kind = domain.JobKind(kind)
	job.Status = domain.JobStatus(status)
	if err := decodeJob(&job, inputs, artifacts); err != nil {
		return nil, err
	}
	job.Error = errorFromColumns(errStage, errMessage)
	return &job, nil
}

func encodeJob(job *domain.Job) ([]byte, []byte, error) {
	inputs, err := json.Marshal(job.Inputs)
	if err != nil {
		return nil, nil, fmt.Errorf("encode inputs: %w", err)
	}
	artifacts, err := json.Marshal(job.Artifacts)
	if err != nil {
		return nil, nil, fmt.Errorf("encode artifacts: %w", err)
	}
	return inputs, artifacts, nil
}

func decodeJob(job *domain.Job, inputs, artifacts []byte) error {
	if len(inputs) > 0 {
		if err := json.Unmarshal(inputs, &job.Inputs); err != nil {
			return fmt.Errorf("decode inputs of job %s: %w", job.ID, err)
		}
	}
	if len(artifacts) > 0 {
		if err := json.Unmarshal(artifacts, &job.Artifacts); err != nil {
			return fmt.Errorf("decode artifacts of job %s: %w", job.ID, err)
		}
	}
	return nil
}

func errorColumns(e *domain.JobError) (*string, *string) {
	if e == nil {
		return nil, nil
	}
	stage, message := e.Stage, e.Message
	return &stage, &message
}

func errorFromColumns(stage, message *string) *domain.JobError {
	if stage == nil && message == nil {
		return nil
	}
	out := &domain.JobError{}
	if stage != nil {
		out.Stage = *stage
	}
	if message != nil {
		out.Message = *message
	}
	return out
}
