package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mediastudio/internal/domain"
	"mediastudio/internal/infra"
	"mediastudio/internal/sqlinline"
)

// JobRepositorySQLite implements domain.JobRepository on a single SQLite file.
// Timestamps are stored as unix nanoseconds.
type JobRepositorySQLite struct {
	db     *sql.DB
	logger infra.Logger
}

func NewJobRepositorySQLite(db *sql.DB, logger infra.Logger) *JobRepositorySQLite {
	return &JobRepositorySQLite{db: db, logger: logger}
}

func (r *JobRepositorySQLite) debug(query, op string) {
	if marker, err := infra.Marker(query); err == nil {
		r.logger.Debug().Msgf("sqlite[%s] %s", marker, op)
	}
}

func (r *JobRepositorySQLite) exec(ctx context.Context, query string, args ...any) (int64, error) {
	r.debug(query, "exec")
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *JobRepositorySQLite) Create(ctx context.Context, job *domain.Job) error {
	inputs, artifacts, err := encodeJob(job)
	if err != nil {
		return err
	}
	stage, message := errorColumns(job.Error)
	_, err = r.exec(ctx, sqlinline.QLiteInsertMediaJob,
		job.ID,
		job.Owner,
		string(job.Kind),
		string(job.Status),
		string(inputs),
		string(artifacts),
		stage,
		message,
		job.DisplayThumbnailURL,
		job.CreatedAt.UnixNano(),
		job.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (r *JobRepositorySQLite) Get(ctx context.Context, jobID string) (*domain.Job, error) {
	return r.one(ctx, sqlinline.QLiteSelectMediaJob, jobID)
}

func (r *JobRepositorySQLite) GetForOwner(ctx context.Context, jobID, owner string) (*domain.Job, error) {
	return r.one(ctx, sqlinline.QLiteSelectMediaJobForOwner, jobID, owner)
}

func (r *JobRepositorySQLite) one(ctx context.Context, query string, args ...any) (*domain.Job, error) {
	r.debug(query, "query_row")
	job, err := scanLiteJob(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

func (r *JobRepositorySQLite) list(ctx context.Context, query string, args ...any) ([]*domain.Job, error) {
	r.debug(query, "query")
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	jobs := make([]*domain.Job, 0)
	for rows.Next() {
		job, err := scanLiteJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (r *JobRepositorySQLite) ListByOwner(ctx context.Context, owner string, kind domain.JobKind, limit int) ([]*domain.Job, error) {
	return r.list(ctx, sqlinline.QLiteListMediaJobsByOwner, owner, string(kind), string(kind), limit)
}

func (r *JobRepositorySQLite) SaveArtifacts(ctx context.Context, job *domain.Job) error {
	artifacts, err := json.Marshal(job.Artifacts)
	if err != nil {
		return err
	}
	n, err := r.exec(ctx, sqlinline.QLiteSaveMediaJobArtifacts, string(artifacts), job.UpdatedAt.UnixNano(), job.ID)
	if err != nil {
		return err
	}
	return r.guarded(ctx, job.ID, n)
}

func (r *JobRepositorySQLite) MarkCompleted(ctx context.Context, job *domain.Job) error {
	artifacts, err := json.Marshal(job.Artifacts)
	if err != nil {
		return err
	}
	n, err := r.exec(ctx, sqlinline.QLiteMarkMediaJobCompleted, string(artifacts), job.UpdatedAt.UnixNano(), job.ID)
	if err != nil {
		return err
	}
	return r.guarded(ctx, job.ID, n)
}

func (r *JobRepositorySQLite) MarkFailed(ctx context.Context, job *domain.Job) error {
	artifacts, err := json.Marshal(job.Artifacts)
	if err != nil {
		return err
	}
	stage, message := errorColumns(job.Error)
	n, err := r.exec(ctx, sqlinline.QLiteMarkMediaJobFailed, string(artifacts), stage, message, job.UpdatedAt.UnixNano(), job.ID)
	if err != nil {
		return err
	}
	return r.guarded(ctx, job.ID, n)
}

func (r *JobRepositorySQLite) guarded(ctx context.Context, jobID string, affected int64) error {
	if affected > 0 {
		return nil
	}
	r.debug(sqlinline.QLiteSelectMediaJobStatus, "query_row")
	var status string
	if err := r.db.QueryRowContext(ctx, sqlinline.QLiteSelectMediaJobStatus, jobID).Scan(&status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}
	return fmt.Errorf("%w: job %s is %s", domain.ErrTerminal, jobID, status)
}

func (r *JobRepositorySQLite) SetDisplayThumbnail(ctx context.Context, jobID, owner, url string) error {
	n, err := r.exec(ctx, sqlinline.QLiteSetMediaJobDisplayThumbnail, url, time.Now().UTC().UnixNano(), jobID, owner)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *JobRepositorySQLite) Delete(ctx context.Context, jobID, owner string) error {
	n, err := r.exec(ctx, sqlinline.QLiteDeleteMediaJob, jobID, owner)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *JobRepositorySQLite) ListStale(ctx context.Context, before time.Time, limit int) ([]*domain.Job, error) {
	return r.list(ctx, sqlinline.QLiteListStaleMediaJobs, before.UnixNano(), limit)
}

func (r *JobRepositorySQLite) ListFailedBefore(ctx context.Context, before time.Time, limit int) ([]*domain.Job, error) {
	return r.list(ctx, sqlinline.QLiteListFailedMediaJobsBefore, before.UnixNano(), limit)
}

func (r *JobRepositorySQLite) ReleaseObjects(ctx context.Context, job *domain.Job) error {
	artifacts, err := json.Marshal(job.Artifacts)
	if err != nil {
		return err
	}
	n, err := r.exec(ctx, sqlinline.QLiteReleaseFailedMediaJobObjects, string(artifacts), job.ID)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanLiteJob(row rowScanner) (*domain.Job, error) {
	var (
		job                  domain.Job
		kind, status         string
		inputs, artifacts    string
		errStage, errMessage sql.NullString
		created, updated     int64
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
		&created,
		&updated,
	); err != nil {
		return nil, err
	}
	job.Kind = domain.JobKind(kind)
	job.Status = domain.JobStatus(status)
	job.CreatedAt = time.Unix(0, created).UTC()
	job.UpdatedAt = time.Unix(0, updated).UTC()
	if err := decodeJob(&job, []byte(inputs), []byte(artifacts)); err != nil {
		return nil, err
	}
	var stage, message *string
	if errStage.Valid {
		stage = &errStage.String
	}
	if errMessage.Valid {
		message = &errMessage.String
	}
	job.Error = errorFromColumns(stage, message)
	return &job, nil
}
