package housekeeping

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mediastudio/internal/domain"
	"mediastudio/internal/infra"
	"mediastudio/internal/pipeline"
	"mediastudio/internal/progress"
	"mediastudio/internal/storage"
)

const (
	// StageInterrupted is recorded on runs orphaned by a process restart.
	StageInterrupted = "interrupted"

	interruptedMessage = "Generation was interrupted. Please try again."
	defaultBatch       = 100
)

// Action names what a sweep did to one job.
type Action string

const (
	ActionFailed Action = "failed"
	ActionPurged Action = "purged"
)

// Outcome reports one swept job.
type Outcome struct {
	JobID  string
	Owner  string
	Kind   domain.JobKind
	Action Action
	Err    error
}

// Sweeper reconciles job records no run will ever finish.
type Sweeper struct {
	repo   domain.JobRepository
	store  storage.Store
	hub    pipeline.Publisher
	logger infra.Logger
	batch  int
	now    func() time.Time
}

// NewSweeper builds a sweeper. hub may be nil when no listener can be reached
// from this process.
func NewSweeper(repo domain.JobRepository, store storage.Store, hub pipeline.Publisher, logger infra.Logger) *Sweeper {
	return &Sweeper{
		repo:   repo,
		store:  store,
		hub:    hub,
		logger: logger.With().Str("component", "housekeeping").Logger(),
		batch:  defaultBatch,
		now:    time.Now,
	}
}

// FailStale fails processing jobs that have not been updated for olderThan.
func (s *Sweeper) FailStale(ctx context.Context, olderThan time.Duration) ([]Outcome, error) {
	now := s.now()
	jobs, err := s.repo.ListStale(ctx, now.Add(-olderThan), s.batch)
	if err != nil {
		return nil, fmt.Errorf("list stale jobs: %w", err)
	}
	var out []Outcome
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		outcome := Outcome{JobID: job.ID, Owner: job.Owner, Kind: job.Kind, Action: ActionFailed}
		if err := job.Fail(StageInterrupted, interruptedMessage, now); err != nil {
			continue
		}
		if err := s.repo.MarkFailed(ctx, job); err != nil {
			if errors.Is(err, domain.ErrTerminal) || errors.Is(err, domain.ErrNotFound) {
				// finished or deleted since it was listed
				continue
			}
			outcome.Err = err
			s.logger.Error().Err(err).Str("job_id", job.ID).Msg("fail stale job")
			out = append(out, outcome)
			continue
		}
		s.logger.Info().Str("job_id", job.ID).Str("owner", job.Owner).Time("updated_at", job.UpdatedAt).Msg("stale job failed")
		if s.hub != nil {
			s.hub.Publish(job.Owner, progress.Error(interruptedMessage, map[string]any{
				"jobId":     job.ID,
				"kind":      string(job.Kind),
				"status":    string(domain.JobStatusFailed),
				"stage":     StageInterrupted,
				"message":   interruptedMessage,
				"errorKind": "interrupted",
			}))
		}
		out = append(out, outcome)
	}
	return out, nil
}

// PurgeFailed deletes the stored objects of jobs that failed before
// olderThan. Records are kept so owners can still read the failure; they lose
// their object references and are not listed again. A job whose objects cannot
// be deleted is retried on the next sweep.
func (s *Sweeper) PurgeFailed(ctx context.Context, olderThan time.Duration) ([]Outcome, error) {
	jobs, err := s.repo.ListFailedBefore(ctx, s.now().Add(-olderThan), s.batch)
	if err != nil {
		return nil, fmt.Errorf("list failed jobs: %w", err)
	}
	var out []Outcome
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		outcome := Outcome{JobID: job.ID, Owner: job.Owner, Kind: job.Kind, Action: ActionPurged}
		outcome.Err = s.purge(ctx, job)
		if outcome.Err != nil {
			s.logger.Error().Err(outcome.Err).Str("job_id", job.ID).Msg("purge failed job")
		}
		out = append(out, outcome)
	}
	return out, nil
}

func (s *Sweeper) purge(ctx context.Context, job *domain.Job) error {
	var errs []error
	for _, obj := range job.Artifacts.Objects() {
		if obj.ID == "" {
			continue
		}
		if err := s.store.Delete(ctx, obj.ID); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	job.Artifacts = job.Artifacts.WithoutStoredObjects()
	if err := s.repo.ReleaseObjects(ctx, job); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return nil
}

// Run sweeps on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context, interval, stale, retention time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		s.sweepOnce(ctx, stale, retention)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context, stale, retention time.Duration) {
	failed, err := s.FailStale(ctx, stale)
	if err != nil && ctx.Err() == nil {
		s.logger.Error().Err(err).Msg("fail stale sweep")
	}
	purged, err := s.PurgeFailed(ctx, retention)
	if err != nil && ctx.Err() == nil {
		s.logger.Error().Err(err).Msg("purge sweep")
	}
	if len(failed)+len(purged) > 0 {
		s.logger.Info().Int("failed", len(failed)).Int("purged", len(purged)).Msg("sweep finished")
	}
}
