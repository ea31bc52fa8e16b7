package repo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"mediastudio/internal/domain"
)

// MemoryJobRepository keeps jobs in process memory. Used for development and tests.
type MemoryJobRepository struct {
	mu       sync.RWMutex
	jobs     map[string]*domain.Job
	released map[string]bool
}

func NewMemoryJobRepository() *MemoryJobRepository {
	return &MemoryJobRepository{jobs: make(map[string]*domain.Job), released: make(map[string]bool)}
}

func (r *MemoryJobRepository) Create(_ context.Context, job *domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[job.ID]; exists {
		return fmt.Errorf("insert job: duplicate id %s", job.ID)
	}
	r.jobs[job.ID] = job.Clone()
	return nil
}

func (r *MemoryJobRepository) Get(_ context.Context, jobID string) (*domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return job.Clone(), nil
}

func (r *MemoryJobRepository) GetForOwner(ctx context.Context, jobID, owner string) (*domain.Job, error) {
	job, err := r.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Owner != owner {
		return nil, domain.ErrNotFound
	}
	return job, nil
}

func (r *MemoryJobRepository) ListByOwner(_ context.Context, owner string, kind domain.JobKind, limit int) ([]*domain.Job, error) {
	return r.filter(func(j *domain.Job) bool {
		return j.Owner == owner && (kind == "" || j.Kind == kind)
	}, func(a, b *domain.Job) bool { return a.CreatedAt.After(b.CreatedAt) }, limit), nil
}

func (r *MemoryJobRepository) filter(keep func(*domain.Job) bool, less func(a, b *domain.Job) bool, limit int) []*domain.Job {
	r.mu.RLock()
	out := make([]*domain.Job, 0)
	for _, job := range r.jobs {
		if keep(job) {
			out = append(out, job.Clone())
		}
	}
	r.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// update applies fn to the stored job while it is still processing.
func (r *MemoryJobRepository) update(jobID string, fn func(stored *domain.Job)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.Status != domain.JobStatusProcessing {
		return fmt.Errorf("%w: job %s is %s", domain.ErrTerminal, jobID, stored.Status)
	}
	fn(stored)
	return nil
}

func (r *MemoryJobRepository) SaveArtifacts(_ context.Context, job *domain.Job) error {
	snapshot := job.Clone()
	return r.update(job.ID, func(stored *domain.Job) {
		stored.Artifacts = snapshot.Artifacts
		stored.UpdatedAt = snapshot.UpdatedAt
	})
}

func (r *MemoryJobRepository) MarkCompleted(_ context.Context, job *domain.Job) error {
	snapshot := job.Clone()
	return r.update(job.ID, func(stored *domain.Job) {
		stored.Status = domain.JobStatusCompleted
		stored.Artifacts = snapshot.Artifacts
		stored.UpdatedAt = snapshot.UpdatedAt
	})
}

func (r *MemoryJobRepository) MarkFailed(_ context.Context, job *domain.Job) error {
	snapshot := job.Clone()
	return r.update(job.ID, func(stored *domain.Job) {
		stored.Status = domain.JobStatusFailed
		stored.Artifacts = snapshot.Artifacts
		stored.Error = snapshot.Error
		stored.UpdatedAt = snapshot.UpdatedAt
	})
}

func (r *MemoryJobRepository) SetDisplayThumbnail(_ context.Context, jobID, owner, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.jobs[jobID]
	if !ok || stored.Owner != owner {
		return domain.ErrNotFound
	}
	stored.DisplayThumbnailURL = url
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryJobRepository) Delete(_ context.Context, jobID, owner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.jobs[jobID]
	if !ok || stored.Owner != owner {
		return domain.ErrNotFound
	}
	delete(r.jobs, jobID)
	delete(r.released, jobID)
	return nil
}

func (r *MemoryJobRepository) ListStale(_ context.Context, before time.Time, limit int) ([]*domain.Job, error) {
	return r.byStatusBefore(domain.JobStatusProcessing, before, limit), nil
}

func (r *MemoryJobRepository) ListFailedBefore(_ context.Context, before time.Time, limit int) ([]*domain.Job, error) {
	return r.byStatusBefore(domain.JobStatusFailed, before, limit), nil
}

func (r *MemoryJobRepository) ReleaseObjects(_ context.Context, job *domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.jobs[job.ID]
	if !ok || stored.Status != domain.JobStatusFailed {
		return domain.ErrNotFound
	}
	stored.Artifacts = job.Clone().Artifacts
	r.released[job.ID] = true
	return nil
}

// byStatusBefore is called without r.mu held; filter takes the read lock.
func (r *MemoryJobRepository) byStatusBefore(status domain.JobStatus, before time.Time, limit int) []*domain.Job {
	return r.filter(func(j *domain.Job) bool {
		if status == domain.JobStatusFailed && r.released[j.ID] {
			return false
		}
		return j.Status == status && j.UpdatedAt.Before(before)
	}, func(a, b *domain.Job) bool { return a.UpdatedAt.Before(b.UpdatedAt) }, limit)
}
