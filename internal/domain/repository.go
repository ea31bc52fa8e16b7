package domain

import (
	"context"
	"time"
)

// JobRepository persists job records. Every mutation of artifacts or status is
// guarded by status = processing; a guarded write against a terminal job returns
// ErrTerminal and against a missing job ErrNotFound.
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	Get(ctx context.Context, jobID string) (*Job, error)
	GetForOwner(ctx context.Context, jobID, owner string) (*Job, error)
	ListByOwner(ctx context.Context, owner string, kind JobKind, limit int) ([]*Job, error)
	SaveArtifacts(ctx context.Context, job *Job) error
	MarkCompleted(ctx context.Context, job *Job) error
	MarkFailed(ctx context.Context, job *Job) error
	SetDisplayThumbnail(ctx context.Context, jobID, owner, url string) error
	Delete(ctx context.Context, jobID, owner string) error
	ListStale(ctx context.Context, before time.Time, limit int) ([]*Job, error)
	// ListFailedBefore returns failed jobs whose stored objects have not been
	// released yet.
	ListFailedBefore(ctx context.Context, before time.Time, limit int) ([]*Job, error)
	// ReleaseObjects records that the stored objects of a failed job were
	// deleted. The record and its error stay readable.
	ReleaseObjects(ctx context.Context, job *Job) error
}

// SavedPodcastRepository persists directly saved podcasts. Reads and deletes
// are scoped to the owner; a foreign or missing id returns ErrNotFound.
type SavedPodcastRepository interface {
	Create(ctx context.Context, p *SavedPodcast) error
	GetForOwner(ctx context.Context, id, owner string) (*SavedPodcast, error)
	ListByOwner(ctx context.Context, owner string, limit int) ([]*SavedPodcast, error)
	Delete(ctx context.Context, id, owner string) error
}
