package repo

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"mediastudio/internal/domain"
)

// MemorySavedPodcastRepository keeps saved podcasts in process memory.
type MemorySavedPodcastRepository struct {
	mu    sync.RWMutex
	items map[string]*domain.SavedPodcast
}

func NewMemorySavedPodcastRepository() *MemorySavedPodcastRepository {
	return &MemorySavedPodcastRepository{items: make(map[string]*domain.SavedPodcast)}
}

func (r *MemorySavedPodcastRepository) Create(_ context.Context, p *domain.SavedPodcast) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[p.ID]; exists {
		return fmt.Errorf("insert saved podcast: duplicate id %s", p.ID)
	}
	r.items[p.ID] = p.Clone()
	return nil
}

func (r *MemorySavedPodcastRepository) GetForOwner(_ context.Context, id, owner string) (*domain.SavedPodcast, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.items[id]
	if !ok || p.Owner != owner {
		return nil, domain.ErrNotFound
	}
	return p.Clone(), nil
}

func (r *MemorySavedPodcastRepository) ListByOwner(_ context.Context, owner string, limit int) ([]*domain.SavedPodcast, error) {
	r.mu.RLock()
	out := make([]*domain.SavedPodcast, 0)
	for _, p := range r.items {
		if p.Owner == owner {
			out = append(out, p.Clone())
		}
	}
	r.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemorySavedPodcastRepository) Delete(_ context.Context, id, owner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[id]
	if !ok || p.Owner != owner {
		return domain.ErrNotFound
	}
	delete(r.items, id)
	return nil
}
