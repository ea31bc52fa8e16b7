package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"mediastudio/internal/domain"
	"mediastudio/internal/infra"
	"mediastudio/internal/sqlinline"
)

// SavedPodcastRepositoryPG implements domain.SavedPodcastRepository on PostgreSQL.
type SavedPodcastRepositoryPG struct {
	db infra.SQLExecutor
}

func NewSavedPodcastRepository(db infra.SQLExecutor) *SavedPodcastRepositoryPG {
	return &SavedPodcastRepositoryPG{db: db}
}

func (r *SavedPodcastRepositoryPG) Create(ctx context.Context, p *domain.SavedPodcast) error {
	files, err := json.Marshal(p.Files)
	if err != nil {
		return fmt.Errorf("encode files: %w", err)
	}
	_, err = r.db.Exec(ctx, sqlinline.QInsertSavedPodcast,
		p.ID,
		p.Owner,
		p.Title,
		p.Description,
		p.Script,
		files,
		string(p.Status),
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert saved podcast: %w", err)
	}
	return nil
}

func (r *SavedPodcastRepositoryPG) GetForOwner(ctx context.Context, id, owner string) (*domain.SavedPodcast, error) {
	p, err := scanSaved(r.db.QueryRow(ctx, sqlinline.QSelectSavedPodcastForOwner, id, owner))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// ListByOwner returns the owner's saved podcasts newest first.
func (r *SavedPodcastRepositoryPG) ListByOwner(ctx context.Context, owner string, limit int) ([]*domain.SavedPodcast, error) {
	rows, err := r.db.Query(ctx, sqlinline.QListSavedPodcastsByOwner, owner, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*domain.SavedPodcast, 0)
	for rows.Next() {
		p, err := scanSaved(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SavedPodcastRepositoryPG) Delete(ctx context.Context, id, owner string) error {
	tag, err := r.db.Exec(ctx, sqlinline.QDeleteSavedPodcast, id, owner)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanSaved(row rowScanner) (*domain.SavedPodcast, error) {
	var (
		p      domain.SavedPodcast
		files  []byte
		status string
	)
	if err := row.Scan(&p.ID, &p.Owner, &p.Title, &p.Description, &p.Script, &files, &status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Status = domain.SavedStatus(status)
	if err := decodeFiles(&p, files); err != nil {
		return nil, err
	}
	return &p, nil
}

func decodeFiles(p *domain.SavedPodcast, files []byte) error {
	if len(files) == 0 {
		return nil
	}
	if err := json.Unmarshal(files, &p.Files); err != nil {
		return fmt.Errorf("decode files of saved podcast %s: %w", p.ID, err)
	}
	return nil
}
