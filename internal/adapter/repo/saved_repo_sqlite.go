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

// SavedPodcastRepositorySQLite shares the job database file. Timestamps are
// unix nanoseconds.
type SavedPodcastRepositorySQLite struct {
	db     *sql.DB
	logger infra.Logger
}

func NewSavedPodcastRepositorySQLite(db *sql.DB, logger infra.Logger) *SavedPodcastRepositorySQLite {
	return &SavedPodcastRepositorySQLite{db: db, logger: logger}
}

func (r *SavedPodcastRepositorySQLite) debug(query, op string) {
	if marker, err := infra.Marker(query); err == nil {
		r.logger.Debug().Msgf("sqlite[%s] %s", marker, op)
	}
}

func (r *SavedPodcastRepositorySQLite) Create(ctx context.Context, p *domain.SavedPodcast) error {
	files, err := json.Marshal(p.Files)
	if err != nil {
		return fmt.Errorf("encode files: %w", err)
	}
	r.debug(sqlinline.QLiteInsertSavedPodcast, "exec")
	_, err = r.db.ExecContext(ctx, sqlinline.QLiteInsertSavedPodcast,
		p.ID,
		p.Owner,
		p.Title,
		p.Description,
		p.Script,
		string(files),
		string(p.Status),
		p.CreatedAt.UnixNano(),
		p.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert saved podcast: %w", err)
	}
	return nil
}

func (r *SavedPodcastRepositorySQLite) GetForOwner(ctx context.Context, id, owner string) (*domain.SavedPodcast, error) {
	r.debug(sqlinline.QLiteSelectSavedPodcastForOwner, "query_row")
	p, err := scanLiteSaved(r.db.QueryRowContext(ctx, sqlinline.QLiteSelectSavedPodcastForOwner, id, owner))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *SavedPodcastRepositorySQLite) ListByOwner(ctx context.Context, owner string, limit int) ([]*domain.SavedPodcast, error) {
	r.debug(sqlinline.QLiteListSavedPodcastsByOwner, "query")
	rows, err := r.db.QueryContext(ctx, sqlinline.QLiteListSavedPodcastsByOwner, owner, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*domain.SavedPodcast, 0)
	for rows.Next() {
		p, err := scanLiteSaved(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SavedPodcastRepositorySQLite) Delete(ctx context.Context, id, owner string) error {
	r.debug(sqlinline.QLiteDeleteSavedPodcast, "exec")
	res, err := r.db.ExecContext(ctx, sqlinline.QLiteDeleteSavedPodcast, id, owner)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanLiteSaved(row rowScanner) (*domain.SavedPodcast, error) {
	var (
		p                domain.SavedPodcast
		files, status    string
		created, updated int64
	)
	if err := row.Scan(&p.ID, &p.Owner, &p.Title, &p.Description, &p.Script, &files, &status, &created, &updated); err != nil {
		return nil, err
	}
	p.Status = domain.SavedStatus(status)
	p.CreatedAt = time.Unix(0, created).UTC()
	p.UpdatedAt = time.Unix(0, updated).UTC()
	if err := decodeFiles(&p, []byte(files)); err != nil {
		return nil, err
	}
	return &p, nil
}
