package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"mediastudio/internal/domain"
	"mediastudio/internal/infra"
	"mediastudio/internal/pipeline"
	"mediastudio/internal/providers/failure"
	"mediastudio/internal/storage"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
	maxBodyBytes     = 1 << 20
)

// App carries the dependencies of the HTTP handlers. The direct-save podcast
// routes are mounted only when Saved is set.
type App struct {
	Jobs             domain.JobRepository
	Saved            domain.SavedPodcastRepository
	Supervisor       *pipeline.Supervisor
	Store            storage.Store
	Logger           infra.Logger
	MaxLengthMinutes int
	Now              func() time.Time
}

func NewApp(jobs domain.JobRepository, supervisor *pipeline.Supervisor, store storage.Store, logger infra.Logger, maxLengthMinutes int) *App {
	return &App{
		Jobs:             jobs,
		Supervisor:       supervisor,
		Store:            store,
		Logger:           logger,
		MaxLengthMinutes: maxLengthMinutes,
		Now:              time.Now,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]string{"error": message, "code": errCode})
}

// fail maps domain and adapter errors onto HTTP responses.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", notFound)
	case errors.Is(err, domain.ErrForbidden):
		a.error(w, http.StatusForbidden, "forbidden", "forbidden")
	case errors.Is(err, domain.ErrBusy):
		w.Header().Set("Retry-After", "30")
		a.error(w, http.StatusServiceUnavailable, "busy", "too many generations in progress, try again shortly")
	case errors.Is(err, domain.ErrTerminal):
		a.error(w, http.StatusConflict, "conflict", err.Error())
	case failure.KindOf(err) != failure.KindUnknown:
		a.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("storage request failed")
		a.error(w, http.StatusBadGateway, "upstream", failure.UserMessage(err))
	default:
		a.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
