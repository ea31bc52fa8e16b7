package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"mediastudio/internal/domain"
	"mediastudio/internal/middleware"
)

type createRequest struct {
	Title             string         `json:"title"`
	Description       string         `json:"description"`
	SourceText        string         `json:"sourceText"`
	SourceContent     string         `json:"sourceContent"`
	SourceTextOrTopic string         `json:"sourceTextOrTopic"`
	GenerateContent   bool           `json:"generateContent"`
	Locale            string         `json:"locale"`
	Tags              []string       `json:"tags"`
	VoiceID           string         `json:"voiceId"`
	Stability         float64        `json:"stability"`
	SimilarityBoost   float64        `json:"similarityBoost"`
	Style             string         `json:"style"`
	Length            int            `json:"length"`
	AvatarSettings    map[string]any `json:"avatarSettings"`
	BackgroundMusic   string         `json:"backgroundMusic"`
	ThumbnailURL      string         `json:"thumbnailUrl"`
}

func (req createRequest) inputs(kind domain.JobKind, locale string) domain.Inputs {
	source := req.SourceTextOrTopic
	for _, alt := range []string{req.SourceText, req.SourceContent} {
		if strings.TrimSpace(source) == "" {
			source = alt
		}
	}
	in := domain.Inputs{
		Title:           req.Title,
		Description:     strings.TrimSpace(req.Description),
		Source:          source,
		GenerateContent: req.GenerateContent,
		Locale:          strings.TrimSpace(req.Locale),
		Tags:            req.Tags,
	}
	if in.Locale == "" {
		in.Locale = locale
	}
	switch kind {
	case domain.JobKindPodcast:
		in.Podcast = &domain.PodcastOptions{
			VoiceID:         strings.TrimSpace(req.VoiceID),
			Style:           strings.TrimSpace(req.Style),
			LengthMinutes:   req.Length,
			Stability:       req.Stability,
			SimilarityBoost: req.SimilarityBoost,
		}
	case domain.JobKindVideo:
		in.Video = &domain.VideoOptions{
			Style:           strings.TrimSpace(req.Style),
			LengthMinutes:   req.Length,
			ThumbnailURL:    req.ThumbnailURL,
			Avatar:          req.AvatarSettings,
			BackgroundMusic: strings.TrimSpace(req.BackgroundMusic),
		}
	}
	return in
}

type createResponse struct {
	Message string `json:"message"`
	JobID   string `json:"jobId"`
}

func kindLabel(kind domain.JobKind) string {
	if kind == domain.JobKindPodcast {
		return "Podcast"
	}
	return "Video"
}

// CreateJob validates the request, records a processing job and starts its
// pipeline without waiting for it.
func (a *App) CreateJob(kind domain.JobKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := middleware.OwnerFromContext(r.Context())
		if owner == "" {
			a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
			return
		}
		var req createRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
			return
		}
		inputs := req.inputs(kind, middleware.LocaleFromContext(r.Context()))
		if err := inputs.Validate(kind, a.MaxLengthMinutes); err != nil {
			a.fail(w, r, err, "")
			return
		}
		if err := validThumbnailURL(inputs.Video); err != nil {
			a.fail(w, r, err, "")
			return
		}

		reservation, err := a.Supervisor.Reserve()
		if err != nil {
			a.fail(w, r, err, "")
			return
		}
		job := domain.NewJob(owner, kind, inputs, a.Now())
		if err := a.Jobs.Create(r.Context(), job); err != nil {
			reservation.Release()
			a.fail(w, r, err, "")
			return
		}
		a.Logger.Info().Str("job_id", job.ID).Str("kind", string(kind)).Str("owner", owner).Bool("generate_content", inputs.GenerateContent).Msg("job created")

		a.json(w, http.StatusCreated, createResponse{
			Message: kindLabel(kind) + " creation started",
			JobID:   job.ID,
		})
		reservation.Submit(job.Clone())
	}
}

func validThumbnailURL(video *domain.VideoOptions) error {
	if video == nil || video.ThumbnailURL == "" {
		return nil
	}
	return checkHTTPURL(video.ThumbnailURL)
}

func checkHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: thumbnailUrl must be an absolute http(s) URL", domain.ErrValidation)
	}
	return nil
}

// ListJobs returns the caller's jobs of one kind, newest first.
func (a *App) ListJobs(kind domain.JobKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := middleware.OwnerFromContext(r.Context())
		if owner == "" {
			a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
			return
		}
		limit := defaultListLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				a.error(w, http.StatusBadRequest, "bad_request", "limit must be a positive integer")
				return
			}
			limit = min(n, maxListLimit)
		}
		jobs, err := a.Jobs.ListByOwner(r.Context(), owner, kind, limit)
		if err != nil {
			a.fail(w, r, err, "")
			return
		}
		items := make([]jobView, 0, len(jobs))
		for _, job := range jobs {
			items = append(items, newJobView(job))
		}
		a.json(w, http.StatusOK, map[string]any{"items": items})
	}
}

// loadOwned fetches the job named in the URL if it belongs to the caller and
// has the route's kind.
func (a *App) loadOwned(w http.ResponseWriter, r *http.Request, kind domain.JobKind) (*domain.Job, bool) {
	owner := middleware.OwnerFromContext(r.Context())
	if owner == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return nil, false
	}
	jobID := chi.URLParam(r, "id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "id required")
		return nil, false
	}
	notFound := strings.ToLower(kindLabel(kind)) + " not found"
	if _, err := uuid.Parse(jobID); err != nil {
		a.fail(w, r, domain.ErrNotFound, notFound)
		return nil, false
	}
	job, err := a.Jobs.GetForOwner(r.Context(), jobID, owner)
	if err == nil && job.Kind != kind {
		err = domain.ErrNotFound
	}
	if err != nil {
		a.fail(w, r, err, notFound)
		return nil, false
	}
	return job, true
}

func (a *App) GetJob(kind domain.JobKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, ok := a.loadOwned(w, r, kind)
		if !ok {
			return
		}
		a.json(w, http.StatusOK, newJobView(job))
	}
}

type thumbnailRequest struct {
	ThumbnailURL string `json:"thumbnailUrl"`
}

// UpdateThumbnail replaces the display thumbnail. It is allowed in any status.
func (a *App) UpdateThumbnail(kind domain.JobKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, ok := a.loadOwned(w, r, kind)
		if !ok {
			return
		}
		var req thumbnailRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
			return
		}
		req.ThumbnailURL = strings.TrimSpace(req.ThumbnailURL)
		if err := checkHTTPURL(req.ThumbnailURL); err != nil {
			a.fail(w, r, err, "")
			return
		}
		if err := a.Jobs.SetDisplayThumbnail(r.Context(), job.ID, job.Owner, req.ThumbnailURL); err != nil {
			a.fail(w, r, err, strings.ToLower(kindLabel(kind))+" not found")
			return
		}
		job.DisplayThumbnailURL = req.ThumbnailURL
		a.json(w, http.StatusOK, map[string]any{
			"message": "Thumbnail updated successfully",
			"job":     newJobView(job),
		})
	}
}

// DeleteJob removes the stored objects of a job and then its record. When a
// storage delete fails the record is kept so the request can be retried.
func (a *App) DeleteJob(kind domain.JobKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, ok := a.loadOwned(w, r, kind)
		if !ok {
			return
		}
		if err := a.deleteObjects(r.Context(), job); err != nil {
			a.fail(w, r, err, "")
			return
		}
		if err := a.Jobs.Delete(r.Context(), job.ID, job.Owner); err != nil {
			a.fail(w, r, err, strings.ToLower(kindLabel(kind))+" not found")
			return
		}
		a.Logger.Info().Str("job_id", job.ID).Str("owner", job.Owner).Msg("job deleted")
		a.json(w, http.StatusOK, map[string]string{"message": kindLabel(kind) + " deleted successfully"})
	}
}

func (a *App) deleteObjects(ctx context.Context, job *domain.Job) error {
	var errs []error
	for _, obj := range job.Artifacts.Objects() {
		if obj.ID == "" {
			continue
		}
		if err := a.Store.Delete(ctx, obj.ID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// JobRoutes mounts the routes of one job kind. createMiddleware wraps only
// the create endpoint.
func (a *App) JobRoutes(kind domain.JobKind, createMiddleware ...func(http.Handler) http.Handler) func(chi.Router) {
	return func(r chi.Router) {
		r.With(createMiddleware...).Post("/", a.CreateJob(kind))
		r.Get("/", a.ListJobs(kind))
		r.Get("/{id}", a.GetJob(kind))
		r.Delete("/{id}", a.DeleteJob(kind))
		r.Patch("/{id}/thumbnail", a.UpdateThumbnail(kind))
		r.Get("/{id}/archive", a.Archive(kind))
		if kind == domain.JobKindPodcast && a.Saved != nil {
			r.Post("/save", a.SavePodcast)
			r.Get("/saved", a.ListSaved)
			r.Get("/saved/{id}", a.GetSaved)
			r.Delete("/saved/{id}", a.DeleteSaved)
		}
	}
}
