package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"mediastudio/internal/domain"
	"mediastudio/internal/middleware"
	"mediastudio/internal/storage"
)

const (
	maxUploadFileBytes = 50 << 20
	maxSaveBodyBytes   = 3*maxUploadFileBytes + maxBodyBytes
	multipartMemory    = 32 << 20

	folderSavedAudio      = "podcasts/saved/audio"
	folderSavedMusic      = "podcasts/saved/music"
	folderSavedThumbnails = "podcasts/saved/thumbnails"
)

type savedUpload struct {
	field  string
	folder string
	kind   string // required media type prefix
	slot   func(*domain.SavedFiles) **domain.StoredObject
}

var savedUploads = []savedUpload{
	{field: "audio", folder: folderSavedAudio, kind: "audio/", slot: func(f *domain.SavedFiles) **domain.StoredObject { return &f.Audio }},
	{field: "backgroundMusic", folder: folderSavedMusic, kind: "audio/", slot: func(f *domain.SavedFiles) **domain.StoredObject { return &f.BackgroundMusic }},
	{field: "thumbnail", folder: folderSavedThumbnails, kind: "image/", slot: func(f *domain.SavedFiles) **domain.StoredObject { return &f.Thumbnail }},
}

type savedSummary struct {
	ID           string             `json:"id"`
	Title        string             `json:"title"`
	AudioURL     string             `json:"audioUrl,omitempty"`
	ThumbnailURL string             `json:"thumbnailUrl,omitempty"`
	Status       domain.SavedStatus `json:"status"`
	CreatedAt    time.Time          `json:"createdAt"`
}

type savedView struct {
	savedSummary
	Description        string    `json:"description,omitempty"`
	Script             string    `json:"script"`
	BackgroundMusicURL string    `json:"backgroundMusicUrl,omitempty"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

func urlOf(obj *domain.StoredObject) string {
	if obj == nil {
		return ""
	}
	return obj.URL
}

func newSavedSummary(p *domain.SavedPodcast) savedSummary {
	return savedSummary{
		ID:           p.ID,
		Title:        p.Title,
		AudioURL:     urlOf(p.Files.Audio),
		ThumbnailURL: urlOf(p.Files.Thumbnail),
		Status:       p.Status,
		CreatedAt:    p.CreatedAt,
	}
}

func newSavedView(p *domain.SavedPodcast) savedView {
	return savedView{
		savedSummary:       newSavedSummary(p),
		Description:        p.Description,
		Script:             p.Script,
		BackgroundMusicURL: urlOf(p.Files.BackgroundMusic),
		UpdatedAt:          p.UpdatedAt,
	}
}

// SavePodcast stores an owner-supplied podcast without generation. The
// multipart form carries title, script and description plus optional audio,
// backgroundMusic and thumbnail files. Uploads are removed again when the
// request fails after they were stored.
func (a *App) SavePodcast(w http.ResponseWriter, r *http.Request) {
	owner := middleware.OwnerFromContext(r.Context())
	if owner == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxSaveBodyBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.error(w, http.StatusRequestEntityTooLarge, "too_large", "upload exceeds the size limit")
			return
		}
		a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart payload")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	podcast, err := domain.NewSavedPodcast(owner, r.FormValue("title"), r.FormValue("description"), r.FormValue("script"), a.Now())
	if err != nil {
		a.fail(w, r, err, "")
		return
	}

	var files domain.SavedFiles
	for _, up := range savedUploads {
		obj, err := a.storeUpload(r, podcast.Title, up)
		if err != nil {
			a.discard(r.Context(), files)
			if errors.Is(err, errUploadTooLarge) {
				a.error(w, http.StatusRequestEntityTooLarge, "too_large", err.Error())
				return
			}
			a.fail(w, r, err, "")
			return
		}
		*up.slot(&files) = obj
	}
	podcast.Attach(files)

	if err := a.Saved.Create(r.Context(), podcast); err != nil {
		a.discard(r.Context(), files)
		a.fail(w, r, err, "")
		return
	}
	a.Logger.Info().Str("podcast_id", podcast.ID).Str("owner", owner).Str("status", string(podcast.Status)).Msg("podcast saved")
	a.json(w, http.StatusOK, map[string]any{
		"message": "Podcast saved successfully",
		"podcast": newSavedSummary(podcast),
	})
}

var errUploadTooLarge = fmt.Errorf("each file must be at most %d MB", maxUploadFileBytes>>20)

// storeUpload uploads one optional form file. A missing file yields nil.
func (a *App) storeUpload(r *http.Request, title string, up savedUpload) (*domain.StoredObject, error) {
	file, header, err := r.FormFile(up.field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrValidation, up.field, err)
	}
	defer file.Close()
	if header.Size > maxUploadFileBytes {
		return nil, errUploadTooLarge
	}
	data, err := io.ReadAll(io.LimitReader(file, maxUploadFileBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", up.field, err)
	}
	if len(data) > maxUploadFileBytes {
		return nil, errUploadTooLarge
	}
	contentType := uploadContentType(header, data)
	if !strings.HasPrefix(contentType, up.kind) {
		return nil, fmt.Errorf("%w: %s must be %s*, got %s", domain.ErrValidation, up.field, up.kind, contentType)
	}
	obj, err := a.Store.Upload(r.Context(), data, storage.Hint{
		Folder:      up.folder,
		Name:        title + " " + up.field,
		ContentType: contentType,
	})
	if err != nil {
		return nil, err
	}
	return &obj, nil
}

func uploadContentType(header *multipart.FileHeader, data []byte) string {
	if ct := strings.TrimSpace(header.Header.Get("Content-Type")); ct != "" && ct != "application/octet-stream" {
		return strings.ToLower(ct)
	}
	return http.DetectContentType(data)
}

func (a *App) discard(ctx context.Context, files domain.SavedFiles) {
	for _, obj := range files.Objects() {
		if err := a.Store.Delete(ctx, obj.ID); err != nil {
			a.Logger.Warn().Err(err).Str("object_id", obj.ID).Msg("discard upload")
		}
	}
}

// ListSaved returns the caller's saved podcasts, newest first.
func (a *App) ListSaved(w http.ResponseWriter, r *http.Request) {
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
	podcasts, err := a.Saved.ListByOwner(r.Context(), owner, limit)
	if err != nil {
		a.fail(w, r, err, "")
		return
	}
	items := make([]savedSummary, 0, len(podcasts))
	for _, p := range podcasts {
		items = append(items, newSavedSummary(p))
	}
	a.json(w, http.StatusOK, map[string]any{"podcasts": items})
}

func (a *App) loadSaved(w http.ResponseWriter, r *http.Request) (*domain.SavedPodcast, bool) {
	owner := middleware.OwnerFromContext(r.Context())
	if owner == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return nil, false
	}
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		a.fail(w, r, domain.ErrNotFound, "podcast not found")
		return nil, false
	}
	p, err := a.Saved.GetForOwner(r.Context(), id, owner)
	if err != nil {
		a.fail(w, r, err, "podcast not found")
		return nil, false
	}
	return p, true
}

func (a *App) GetSaved(w http.ResponseWriter, r *http.Request) {
	p, ok := a.loadSaved(w, r)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, map[string]any{"podcast": newSavedView(p)})
}

// DeleteSaved removes the uploaded files and then the record. A failed storage
// delete keeps the record so the request can be retried.
func (a *App) DeleteSaved(w http.ResponseWriter, r *http.Request) {
	p, ok := a.loadSaved(w, r)
	if !ok {
		return
	}
	var errs []error
	for _, obj := range p.Files.Objects() {
		if err := a.Store.Delete(r.Context(), obj.ID); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		a.fail(w, r, err, "")
		return
	}
	if err := a.Saved.Delete(r.Context(), p.ID, p.Owner); err != nil {
		a.fail(w, r, err, "podcast not found")
		return
	}
	a.json(w, http.StatusOK, map[string]string{"message": "Podcast deleted successfully"})
}
