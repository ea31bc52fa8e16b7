package handlers

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mediastudio/internal/adapter/repo"
	"mediastudio/internal/domain"
	"mediastudio/internal/middleware"
	"mediastudio/internal/pipeline"
	"mediastudio/internal/providers/failure"
	"mediastudio/internal/storage"
)

// gateRunner blocks every run until release is closed.
type gateRunner struct {
	release chan struct{}
	mu      sync.Mutex
	started []string
}

func (g *gateRunner) Run(ctx context.Context, job *domain.Job) error {
	g.mu.Lock()
	g.started = append(g.started, job.ID)
	g.mu.Unlock()
	select {
	case <-g.release:
	case <-ctx.Done():
	}
	return nil
}

type memStore struct {
	mu        sync.Mutex
	objects   map[string]string
	deleted   []string
	deleteErr error
}

func newMemStore() *memStore { return &memStore{objects: map[string]string{}} }

func (m *memStore) Upload(_ context.Context, data []byte, hint storage.Hint) (domain.StoredObject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := hint.Folder + "/" + hint.Name
	m.objects[id] = string(data)
	return domain.StoredObject{ID: id, URL: "https://cdn.test/" + id}, nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, id)
	delete(m.objects, id)
	return nil
}

func (m *memStore) Open(_ context.Context, obj domain.StoredObject) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return io.NopCloser(strings.NewReader(m.objects[obj.ID])), nil
}

type harness struct {
	app    *App
	jobs   *repo.MemoryJobRepository
	store  *memStore
	runner *gateRunner
	router http.Handler
}

func newHarness(t *testing.T, maxInFlight int) *harness {
	t.Helper()
	jobs := repo.NewMemoryJobRepository()
	runner := &gateRunner{release: make(chan struct{})}
	sup := pipeline.NewSupervisor(runner, maxInFlight, zerolog.Nop())
	store := newMemStore()
	app := NewApp(jobs, sup, store, zerolog.Nop(), 10)
	t.Cleanup(func() {
		close(runner.release)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = sup.Drain(ctx)
	})

	return &harness{app: app, jobs: jobs, store: store, runner: runner, router: testRouter(app)}
}

// testRouter mounts the job routes behind a header that injects the owner.
func testRouter(app *App) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if owner := req.Header.Get("X-Test-Owner"); owner != "" {
				req = req.WithContext(middleware.ContextWithOwner(req.Context(), owner))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Route("/v1/podcasts", app.JobRoutes(domain.JobKindPodcast))
	r.Route("/v1/videos", app.JobRoutes(domain.JobKindVideo))
	return r
}

func (h *harness) do(method, path, owner, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if owner != "" {
		req.Header.Set("X-Test-Owner", owner)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

// completedJob stores a finished podcast with a script and an audio object.
func (h *harness) completedJob(t *testing.T, owner string) *domain.Job {
	t.Helper()
	ctx := context.Background()
	now := time.Now()
	job := domain.NewJob(owner, domain.JobKindPodcast, domain.Inputs{Title: "T", Source: "S"}, now)
	if err := h.jobs.Create(ctx, job); err != nil {
		t.Fatalf("Create: %v", err)
	}
	audio, _ := h.store.Upload(ctx, []byte("mp3-bytes"), storage.Hint{Folder: "podcasts/audio", Name: "a1.mp3"})
	if err := job.SetScript("hello world", now); err != nil {
		t.Fatalf("SetScript: %v", err)
	}
	if err := job.SetAudio(audio, now); err != nil {
		t.Fatalf("SetAudio: %v", err)
	}
	if err := h.jobs.SaveArtifacts(ctx, job); err != nil {
		t.Fatalf("SaveArtifacts: %v", err)
	}
	if err := job.Complete(now); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if err := h.jobs.MarkCompleted(ctx, job); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	return job
}

func TestCreateReturnsBeforePipelineRuns(t *testing.T) {
	h := newHarness(t, 4)
	rec := h.do(http.MethodPost, "/v1/podcasts", "owner-1", `{"title":"Ep 1","sourceText":"Go channels","voiceId":"v1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	resp := decode[createResponse](t, rec)
	if resp.JobID == "" || resp.Message != "Podcast creation started" {
		t.Fatalf("unexpected response %+v", resp)
	}

	job, err := h.jobs.Get(context.Background(), resp.JobID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if job.Status != domain.JobStatusProcessing || job.Owner != "owner-1" {
		t.Fatalf("unexpected job %+v", job)
	}
	if job.Inputs.GenerateContent {
		t.Fatalf("generateContent should default to false")
	}
	if job.Inputs.Podcast == nil || job.Inputs.Podcast.Style != "conversational" {
		t.Fatalf("defaults not applied: %+v", job.Inputs.Podcast)
	}
	if h.app.Supervisor.InFlight() != 1 {
		t.Fatalf("in flight = %d, want the run still pending", h.app.Supervisor.InFlight())
	}
}

func TestCreateValidation(t *testing.T) {
	h := newHarness(t, 4)
	tests := []struct {
		name  string
		path  string
		owner string
		body  string
		want  int
	}{
		{name: "anonymous", path: "/v1/podcasts", body: `{"title":"a","sourceText":"b"}`, want: http.StatusUnauthorized},
		{name: "malformed json", path: "/v1/podcasts", owner: "o", body: `{`, want: http.StatusBadRequest},
		{name: "missing title", path: "/v1/podcasts", owner: "o", body: `{"sourceText":"b"}`, want: http.StatusBadRequest},
		{name: "missing source", path: "/v1/videos", owner: "o", body: `{"title":"a"}`, want: http.StatusBadRequest},
		{name: "voice settings out of range", path: "/v1/podcasts", owner: "o", body: `{"title":"a","sourceText":"b","stability":2}`, want: http.StatusBadRequest},
		{name: "bad thumbnail url", path: "/v1/videos", owner: "o", body: `{"title":"a","sourceContent":"b","thumbnailUrl":"ftp://x"}`, want: http.StatusBadRequest},
		{name: "video topic alias", path: "/v1/videos", owner: "o", body: `{"title":"a","sourceTextOrTopic":"b","generateContent":true}`, want: http.StatusCreated},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := h.do(http.MethodPost, tc.path, tc.owner, tc.body)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d body=%s", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestCreateRejectsWhenBusy(t *testing.T) {
	h := newHarness(t, 1)
	if rec := h.do(http.MethodPost, "/v1/podcasts", "o", `{"title":"a","sourceText":"b"}`); rec.Code != http.StatusCreated {
		t.Fatalf("first create = %d", rec.Code)
	}
	rec := h.do(http.MethodPost, "/v1/podcasts", "o", `{"title":"a","sourceText":"b"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("missing Retry-After")
	}
	jobs, _ := h.jobs.ListByOwner(context.Background(), "o", domain.JobKindPodcast, 10)
	if len(jobs) != 1 {
		t.Fatalf("rejected request left a record: %d jobs", len(jobs))
	}
}

func TestGetIsOwnerScoped(t *testing.T) {
	h := newHarness(t, 4)
	job := h.completedJob(t, "alice")

	if rec := h.do(http.MethodGet, "/v1/podcasts/"+job.ID, "alice", ""); rec.Code != http.StatusOK {
		t.Fatalf("owner get = %d", rec.Code)
	} else if view := decode[jobView](t, rec); view.Artifacts.AudioURL == "" || view.Status != domain.JobStatusCompleted {
		t.Fatalf("unexpected view %+v", view)
	}
	if rec := h.do(http.MethodGet, "/v1/podcasts/"+job.ID, "bob", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("foreign get = %d, want 404", rec.Code)
	}
	if rec := h.do(http.MethodGet, "/v1/videos/"+job.ID, "alice", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("wrong kind get = %d, want 404", rec.Code)
	}
}

// uuidColumnRepo fails lookups of malformed ids the way a uuid-typed column does.
type uuidColumnRepo struct {
	*repo.MemoryJobRepository
}

func (r uuidColumnRepo) GetForOwner(ctx context.Context, id, owner string) (*domain.Job, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errors.New(`ERROR: invalid input syntax for type uuid: "` + id + `" (SQLSTATE 22P02)`)
	}
	return r.MemoryJobRepository.GetForOwner(ctx, id, owner)
}

func TestMalformedIDIsNotFound(t *testing.T) {
	h := newHarness(t, 4)
	h.app.Jobs = uuidColumnRepo{h.jobs}
	h.completedJob(t, "alice")

	cases := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodGet, "/v1/podcasts/not-a-uuid", ""},
		{http.MethodDelete, "/v1/podcasts/not-a-uuid", ""},
		{http.MethodPatch, "/v1/podcasts/not-a-uuid/thumbnail", `{"thumbnailUrl":"https://img.test/a.png"}`},
		{http.MethodGet, "/v1/videos/not-a-uuid/archive", ""},
	}
	for _, tc := range cases {
		if rec := h.do(tc.method, tc.path, "alice", tc.body); rec.Code != http.StatusNotFound {
			t.Fatalf("%s %s = %d, want 404", tc.method, tc.path, rec.Code)
		}
	}
}

func TestListNewestFirst(t *testing.T) {
	h := newHarness(t, 8)
	for _, title := range []string{"one", "two"} {
		if rec := h.do(http.MethodPost, "/v1/videos", "o", `{"title":"`+title+`","sourceContent":"x"}`); rec.Code != http.StatusCreated {
			t.Fatalf("create = %d", rec.Code)
		}
		time.Sleep(2 * time.Millisecond)
	}
	h.do(http.MethodPost, "/v1/videos", "other", `{"title":"three","sourceContent":"x"}`)

	rec := h.do(http.MethodGet, "/v1/videos?limit=10", "o", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode[struct{ Items []jobView }](t, rec)
	if len(body.Items) != 2 || body.Items[0].Title != "two" {
		t.Fatalf("unexpected items %+v", body.Items)
	}
	if rec := h.do(http.MethodGet, "/v1/videos?limit=-1", "o", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad limit = %d", rec.Code)
	}
}

func TestUpdateThumbnail(t *testing.T) {
	h := newHarness(t, 4)
	job := h.completedJob(t, "alice")

	rec := h.do(http.MethodPatch, "/v1/podcasts/"+job.ID+"/thumbnail", "alice", `{"thumbnailUrl":"https://img.test/cover.png"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	stored, _ := h.jobs.Get(context.Background(), job.ID)
	if stored.DisplayThumbnailURL != "https://img.test/cover.png" {
		t.Fatalf("thumbnail not stored: %q", stored.DisplayThumbnailURL)
	}
	if rec := h.do(http.MethodPatch, "/v1/podcasts/"+job.ID+"/thumbnail", "alice", `{"thumbnailUrl":"not a url"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid url = %d", rec.Code)
	}
}

func TestDeleteRemovesObjectsThenRecord(t *testing.T) {
	h := newHarness(t, 4)
	job := h.completedJob(t, "alice")

	h.store.deleteErr = failure.New(failure.KindUpstream, "storage", "delete", "boom")
	if rec := h.do(http.MethodDelete, "/v1/podcasts/"+job.ID, "alice", ""); rec.Code != http.StatusBadGateway {
		t.Fatalf("failing storage delete = %d, want 502", rec.Code)
	}
	if _, err := h.jobs.Get(context.Background(), job.ID); err != nil {
		t.Fatalf("record removed despite storage failure: %v", err)
	}

	h.store.deleteErr = nil
	if rec := h.do(http.MethodDelete, "/v1/podcasts/"+job.ID, "bob", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("foreign delete = %d", rec.Code)
	}
	if rec := h.do(http.MethodDelete, "/v1/podcasts/"+job.ID, "alice", ""); rec.Code != http.StatusOK {
		t.Fatalf("delete = %d body=%s", rec.Code, rec.Body.String())
	}
	if len(h.store.deleted) != 1 || h.store.deleted[0] != job.Artifacts.Audio.ID {
		t.Fatalf("deleted objects = %v", h.store.deleted)
	}
	if _, err := h.jobs.Get(context.Background(), job.ID); err == nil {
		t.Fatalf("record still present")
	}
}

func TestArchive(t *testing.T) {
	h := newHarness(t, 4)
	job := h.completedJob(t, "alice")

	rec := h.do(http.MethodGet, "/v1/podcasts/"+job.ID+"/archive", "alice", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	if err != nil {
		t.Fatalf("zip: %v", err)
	}
	got := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		b, _ := io.ReadAll(rc)
		rc.Close()
		got[f.Name] = string(b)
	}
	if got["script.txt"] != "hello world" || got["audio.mp3"] != "mp3-bytes" {
		t.Fatalf("unexpected archive contents %v", got)
	}

	pending := h.do(http.MethodPost, "/v1/podcasts", "alice", `{"title":"a","sourceText":"b"}`)
	id := decode[createResponse](t, pending).JobID
	if rec := h.do(http.MethodGet, "/v1/podcasts/"+id+"/archive", "alice", ""); rec.Code != http.StatusConflict {
		t.Fatalf("archive of processing job = %d, want 409", rec.Code)
	}
}
