package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"mediastudio/internal/adapter/repo"
	"mediastudio/internal/domain"
	"mediastudio/internal/progress"
	"mediastudio/internal/providers/failure"
	"mediastudio/internal/providers/image"
	"mediastudio/internal/providers/speech"
	"mediastudio/internal/providers/text"
	"mediastudio/internal/storage"
)

type recorder struct {
	mu   sync.Mutex
	msgs []progress.Message
}

func (r *recorder) Publish(owner string, msg progress.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recorder) forJob(id string) []progress.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []progress.Message
	for _, m := range r.msgs {
		if m.JobID() == id {
			out = append(out, m)
		}
	}
	return out
}

type fakeText struct {
	script string
	err    error
	calls  int
}

func (f *fakeText) Name() string { return "fake-text" }

func (f *fakeText) Generate(ctx context.Context, req text.Request) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.script, nil
}

type fakeImages struct {
	mu      sync.Mutex
	prompts []string
	err     error
}

func (f *fakeImages) Name() string { return "fake-image" }

func (f *fakeImages) Generate(ctx context.Context, req image.Request) (image.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, req.Prompt)
	if f.err != nil {
		return image.Result{}, f.err
	}
	return image.Result{Data: []byte("png"), MIME: "image/png"}, nil
}

type fakeSpeech struct {
	err    error
	block  bool
	hook   func()
	voices []string
}

func (f *fakeSpeech) Name() string { return "fake-speech" }

func (f *fakeSpeech) Synthesize(ctx context.Context, script, voiceID string, opts speech.Options) (speech.Result, error) {
	f.voices = append(f.voices, voiceID)
	if f.hook != nil {
		f.hook()
	}
	if f.block {
		<-ctx.Done()
		return speech.Result{}, failure.FromTransport("fake-speech", "synthesize", ctx.Err())
	}
	if f.err != nil {
		return speech.Result{}, f.err
	}
	return speech.Result{Data: []byte("mp3"), MIME: "audio/mpeg"}, nil
}

type fakeStore struct {
	mu      sync.Mutex
	uploads []storage.Hint
	deleted []string
}

func (s *fakeStore) Upload(ctx context.Context, data []byte, hint storage.Hint) (domain.StoredObject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads = append(s.uploads, hint)
	id := fmt.Sprintf("%s/obj-%d", hint.Folder, len(s.uploads))
	return domain.StoredObject{ID: id, URL: "https://cdn.test/" + id}, nil
}

func (s *fakeStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *fakeStore) Open(ctx context.Context, obj domain.StoredObject) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(obj.ID)), nil
}

type harness struct {
	repo   *repo.MemoryJobRepository
	hub    *recorder
	text   *fakeText
	images *fakeImages
	speech *fakeSpeech
	store  *fakeStore
	orch   *Orchestrator
}

func newHarness(t *testing.T, limits Limits) *harness {
	t.Helper()
	h := &harness{
		repo:   repo.NewMemoryJobRepository(),
		hub:    &recorder{},
		text:   &fakeText{script: "Intro paragraph.\n\nMain paragraph."},
		images: &fakeImages{},
		speech: &fakeSpeech{},
		store:  &fakeStore{},
	}
	h.orch = NewOrchestrator(Deps{
		Repo:   h.repo,
		Hub:    h.hub,
		Text:   h.text,
		Images: h.images,
		Speech: h.speech,
		Store:  h.store,
		Logger: zerolog.Nop(),
		Limits: limits,
	})
	return h
}

func (h *harness) create(t *testing.T, owner string, kind domain.JobKind, in domain.Inputs) *domain.Job {
	t.Helper()
	if err := in.Validate(kind, 30); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	job := domain.NewJob(owner, kind, in, time.Now())
	if err := h.repo.Create(context.Background(), job); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return job
}

func (h *harness) stored(t *testing.T, id string) *domain.Job {
	t.Helper()
	job, err := h.repo.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	return job
}

type step struct {
	stage string
	pct   float64
}

func steps(msgs []progress.Message) []step {
	out := make([]step, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, step{m.Stage, m.Progress})
	}
	return out
}

func assertSteps(t *testing.T, msgs []progress.Message, want []step) {
	t.Helper()
	got := steps(msgs)
	if len(got) != len(want) {
		t.Fatalf("messages = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("message %d = %v, want %v (all: %v)", i, got[i], want[i], got)
		}
	}
}

// assertSequential checks progress never decreases within a stage and that a
// stage never reappears once the next one started.
func assertSequential(t *testing.T, msgs []progress.Message) {
	t.Helper()
	seen := map[string]bool{}
	current := ""
	last := -1.0
	for _, m := range msgs {
		if m.Stage != current {
			if seen[m.Stage] {
				t.Fatalf("stage %s resumed after another stage: %v", m.Stage, steps(msgs))
			}
			seen[m.Stage] = true
			current = m.Stage
			last = -1
		}
		if m.Progress < last {
			t.Fatalf("progress decreased in %s: %v", m.Stage, steps(msgs))
		}
		last = m.Progress
	}
}

func TestPodcastWithSuppliedScript(t *testing.T) {
	h := newHarness(t, Limits{})
	job := h.create(t, "owner-1", domain.JobKindPodcast, domain.Inputs{
		Title:   "Greeting",
		Source:  "Hello world",
		Podcast: &domain.PodcastOptions{VoiceID: "voice-9"},
	})

	if err := h.orch.Run(context.Background(), job); err != nil {
		t.Fatalf("Run: %v", err)
	}

	msgs := h.hub.forJob(job.ID)
	assertSteps(t, msgs, []step{{StageAudio, 0}, {StageAudio, 50}, {progress.StageComplete, 100}})
	if msgs[1].Message != "uploading" {
		t.Fatalf("upload marker message = %q", msgs[1].Message)
	}
	if h.text.calls != 0 {
		t.Fatalf("text generator called %d times", h.text.calls)
	}
	if len(h.speech.voices) != 1 || h.speech.voices[0] != "voice-9" {
		t.Fatalf("voices = %v", h.speech.voices)
	}

	got := h.stored(t, job.ID)
	if got.Status != domain.JobStatusCompleted {
		t.Fatalf("status = %s", got.Status)
	}
	if got.Artifacts.Audio == nil || got.Artifacts.Audio.URL == "" {
		t.Fatalf("audio url missing: %+v", got.Artifacts)
	}
	if got.Artifacts.Script == nil || *got.Artifacts.Script != "Hello world" {
		t.Fatalf("script = %v", got.Artifacts.Script)
	}
	if !got.Artifacts.Complete(domain.JobKindPodcast) {
		t.Fatalf("artifacts incomplete: %+v", got.Artifacts)
	}
	if h.store.uploads[0].Folder != FolderAudio {
		t.Fatalf("upload folder = %q", h.store.uploads[0].Folder)
	}

	artifacts := msgs[2].Payload["artifacts"].(map[string]any)
	if artifacts["audioUrl"] != got.Artifacts.Audio.URL {
		t.Fatalf("complete payload audioUrl = %v", artifacts["audioUrl"])
	}
	if msgs[2].Payload["title"] != "Greeting" || msgs[2].Payload["status"] != "completed" {
		t.Fatalf("complete payload = %v", msgs[2].Payload)
	}
}

func TestVideoWithGeneratedScript(t *testing.T) {
	h := newHarness(t, Limits{MaxScenes: 5})
	job := h.create(t, "owner-1", domain.JobKindVideo, domain.Inputs{
		Title:           "Oceans",
		Source:          "deep sea life",
		GenerateContent: true,
		Video:           &domain.VideoOptions{},
	})

	if err := h.orch.Run(context.Background(), job); err != nil {
		t.Fatalf("Run: %v", err)
	}

	msgs := h.hub.forJob(job.ID)
	assertSteps(t, msgs, []step{
		{StageScript, 0}, {StageScript, 100},
		{StageScenes, 0}, {StageScenes, 50}, {StageScenes, 100},
		{StageThumbnail, 0},
		{progress.StageComplete, 100},
	})
	assertSequential(t, msgs)

	scenes := msgs[len(msgs)-1].Payload["artifacts"].(map[string]any)["scenes"].([]string)
	if len(scenes) != 2 {
		t.Fatalf("scene urls = %v", scenes)
	}

	got := h.stored(t, job.ID)
	if got.Status != domain.JobStatusCompleted || len(got.Artifacts.Scenes) != 2 {
		t.Fatalf("stored job = %+v", got)
	}
	if got.Artifacts.Thumbnail == nil || got.Artifacts.Thumbnail.URL == "" {
		t.Fatalf("thumbnail missing")
	}
	if len(h.images.prompts) != 3 {
		t.Fatalf("image calls = %d, want 2 scenes + thumbnail", len(h.images.prompts))
	}
}

func TestVideoScenesCappedAndThumbnailSupplied(t *testing.T) {
	h := newHarness(t, Limits{MaxScenes: 2})
	job := h.create(t, "owner-1", domain.JobKindVideo, domain.Inputs{
		Title:  "Steps",
		Source: "one\n\ntwo\n\nthree\n\nfour",
		Video:  &domain.VideoOptions{ThumbnailURL: "https://img.test/cover.png"},
	})

	if err := h.orch.Run(context.Background(), job); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := h.stored(t, job.ID)
	if len(got.Artifacts.Scenes) != 2 {
		t.Fatalf("scenes = %d, want cap of 2", len(got.Artifacts.Scenes))
	}
	if got.Artifacts.Thumbnail.URL != "https://img.test/cover.png" || got.Artifacts.Thumbnail.ID != "" {
		t.Fatalf("thumbnail = %+v", got.Artifacts.Thumbnail)
	}
	if len(h.images.prompts) != 2 {
		t.Fatalf("image calls = %d, want scenes only", len(h.images.prompts))
	}
	for _, m := range h.hub.forJob(job.ID) {
		if m.Stage == StageScript {
			t.Fatalf("script stage ran without generateContent")
		}
	}
}

func TestSpeechUnauthorizedFailsAudioStage(t *testing.T) {
	h := newHarness(t, Limits{})
	cause := failure.New(failure.KindUnauthorized, "elevenlabs", "synthesize", "xi-api-key rejected for workspace 42")
	h.speech.err = cause
	job := h.create(t, "owner-1", domain.JobKindPodcast, domain.Inputs{
		Title:  "Greeting",
		Source: "Hello world",
	})

	err := h.orch.Run(context.Background(), job)
	if !errors.Is(err, failure.ErrUnauthorized) {
		t.Fatalf("Run err = %v, want unauthorized", err)
	}

	got := h.stored(t, job.ID)
	if got.Status != domain.JobStatusFailed || got.Error == nil || got.Error.Stage != StageAudio {
		t.Fatalf("stored job = %+v", got)
	}
	if got.Artifacts.Audio != nil {
		t.Fatalf("audio written on failure: %+v", got.Artifacts.Audio)
	}
	if len(h.store.uploads) != 0 {
		t.Fatalf("uploads after failure: %v", h.store.uploads)
	}

	msgs := h.hub.forJob(job.ID)
	last := msgs[len(msgs)-1]
	if last.Stage != progress.StageError || !strings.Contains(last.Message, "xi-api-key rejected for workspace 42") {
		t.Fatalf("terminal message = %+v", last)
	}
	if last.Payload["stage"] != StageAudio || last.Payload["errorKind"] != string(failure.KindUnauthorized) {
		t.Fatalf("error payload = %v", last.Payload)
	}
	for _, m := range msgs[:len(msgs)-1] {
		if m.Terminal() {
			t.Fatalf("more than one terminal message: %v", steps(msgs))
		}
	}
}

func TestFailureStopsLaterStages(t *testing.T) {
	h := newHarness(t, Limits{})
	h.images.err = failure.New(failure.KindRateLimited, "fake-image", "generate", "")
	job := h.create(t, "owner-1", domain.JobKindVideo, domain.Inputs{
		Title:           "Oceans",
		Source:          "deep sea life",
		GenerateContent: true,
		Video:           &domain.VideoOptions{},
	})

	if err := h.orch.Run(context.Background(), job); !errors.Is(err, failure.ErrRateLimited) {
		t.Fatalf("Run err = %v", err)
	}
	got := h.stored(t, job.ID)
	if got.Error == nil || got.Error.Stage != StageScenes {
		t.Fatalf("error = %+v", got.Error)
	}
	if got.Artifacts.Script == nil {
		t.Fatalf("script from the earlier stage was lost")
	}
	if got.Artifacts.Has(domain.ArtifactScenes) || got.Artifacts.Has(domain.ArtifactThumbnail) {
		t.Fatalf("later artifacts written: %+v", got.Artifacts)
	}
	for _, m := range h.hub.forJob(job.ID) {
		if m.Stage == StageThumbnail {
			t.Fatalf("thumbnail stage ran after failure")
		}
	}
}

func TestEmptyGeneratedScriptFails(t *testing.T) {
	h := newHarness(t, Limits{})
	h.text.script = "   "
	job := h.create(t, "owner-1", domain.JobKindPodcast, domain.Inputs{Title: "T", Source: "topic", GenerateContent: true})

	if err := h.orch.Run(context.Background(), job); !errors.Is(err, failure.ErrUpstream) {
		t.Fatalf("Run err = %v, want upstream", err)
	}
	if got := h.stored(t, job.ID); got.Error == nil || got.Error.Stage != StageScript {
		t.Fatalf("stored = %+v", got)
	}
}

func TestStageTimeout(t *testing.T) {
	h := newHarness(t, Limits{StageTimeout: 20 * time.Millisecond})
	h.speech.block = true
	job := h.create(t, "owner-1", domain.JobKindPodcast, domain.Inputs{Title: "T", Source: "Hello"})

	err := h.orch.Run(context.Background(), job)
	if !errors.Is(err, failure.ErrUpstream) {
		t.Fatalf("Run err = %v, want upstream", err)
	}
	got := h.stored(t, job.ID)
	if got.Status != domain.JobStatusFailed || !strings.Contains(got.Error.Message, "stage timed out") {
		t.Fatalf("stored = %+v", got.Error)
	}
}

type failingSaves struct {
	*repo.MemoryJobRepository
}

func (f failingSaves) SaveArtifacts(ctx context.Context, job *domain.Job) error {
	return errors.New("connection reset")
}

type failingCompletion struct {
	*repo.MemoryJobRepository
}

func (f failingCompletion) MarkCompleted(ctx context.Context, job *domain.Job) error {
	return errors.New("connection reset")
}

func TestCompletionWriteFailureNamesCompleteStage(t *testing.T) {
	h := newHarness(t, Limits{})
	h.orch.repo = failingCompletion{h.repo}
	job := h.create(t, "owner-1", domain.JobKindVideo, domain.Inputs{
		Title:  "Rivers",
		Source: "First section.\n\nSecond section.",
		Video:  &domain.VideoOptions{},
	})

	err := h.orch.Run(context.Background(), job)
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("Run err = %v, want persistence failure", err)
	}
	got := h.stored(t, job.ID)
	if got.Status != domain.JobStatusFailed || got.Error == nil || got.Error.Stage != StageComplete {
		t.Fatalf("stored = %+v", got)
	}
	if got.Error.Message != "Could not save job progress." {
		t.Fatalf("error message = %q", got.Error.Message)
	}
	if got.Artifacts.Thumbnail == nil || len(got.Artifacts.Scenes) != 2 {
		t.Fatalf("uploaded objects missing from failed record: %+v", got.Artifacts)
	}
	msgs := h.hub.forJob(job.ID)
	last := msgs[len(msgs)-1]
	if last.Stage != progress.StageError || last.Payload["stage"] != StageComplete {
		t.Fatalf("terminal = %+v", last)
	}
	for _, m := range msgs[:len(msgs)-1] {
		if m.Terminal() {
			t.Fatalf("more than one terminal message: %v", steps(msgs))
		}
	}
}

func TestPersistenceFailureFailsRun(t *testing.T) {
	h := newHarness(t, Limits{})
	h.orch.repo = failingSaves{h.repo}
	job := h.create(t, "owner-1", domain.JobKindPodcast, domain.Inputs{Title: "T", Source: "topic", GenerateContent: true})

	err := h.orch.Run(context.Background(), job)
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("Run err = %v, want persistence failure", err)
	}
	got := h.stored(t, job.ID)
	if got.Status != domain.JobStatusFailed || got.Error.Stage != StageScript {
		t.Fatalf("stored = %+v", got)
	}
	msgs := h.hub.forJob(job.ID)
	if last := msgs[len(msgs)-1]; last.Stage != progress.StageError || last.Payload["errorKind"] != string(failure.KindUnknown) {
		t.Fatalf("terminal = %+v", last)
	}
}

func TestPanicInStageIsRecorded(t *testing.T) {
	h := newHarness(t, Limits{})
	h.speech.hook = func() { panic("decoder exploded") }
	job := h.create(t, "owner-1", domain.JobKindPodcast, domain.Inputs{Title: "T", Source: "Hello"})

	err := h.orch.Run(context.Background(), job)
	if err == nil || !strings.Contains(err.Error(), "decoder exploded") {
		t.Fatalf("Run err = %v", err)
	}
	got := h.stored(t, job.ID)
	if got.Status != domain.JobStatusFailed || got.Error.Stage != StageAudio {
		t.Fatalf("stored = %+v", got)
	}
}

func TestDeletedMidRunStaysDeleted(t *testing.T) {
	h := newHarness(t, Limits{})
	job := h.create(t, "owner-1", domain.JobKindPodcast, domain.Inputs{Title: "T", Source: "Hello"})
	h.speech.hook = func() {
		if err := h.repo.Delete(context.Background(), job.ID, "owner-1"); err != nil {
			t.Errorf("Delete: %v", err)
		}
	}

	if err := h.orch.Run(context.Background(), job); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Run err = %v, want not found", err)
	}
	if _, err := h.repo.Get(context.Background(), job.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("record resurrected: %v", err)
	}
	msgs := h.hub.forJob(job.ID)
	if last := msgs[len(msgs)-1]; last.Stage != progress.StageError {
		t.Fatalf("terminal = %+v", last)
	}
}

func TestTerminalJobIsNotRerun(t *testing.T) {
	h := newHarness(t, Limits{})
	job := h.create(t, "owner-1", domain.JobKindPodcast, domain.Inputs{Title: "T", Source: "Hello"})
	if err := h.orch.Run(context.Background(), job); err != nil {
		t.Fatalf("Run: %v", err)
	}
	before := len(h.hub.forJob(job.ID))

	again := h.stored(t, job.ID)
	if err := h.orch.Run(context.Background(), again); err == nil {
		t.Fatalf("second run succeeded")
	}
	got := h.stored(t, job.ID)
	if got.Status != domain.JobStatusCompleted || got.Error != nil {
		t.Fatalf("terminal record mutated: %+v", got)
	}
	for _, m := range h.hub.forJob(job.ID)[before:] {
		if m.Terminal() {
			t.Fatalf("second terminal message published: %+v", m)
		}
	}
}
