// Package pipeline runs the generation stages of a job and reports progress.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mediastudio/internal/domain"
	"mediastudio/internal/infra"
	"mediastudio/internal/progress"
	"mediastudio/internal/providers/failure"
	"mediastudio/internal/providers/image"
	"mediastudio/internal/providers/speech"
	"mediastudio/internal/providers/text"
	"mediastudio/internal/storage"
)

const (
	StageScript    = "script"
	StageAudio     = "audio"
	StageScenes    = "scenes"
	StageThumbnail = "thumbnail"
	// StageComplete names failures of the final record write, after every
	// generation stage has produced its artifact.
	StageComplete = "complete"

	FolderAudio      = "podcasts/audio"
	FolderScenes     = "videos/scenes"
	FolderThumbnails = "videos/thumbnails"
)

// ErrPersistence marks a failed job record write. It aborts the run like an
// adapter failure does.
var ErrPersistence = errors.New("persistence failure")

// Publisher is the part of the progress hub the orchestrator needs.
type Publisher interface {
	Publish(owner string, msg progress.Message)
}

// Limits bound the cost of one run.
type Limits struct {
	MaxScenes    int
	StageTimeout time.Duration
	ImageSize    string
}

// Deps are the collaborators of an Orchestrator. All fields are required
// except Now, which defaults to time.Now.
type Deps struct {
	Repo   domain.JobRepository
	Hub    Publisher
	Text   text.Generator
	Images image.Generator
	Speech speech.Synthesizer
	Store  storage.Store
	Logger infra.Logger
	Limits Limits
	Now    func() time.Time
}

// Orchestrator drives one job through its kind's fixed stage list and
// guarantees a single terminal outcome per run.
type Orchestrator struct {
	repo   domain.JobRepository
	hub    Publisher
	text   text.Generator
	images image.Generator
	speech speech.Synthesizer
	store  storage.Store
	logger infra.Logger
	limits Limits
	now    func() time.Time
}

func NewOrchestrator(d Deps) *Orchestrator {
	limits := d.Limits
	if limits.MaxScenes <= 0 {
		limits.MaxScenes = 5
	}
	if strings.TrimSpace(limits.ImageSize) == "" {
		limits.ImageSize = image.DefaultSize
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		repo:   d.Repo,
		hub:    d.Hub,
		text:   d.Text,
		images: d.Images,
		speech: d.Speech,
		store:  d.Store,
		logger: d.Logger,
		limits: limits,
		now:    now,
	}
}

type stage struct {
	name string
	run  func(ctx context.Context, job *domain.Job) error
	// reportsDone is set when the stage publishes its own 100.
	reportsDone bool
}

func (o *Orchestrator) stagesFor(job *domain.Job) ([]stage, error) {
	var stages []stage
	if job.Inputs.GenerateContent {
		stages = append(stages, stage{name: StageScript, run: o.generateScript})
	}
	switch job.Kind {
	case domain.JobKindPodcast:
		stages = append(stages, stage{name: StageAudio, run: o.synthesizeAudio})
	case domain.JobKindVideo:
		stages = append(stages,
			stage{name: StageScenes, run: o.renderScenes, reportsDone: true},
			stage{name: StageThumbnail, run: o.renderThumbnail},
		)
	default:
		return nil, fmt.Errorf("%w: unsupported job kind %q", domain.ErrValidation, job.Kind)
	}
	return stages, nil
}

// Run executes every stage of job in order. The returned error is the cause
// of failure; it has already been recorded on the job and published.
func (o *Orchestrator) Run(ctx context.Context, job *domain.Job) (err error) {
	if job.Status.IsTerminal() {
		return fmt.Errorf("%w: job %s is %s", domain.ErrTerminal, job.ID, job.Status)
	}
	current := "setup"
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s stage: %v", current, r)
			o.fail(ctx, job, current, err)
		}
	}()

	log := o.logger.With().Str("job_id", job.ID).Str("kind", string(job.Kind)).Str("owner", job.Owner).Logger()
	log.Info().Msg("pipeline: run started")
	start := o.now()

	stages, err := o.stagesFor(job)
	if err != nil {
		o.fail(ctx, job, current, err)
		return err
	}
	if !job.Inputs.GenerateContent && !job.Artifacts.Has(domain.ArtifactScript) {
		if err := job.SetScript(job.Inputs.Source, o.now()); err != nil {
			o.fail(ctx, job, current, err)
			return err
		}
	}

	for i, st := range stages {
		current = st.name
		final := i == len(stages)-1
		if err := o.runStage(ctx, job, st, final); err != nil {
			o.fail(ctx, job, st.name, err)
			log.Error().Err(err).Str("stage", st.name).Str("error_kind", string(failure.KindOf(err))).Msg("pipeline: run failed")
			return err
		}
	}

	current = StageComplete
	if err := o.complete(ctx, job); err != nil {
		o.fail(ctx, job, StageComplete, err)
		log.Error().Err(err).Msg("pipeline: completion failed")
		return err
	}
	log.Info().Dur("duration", o.now().Sub(start)).Msg("pipeline: run completed")
	return nil
}

func (o *Orchestrator) runStage(ctx context.Context, job *domain.Job, st stage, final bool) error {
	o.emit(job, st.name, 0, "started")

	stageCtx := ctx
	cancel := func() {}
	if o.limits.StageTimeout > 0 {
		stageCtx, cancel = context.WithTimeout(ctx, o.limits.StageTimeout)
	}
	err := st.run(stageCtx, job)
	timedOut := errors.Is(stageCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil
	cancel()
	if err != nil {
		if timedOut {
			return &failure.Error{Kind: failure.KindUpstream, Service: "pipeline", Op: st.name, Message: "stage timed out", Err: err}
		}
		return err
	}
	if final {
		return nil
	}
	if err := o.repo.SaveArtifacts(ctx, job); err != nil {
		return fmt.Errorf("%w: save %s: %w", ErrPersistence, st.name, err)
	}
	if !st.reportsDone {
		o.emit(job, st.name, 100, "done")
	}
	return nil
}

func (o *Orchestrator) complete(ctx context.Context, job *domain.Job) error {
	done := job.Clone()
	if err := done.Complete(o.now()); err != nil {
		return err
	}
	if err := o.repo.MarkCompleted(ctx, done); err != nil {
		return fmt.Errorf("%w: mark completed: %w", ErrPersistence, err)
	}
	*job = *done
	o.hub.Publish(job.Owner, progress.Complete(completionPayload(job)))
	return nil
}

// fail records the failure and publishes the terminal error. Writes use a
// context detached from cancellation so drained runs still reach a terminal state.
func (o *Orchestrator) fail(ctx context.Context, job *domain.Job, stageName string, cause error) {
	message := failure.UserMessage(cause)
	if errors.Is(cause, ErrPersistence) {
		message = "Could not save job progress."
	}
	if err := job.Fail(stageName, message, o.now()); err != nil {
		o.logger.Warn().Err(err).Str("job_id", job.ID).Msg("pipeline: job already terminal")
		return
	}
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := o.repo.MarkFailed(writeCtx, job); err != nil {
		o.logger.Error().Err(err).Str("job_id", job.ID).Str("stage", stageName).Msg("pipeline: mark failed")
	}
	payload := o.basePayload(job)
	payload["status"] = string(domain.JobStatusFailed)
	payload["stage"] = stageName
	payload["message"] = message
	payload["errorKind"] = string(failure.KindOf(cause))
	o.hub.Publish(job.Owner, progress.Error(message, payload))
}

func (o *Orchestrator) emit(job *domain.Job, stageName string, pct float64, message string) {
	o.hub.Publish(job.Owner, progress.Stage(stageName, pct, message, o.basePayload(job)))
}

func (o *Orchestrator) basePayload(job *domain.Job) map[string]any {
	return map[string]any{"jobId": job.ID, "kind": string(job.Kind)}
}

func completionPayload(job *domain.Job) map[string]any {
	artifacts := map[string]any{}
	if job.Artifacts.Script != nil {
		artifacts["script"] = *job.Artifacts.Script
	}
	if job.Artifacts.Audio != nil {
		artifacts["audioUrl"] = job.Artifacts.Audio.URL
	}
	if job.Artifacts.Scenes != nil {
		artifacts["scenes"] = job.Artifacts.SceneURLs()
	}
	if job.Artifacts.Thumbnail != nil {
		artifacts["thumbnailUrl"] = job.Artifacts.Thumbnail.URL
	}
	return map[string]any{
		"jobId":     job.ID,
		"title":     job.Inputs.Title,
		"kind":      string(job.Kind),
		"status":    string(domain.JobStatusCompleted),
		"artifacts": artifacts,
	}
}
