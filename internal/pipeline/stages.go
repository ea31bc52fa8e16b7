package pipeline

import (
	"context"
	"fmt"
	"strings"

	"mediastudio/internal/domain"
	"mediastudio/internal/providers/failure"
	"mediastudio/internal/providers/image"
	"mediastudio/internal/providers/prompt"
	"mediastudio/internal/providers/speech"
	"mediastudio/internal/providers/text"
	"mediastudio/internal/storage"
)

func (o *Orchestrator) generateScript(ctx context.Context, job *domain.Job) error {
	p := prompt.BuildScript(job.Kind, job.Inputs)
	script, err := o.text.Generate(ctx, text.Request{
		System:      p.System,
		Prompt:      p.Prompt,
		Temperature: p.Temperature,
		MaxTokens:   p.MaxTokens,
		Topic:       job.Inputs.Source,
	})
	if err != nil {
		return err
	}
	script = strings.TrimSpace(script)
	if script == "" {
		return failure.New(failure.KindUpstream, o.text.Name(), "generate", "empty script returned")
	}
	return job.SetScript(script, o.now())
}

func (o *Orchestrator) scriptOf(job *domain.Job) (string, error) {
	if job.Artifacts.Script == nil || strings.TrimSpace(*job.Artifacts.Script) == "" {
		return "", failure.New(failure.KindInvalidInput, "pipeline", "script", "script is empty")
	}
	return *job.Artifacts.Script, nil
}

func (o *Orchestrator) synthesizeAudio(ctx context.Context, job *domain.Job) error {
	script, err := o.scriptOf(job)
	if err != nil {
		return err
	}
	var voiceID string
	var opts speech.Options
	if p := job.Inputs.Podcast; p != nil {
		voiceID = p.VoiceID
		opts.Stability = p.Stability
		opts.SimilarityBoost = p.SimilarityBoost
	}
	audio, err := o.speech.Synthesize(ctx, script, voiceID, opts)
	if err != nil {
		return err
	}

	o.emit(job, StageAudio, 50, "uploading")
	obj, err := o.store.Upload(ctx, audio.Data, storage.Hint{
		Folder:      FolderAudio,
		Name:        job.Inputs.Title,
		ContentType: audio.MIME,
	})
	if err != nil {
		return err
	}
	return job.SetAudio(obj, o.now())
}

func (o *Orchestrator) renderScenes(ctx context.Context, job *domain.Job) error {
	script, err := o.scriptOf(job)
	if err != nil {
		return err
	}
	sections := prompt.SplitSections(script, o.limits.MaxScenes)
	if len(sections) == 0 {
		return failure.New(failure.KindInvalidInput, "pipeline", "scenes", "script has no sections")
	}
	style := ""
	if v := job.Inputs.Video; v != nil {
		style = v.Style
	}

	scenes := make([]domain.StoredObject, 0, len(sections))
	for i, section := range sections {
		img, err := o.images.Generate(ctx, image.Request{
			Prompt: prompt.BuildScene(section, style),
			Size:   o.limits.ImageSize,
		})
		if err != nil {
			return err
		}
		obj, err := o.store.Upload(ctx, img.Data, storage.Hint{
			Folder:      FolderScenes,
			Name:        fmt.Sprintf("%s scene %d", job.Inputs.Title, i+1),
			ContentType: img.MIME,
		})
		if err != nil {
			return err
		}
		scenes = append(scenes, obj)
		pct := float64(i+1) / float64(len(sections)) * 100
		o.emit(job, StageScenes, pct, fmt.Sprintf("scene %d of %d", i+1, len(sections)))
	}
	return job.SetScenes(scenes, o.now())
}

func (o *Orchestrator) renderThumbnail(ctx context.Context, job *domain.Job) error {
	if v := job.Inputs.Video; v != nil && v.ThumbnailURL != "" {
		return job.SetThumbnail(domain.StoredObject{URL: v.ThumbnailURL}, o.now())
	}
	img, err := o.images.Generate(ctx, image.Request{
		Prompt: prompt.BuildThumbnail(job.Inputs),
		Size:   o.limits.ImageSize,
	})
	if err != nil {
		return err
	}
	obj, err := o.store.Upload(ctx, img.Data, storage.Hint{
		Folder:      FolderThumbnails,
		Name:        job.Inputs.Title + " thumbnail",
		ContentType: img.MIME,
	})
	if err != nil {
		return err
	}
	return job.SetThumbnail(obj, o.now())
}
