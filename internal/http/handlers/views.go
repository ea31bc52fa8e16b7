package handlers

import (
	"time"

	"mediastudio/internal/domain"
)

type artifactsView struct {
	Script       *string  `json:"script,omitempty"`
	AudioURL     string   `json:"audioUrl,omitempty"`
	Scenes       []string `json:"scenes,omitempty"`
	ThumbnailURL string   `json:"thumbnailUrl,omitempty"`
}

type jobView struct {
	ID           string           `json:"id"`
	Kind         domain.JobKind   `json:"kind"`
	Status       domain.JobStatus `json:"status"`
	Title        string           `json:"title"`
	Description  string           `json:"description,omitempty"`
	Tags         []string         `json:"tags,omitempty"`
	ThumbnailURL string           `json:"thumbnailUrl,omitempty"`
	Inputs       domain.Inputs    `json:"inputs"`
	Artifacts    artifactsView    `json:"artifacts"`
	Error        *domain.JobError `json:"error,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

func newJobView(job *domain.Job) jobView {
	view := jobView{
		ID:          job.ID,
		Kind:        job.Kind,
		Status:      job.Status,
		Title:       job.Inputs.Title,
		Description: job.Inputs.Description,
		Tags:        job.Inputs.Tags,
		Inputs:      job.Inputs,
		Error:       job.Error,
		CreatedAt:   job.CreatedAt,
		UpdatedAt:   job.UpdatedAt,
	}
	view.Artifacts.Script = job.Artifacts.Script
	if job.Artifacts.Audio != nil {
		view.Artifacts.AudioURL = job.Artifacts.Audio.URL
	}
	if job.Artifacts.Scenes != nil {
		view.Artifacts.Scenes = job.Artifacts.SceneURLs()
	}
	if job.Artifacts.Thumbnail != nil {
		view.Artifacts.ThumbnailURL = job.Artifacts.Thumbnail.URL
	}
	view.ThumbnailURL = job.DisplayThumbnailURL
	if view.ThumbnailURL == "" {
		view.ThumbnailURL = view.Artifacts.ThumbnailURL
	}
	return view
}
