package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SavedStatus is the publication state of a saved podcast. It is independent
// of JobStatus: saved podcasts never run through the pipeline.
type SavedStatus string

const (
	SavedStatusDraft     SavedStatus = "draft"
	SavedStatusPublished SavedStatus = "published"
)

// SavedFiles are the owner-uploaded objects of a saved podcast.
type SavedFiles struct {
	Audio           *StoredObject `json:"audio,omitempty"`
	BackgroundMusic *StoredObject `json:"backgroundMusic,omitempty"`
	Thumbnail       *StoredObject `json:"thumbnail,omitempty"`
}

// Objects lists the uploaded objects.
func (f SavedFiles) Objects() []StoredObject {
	var out []StoredObject
	for _, obj := range []*StoredObject{f.Audio, f.BackgroundMusic, f.Thumbnail} {
		if obj != nil {
			out = append(out, *obj)
		}
	}
	return out
}

// SavedPodcast is a podcast stored directly by its owner, with a script and
// optional files, skipping generation.
type SavedPodcast struct {
	ID          string
	Owner       string
	Title       string
	Description string
	Script      string
	Files       SavedFiles
	Status      SavedStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewSavedPodcast validates the text fields and returns a draft.
func NewSavedPodcast(owner, title, description, script string, now time.Time) (*SavedPodcast, error) {
	title = strings.TrimSpace(title)
	script = strings.TrimSpace(script)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if script == "" {
		return nil, fmt.Errorf("%w: script is required", ErrValidation)
	}
	now = now.UTC()
	return &SavedPodcast{
		ID:          uuid.NewString(),
		Owner:       owner,
		Title:       title,
		Description: strings.TrimSpace(description),
		Script:      script,
		Status:      SavedStatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Attach sets the uploaded files. A podcast with audio is published.
func (p *SavedPodcast) Attach(files SavedFiles) {
	p.Files = files
	if files.Audio != nil {
		p.Status = SavedStatusPublished
	} else {
		p.Status = SavedStatusDraft
	}
}

// Clone returns a deep copy.
func (p *SavedPodcast) Clone() *SavedPodcast {
	if p == nil {
		return nil
	}
	out := *p
	for _, obj := range []**StoredObject{&out.Files.Audio, &out.Files.BackgroundMusic, &out.Files.Thumbnail} {
		if *obj != nil {
			c := **obj
			*obj = &c
		}
	}
	return &out
}
