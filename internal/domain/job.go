package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// JobKind discriminates the generation pipeline a job runs through.
type JobKind string

const (
	JobKindPodcast JobKind = "podcast"
	JobKindVideo   JobKind = "video"
)

// ParseJobKind validates a kind coming from storage or a route.
func ParseJobKind(raw string) (JobKind, error) {
	switch JobKind(strings.ToLower(strings.TrimSpace(raw))) {
	case JobKindPodcast:
		return JobKindPodcast, nil
	case JobKindVideo:
		return JobKindVideo, nil
	default:
		return "", fmt.Errorf("%w: unknown job kind %q", ErrValidation, raw)
	}
}

// JobStatus enumerates job lifecycle states. Completed and failed are terminal.
type JobStatus string

const (
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether no further mutation may happen in this state.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// PodcastOptions carries the speech settings of a podcast request.
type PodcastOptions struct {
	VoiceID         string  `json:"voiceId,omitempty"`
	Style           string  `json:"style,omitempty"`
	LengthMinutes   int     `json:"lengthMinutes,omitempty"`
	Stability       float64 `json:"stability,omitempty"`
	SimilarityBoost float64 `json:"similarityBoost,omitempty"`
}

// VideoOptions carries the visual settings of a video request.
type VideoOptions struct {
	Style           string         `json:"style,omitempty"`
	LengthMinutes   int            `json:"lengthMinutes,omitempty"`
	ThumbnailURL    string         `json:"thumbnailUrl,omitempty"`
	Avatar          map[string]any `json:"avatarSettings,omitempty"`
	BackgroundMusic string         `json:"backgroundMusic,omitempty"`
}

// Inputs is the original request payload. It is never modified after creation.
type Inputs struct {
	Title           string          `json:"title"`
	Description     string          `json:"description,omitempty"`
	Source          string          `json:"source"`
	GenerateContent bool            `json:"generateContent"`
	Locale          string          `json:"locale,omitempty"`
	Tags            []string        `json:"tags,omitempty"`
	Podcast         *PodcastOptions `json:"podcast,omitempty"`
	Video           *VideoOptions   `json:"video,omitempty"`
}

// Validate checks the request for the given kind and normalizes option defaults.
func (in *Inputs) Validate(kind JobKind, maxLengthMinutes int) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Source = strings.TrimSpace(in.Source)
	if in.Title == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if in.Source == "" {
		return fmt.Errorf("%w: source text or topic is required", ErrValidation)
	}
	if maxLengthMinutes <= 0 {
		maxLengthMinutes = 10
	}
	switch kind {
	case JobKindPodcast:
		if in.Video != nil {
			return fmt.Errorf("%w: video options on a podcast request", ErrValidation)
		}
		if in.Podcast == nil {
			in.Podcast = &PodcastOptions{}
		}
		if in.Podcast.Style == "" {
			in.Podcast.Style = "conversational"
		}
		in.Podcast.LengthMinutes = clampLength(in.Podcast.LengthMinutes, maxLengthMinutes)
		if in.Podcast.Stability < 0 || in.Podcast.Stability > 1 || in.Podcast.SimilarityBoost < 0 || in.Podcast.SimilarityBoost > 1 {
			return fmt.Errorf("%w: voice settings must be between 0 and 1", ErrValidation)
		}
	case JobKindVideo:
		if in.Podcast != nil {
			return fmt.Errorf("%w: podcast options on a video request", ErrValidation)
		}
		if in.Video == nil {
			in.Video = &VideoOptions{}
		}
		if in.Video.Style == "" {
			in.Video.Style = "educational"
		}
		in.Video.LengthMinutes = clampLength(in.Video.LengthMinutes, maxLengthMinutes)
		in.Video.ThumbnailURL = strings.TrimSpace(in.Video.ThumbnailURL)
	default:
		return fmt.Errorf("%w: unknown job kind %q", ErrValidation, kind)
	}
	return nil
}

func clampLength(minutes, max int) int {
	if minutes <= 0 {
		minutes = 5
	}
	if minutes > max {
		minutes = max
	}
	return minutes
}

// StoredObject references an object held by the storage service. ID is the
// storage-assigned opaque identifier used for deletion.
type StoredObject struct {
	ID  string `json:"id,omitempty"`
	URL string `json:"url"`
}

// Artifacts holds what the pipeline stages produced. Each key is written at most once.
type Artifacts struct {
	Script    *string        `json:"script,omitempty"`
	Audio     *StoredObject  `json:"audio,omitempty"`
	Scenes    []StoredObject `json:"scenes,omitempty"`
	Thumbnail *StoredObject  `json:"thumbnail,omitempty"`
}

// ArtifactKey names one artifact slot.
type ArtifactKey string

const (
	ArtifactScript    ArtifactKey = "script"
	ArtifactAudio     ArtifactKey = "audio"
	ArtifactScenes    ArtifactKey = "scenes"
	ArtifactThumbnail ArtifactKey = "thumbnail"
)

// ExpectedArtifacts lists the keys a completed job of the given kind carries.
func ExpectedArtifacts(kind JobKind) []ArtifactKey {
	switch kind {
	case JobKindPodcast:
		return []ArtifactKey{ArtifactScript, ArtifactAudio}
	case JobKindVideo:
		return []ArtifactKey{ArtifactScript, ArtifactScenes, ArtifactThumbnail}
	default:
		return nil
	}
}

// Has reports whether the key has been written.
func (a Artifacts) Has(key ArtifactKey) bool {
	switch key {
	case ArtifactScript:
		return a.Script != nil
	case ArtifactAudio:
		return a.Audio != nil && a.Audio.URL != ""
	case ArtifactScenes:
		return a.Scenes != nil
	case ArtifactThumbnail:
		return a.Thumbnail != nil && a.Thumbnail.URL != ""
	default:
		return false
	}
}

// Complete reports whether every artifact expected for the kind is present.
func (a Artifacts) Complete(kind JobKind) bool {
	expected := ExpectedArtifacts(kind)
	if len(expected) == 0 {
		return false
	}
	for _, key := range expected {
		if !a.Has(key) {
			return false
		}
	}
	return true
}

// Objects returns every stored object referenced by the artifacts.
func (a Artifacts) Objects() []StoredObject {
	var out []StoredObject
	if a.Audio != nil {
		out = append(out, *a.Audio)
	}
	out = append(out, a.Scenes...)
	if a.Thumbnail != nil {
		out = append(out, *a.Thumbnail)
	}
	return out
}

// WithoutStoredObjects drops references to objects held in storage. The
// script and externally hosted URLs are kept.
func (a Artifacts) WithoutStoredObjects() Artifacts {
	out := Artifacts{Script: a.Script}
	if a.Audio != nil && a.Audio.ID == "" {
		audio := *a.Audio
		out.Audio = &audio
	}
	for _, scene := range a.Scenes {
		if scene.ID == "" {
			out.Scenes = append(out.Scenes, scene)
		}
	}
	if a.Thumbnail != nil && a.Thumbnail.ID == "" {
		thumb := *a.Thumbnail
		out.Thumbnail = &thumb
	}
	return out
}

// SceneURLs flattens the scene list to URLs.
func (a Artifacts) SceneURLs() []string {
	urls := make([]string, 0, len(a.Scenes))
	for _, scene := range a.Scenes {
		urls = append(urls, scene.URL)
	}
	return urls
}

// JobError records where and why a job failed.
type JobError struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// Job is the persisted record of one generation request.
type Job struct {
	ID                  string
	Owner               string
	Kind                JobKind
	Status              JobStatus
	Inputs              Inputs
	Artifacts           Artifacts
	Error               *JobError
	DisplayThumbnailURL string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// NewJob creates a processing job with empty artifacts.
func NewJob(owner string, kind JobKind, inputs Inputs, now time.Time) *Job {
	now = now.UTC()
	return &Job{
		ID:        uuid.NewString(),
		Owner:     owner,
		Kind:      kind,
		Status:    JobStatusProcessing,
		Inputs:    inputs,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (j *Job) guardWrite(key ArtifactKey) error {
	if j.Status != JobStatusProcessing {
		return fmt.Errorf("%w: job %s is %s", ErrTerminal, j.ID, j.Status)
	}
	if j.Artifacts.Has(key) {
		return fmt.Errorf("%w: %s on job %s", ErrArtifactWritten, key, j.ID)
	}
	return nil
}

// SetScript records the script artifact.
func (j *Job) SetScript(script string, now time.Time) error {
	if err := j.guardWrite(ArtifactScript); err != nil {
		return err
	}
	j.Artifacts.Script = &script
	j.UpdatedAt = now.UTC()
	return nil
}

// SetAudio records the uploaded audio artifact.
func (j *Job) SetAudio(obj StoredObject, now time.Time) error {
	if err := j.guardWrite(ArtifactAudio); err != nil {
		return err
	}
	j.Artifacts.Audio = &obj
	j.UpdatedAt = now.UTC()
	return nil
}

// SetScenes records the uploaded scene list.
func (j *Job) SetScenes(scenes []StoredObject, now time.Time) error {
	if err := j.guardWrite(ArtifactScenes); err != nil {
		return err
	}
	j.Artifacts.Scenes = append(make([]StoredObject, 0, len(scenes)), scenes...)
	j.UpdatedAt = now.UTC()
	return nil
}

// SetThumbnail records the thumbnail artifact.
func (j *Job) SetThumbnail(obj StoredObject, now time.Time) error {
	if err := j.guardWrite(ArtifactThumbnail); err != nil {
		return err
	}
	j.Artifacts.Thumbnail = &obj
	j.UpdatedAt = now.UTC()
	return nil
}

// Complete moves the job to the completed state.
func (j *Job) Complete(now time.Time) error {
	if j.Status != JobStatusProcessing {
		return fmt.Errorf("%w: job %s is %s", ErrTerminal, j.ID, j.Status)
	}
	j.Status = JobStatusCompleted
	j.UpdatedAt = now.UTC()
	return nil
}

// Fail moves the job to the failed state with the failing stage.
func (j *Job) Fail(stage, message string, now time.Time) error {
	if j.Status != JobStatusProcessing {
		return fmt.Errorf("%w: job %s is %s", ErrTerminal, j.ID, j.Status)
	}
	j.Status = JobStatusFailed
	j.Error = &JobError{Stage: stage, Message: message}
	j.UpdatedAt = now.UTC()
	return nil
}

// Clone returns a deep copy so stores never share memory with callers.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	out := *j
	out.Inputs.Tags = append([]string(nil), j.Inputs.Tags...)
	if j.Inputs.Podcast != nil {
		p := *j.Inputs.Podcast
		out.Inputs.Podcast = &p
	}
	if j.Inputs.Video != nil {
		v := *j.Inputs.Video
		out.Inputs.Video = &v
	}
	if j.Artifacts.Script != nil {
		s := *j.Artifacts.Script
		out.Artifacts.Script = &s
	}
	if j.Artifacts.Audio != nil {
		a := *j.Artifacts.Audio
		out.Artifacts.Audio = &a
	}
	if j.Artifacts.Scenes != nil {
		out.Artifacts.Scenes = append([]StoredObject{}, j.Artifacts.Scenes...)
	}
	if j.Artifacts.Thumbnail != nil {
		t := *j.Artifacts.Thumbnail
		out.Artifacts.Thumbnail = &t
	}
	if j.Error != nil {
		e := *j.Error
		out.Error = &e
	}
	return &out
}
