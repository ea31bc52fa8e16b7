package speech

import (
	"context"
)

const (
	elevenLabsProviderName = "elevenlabs"
	syntheticProviderName  = "synthetic"
)

// Options tunes the voice rendering. Zero values mean provider defaults.
type Options struct {
	Stability       float64
	SimilarityBoost float64
	Style           float64
	SpeakerBoost    bool
	ModelID         string
}

// Result carries encoded audio.
type Result struct {
	Data []byte
	MIME string
}

// Synthesizer turns text into speech. An unknown voice is reported as
// failure.ErrInvalidVoice wrapped in an invalid input failure.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string, opts Options) (Result, error)
	Name() string
}
