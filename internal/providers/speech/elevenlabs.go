package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mediastudio/internal/providers/failure"
)

const (
	DefaultVoiceID       = "21m00Tcm4TlvDq8ikWAM"
	defaultModelID       = "eleven_multilingual_v2"
	defaultStability     = 0.5
	defaultSimilarity    = 0.5
	elevenLabsTimeout    = 120 * time.Second
	elevenLabsDefaultURL = "https://api.elevenlabs.io/v1"
)

type ElevenLabsOptions struct {
	APIKey         string
	BaseURL        string
	Model          string
	DefaultVoiceID string
	HTTPClient     *http.Client
}

// ElevenLabsSynthesizer calls the ElevenLabs text-to-speech endpoint.
type ElevenLabsSynthesizer struct {
	apiKey       string
	baseURL      string
	model        string
	defaultVoice string
	client       *http.Client
}

type elevenLabsRequest struct {
	Text          string                  `json:"text"`
	ModelID       string                  `json:"model_id"`
	VoiceSettings elevenLabsVoiceSettings `json:"voice_settings"`
}

type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style,omitempty"`
	SpeakerBoost    bool    `json:"use_speaker_boost"`
}

type elevenLabsErrorResponse struct {
	Detail struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"detail"`
}

func NewElevenLabsSynthesizer(opts ElevenLabsOptions) (*ElevenLabsSynthesizer, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("elevenlabs api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = elevenLabsDefaultURL
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModelID
	}
	voice := strings.TrimSpace(opts.DefaultVoiceID)
	if voice == "" {
		voice = DefaultVoiceID
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: elevenLabsTimeout}
	}
	return &ElevenLabsSynthesizer{
		apiKey:       strings.TrimSpace(opts.APIKey),
		baseURL:      baseURL,
		model:        model,
		defaultVoice: voice,
		client:       client,
	}, nil
}

func (e *ElevenLabsSynthesizer) Name() string { return elevenLabsProviderName }

func (e *ElevenLabsSynthesizer) Synthesize(ctx context.Context, text, voiceID string, opts Options) (Result, error) {
	const op = "text_to_speech"
	voiceID = strings.TrimSpace(voiceID)
	if voiceID == "" {
		voiceID = e.defaultVoice
	}
	model := strings.TrimSpace(opts.ModelID)
	if model == "" {
		model = e.model
	}
	payload := elevenLabsRequest{
		Text:    text,
		ModelID: model,
		VoiceSettings: elevenLabsVoiceSettings{
			Stability:       orDefault(opts.Stability, defaultStability),
			SimilarityBoost: orDefault(opts.SimilarityBoost, defaultSimilarity),
			Style:           opts.Style,
			SpeakerBoost:    opts.SpeakerBoost,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, failure.Wrap(failure.KindUnknown, elevenLabsProviderName, op, err)
	}
	endpoint := fmt.Sprintf("%s/text-to-speech/%s", e.baseURL, url.PathEscape(voiceID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, failure.Wrap(failure.KindUnknown, elevenLabsProviderName, op, err)
	}
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return Result{}, failure.FromTransport(elevenLabsProviderName, op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 300 {
		return Result{}, classify(op, voiceID, resp)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, failure.FromTransport(elevenLabsProviderName, op, err)
	}
	if len(audio) == 0 {
		return Result{}, failure.New(failure.KindUpstream, elevenLabsProviderName, op, "empty audio")
	}
	mime := resp.Header.Get("Content-Type")
	if mime == "" {
		mime = "audio/mpeg"
	}
	return Result{Data: audio, MIME: mime}, nil
}

func classify(op, voiceID string, resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var apiErr elevenLabsErrorResponse
	message := strings.TrimSpace(string(data))
	status := ""
	if json.Unmarshal(data, &apiErr) == nil && apiErr.Detail.Message != "" {
		message = apiErr.Detail.Message
		status = apiErr.Detail.Status
	}
	if status == "voice_not_found" || resp.StatusCode == http.StatusNotFound {
		return &failure.Error{
			Kind:    failure.KindInvalidInput,
			Service: elevenLabsProviderName,
			Op:      op,
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("voice %q not found", voiceID),
			Err:     failure.ErrInvalidVoice,
		}
	}
	return failure.FromStatus(elevenLabsProviderName, op, resp.StatusCode, message)
}

func orDefault(v, fallback float64) float64 {
	if v <= 0 {
		return fallback
	}
	return v
}

var _ Synthesizer = (*ElevenLabsSynthesizer)(nil)
