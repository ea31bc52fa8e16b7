package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mediastudio/internal/providers/failure"
)

type OpenAIOptions struct {
	APIKey       string
	Model        string
	BaseURL      string
	Organization string
	HTTPClient   *http.Client
}

// OpenAIGenerator renders images with the OpenAI images endpoint.
type OpenAIGenerator struct {
	apiKey       string
	model        string
	baseURL      string
	organization string
	client       *http.Client
}

type openAIImageRequest struct {
	Model          string `json:"model,omitempty"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size"`
	ResponseFormat string `json:"response_format"`
}

type openAIImageResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

type openAIErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func NewOpenAIGenerator(opts OpenAIOptions) (*OpenAIGenerator, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("openai api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "dall-e-3"
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}
	return &OpenAIGenerator{
		apiKey:       strings.TrimSpace(opts.APIKey),
		model:        model,
		baseURL:      baseURL,
		organization: strings.TrimSpace(opts.Organization),
		client:       client,
	}, nil
}

func (o *OpenAIGenerator) Name() string { return openAIProviderName }

func (o *OpenAIGenerator) Generate(ctx context.Context, req Request) (Result, error) {
	const op = "images_generate"
	size := strings.TrimSpace(req.Size)
	if size == "" {
		size = DefaultSize
	}
	payload := openAIImageRequest{
		Model:          o.model,
		Prompt:         req.Prompt,
		N:              1,
		Size:           size,
		ResponseFormat: "b64_json",
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return Result{}, failure.Wrap(failure.KindUnknown, openAIProviderName, op, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/images/generations", &buf)
	if err != nil {
		return Result{}, failure.Wrap(failure.KindUnknown, openAIProviderName, op, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	if o.organization != "" {
		httpReq.Header.Set("OpenAI-Organization", o.organization)
	}

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return Result{}, failure.FromTransport(openAIProviderName, op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var apiErr openAIErrorResponse
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error.Message != "" {
			return Result{}, failure.FromStatus(openAIProviderName, op, resp.StatusCode, apiErr.Error.Message)
		}
		return Result{}, failure.FromStatus(openAIProviderName, op, resp.StatusCode, string(data))
	}

	var out openAIImageResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Result{}, failure.Wrap(failure.KindUpstream, openAIProviderName, op, fmt.Errorf("decode response: %w", err))
	}
	if len(out.Data) == 0 || out.Data[0].B64JSON == "" {
		return Result{}, failure.New(failure.KindUpstream, openAIProviderName, op, "no image returned")
	}
	data, err := base64.StdEncoding.DecodeString(out.Data[0].B64JSON)
	if err != nil {
		return Result{}, failure.Wrap(failure.KindUpstream, openAIProviderName, op, fmt.Errorf("decode image: %w", err))
	}
	return Result{Data: data, MIME: "image/png"}, nil
}

var _ Generator = (*OpenAIGenerator)(nil)
