package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"mediastudio/internal/infra"
	"mediastudio/internal/providers/failure"
)

const serviceName = "gemini"

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client is a thin transport over the Gemini generateContent endpoint shared by
// the text and image adapters. Every error it returns is a *failure.Error.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *infra.Logger
}

// TextRequest asks Gemini for a single text completion.
type TextRequest struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// ImageRequest asks Gemini for a single image.
type ImageRequest struct {
	Prompt      string
	AspectRatio string
}

// ImageAsset is an image returned by Gemini.
type ImageAsset struct {
	Format string
	Data   []byte
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
	FileData   *geminiFileData   `json:"fileData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiFileData struct {
	MimeType string `json:"mimeType,omitempty"`
	FileURI  string `json:"fileUri,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature        float64  `json:"temperature,omitempty"`
	MaxOutputTokens    int      `json:"maxOutputTokens,omitempty"`
	CandidateCount     int      `json:"candidateCount,omitempty"`
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type geminiGenerateContentRequest struct {
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	Contents          []geminiContent         `json:"contents"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiGenerateContentResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
		Status  string `json:"status,omitempty"`
	} `json:"error"`
}

// NewClient constructs a Gemini client with sane defaults. Callers may provide
// a nil HTTP client; a reusable one with sensible timeouts will be created.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}

	model := opts.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}

	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}

	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		model:      model,
		httpClient: client,
		logger:     logger,
	}, nil
}

// Model returns the configured Gemini model identifier.
func (c *Client) Model() string {
	return c.model
}

// GenerateText returns the concatenated text parts of the first candidate.
func (c *Client) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: req.Prompt}},
		}},
		GenerationConfig: &geminiGenerationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
			CandidateCount:  1,
		},
	}
	if system := strings.TrimSpace(req.System); system != "" {
		payload.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: system}}}
	}

	var response geminiGenerateContentResponse
	if err := c.invokeGemini(ctx, "generate_text", c.generatePath(), payload, &response); err != nil {
		return "", err
	}

	var b strings.Builder
	for _, candidate := range response.Candidates {
		for _, part := range candidate.Content.Parts {
			b.WriteString(part.Text)
		}
		if b.Len() > 0 {
			break
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", failure.New(failure.KindUpstream, serviceName, "generate_text", "empty response")
	}

	c.logger.Debug().
		Str("model", c.model).
		Int("chars", len(text)).
		Msg("genai: generated text")
	return text, nil
}

// GenerateImage returns the first inline image Gemini produces.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (ImageAsset, error) {
	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: buildImagePrompt(req)}},
		}},
		GenerationConfig: &geminiGenerationConfig{
			ResponseModalities: []string{"TEXT", "IMAGE"},
		},
	}

	var response geminiGenerateContentResponse
	if err := c.invokeGemini(ctx, "generate_image", c.generatePath(), payload, &response); err != nil {
		return ImageAsset{}, err
	}

	for _, candidate := range response.Candidates {
		for _, part := range candidate.Content.Parts {
			asset, err := c.decodeInlineAsset(ctx, part)
			if err != nil {
				return ImageAsset{}, err
			}
			if len(asset.Data) == 0 {
				continue
			}
			if asset.Format == "" {
				asset.Format = "image/png"
			}
			c.logger.Debug().
				Str("model", c.model).
				Int("bytes", len(asset.Data)).
				Msg("genai: generated image")
			return asset, nil
		}
	}
	return ImageAsset{}, failure.New(failure.KindUpstream, serviceName, "generate_image", "no image content returned")
}

func (c *Client) generatePath() string {
	return fmt.Sprintf("/models/%s:generateContent", url.PathEscape(c.model))
}

func (c *Client) invokeGemini(ctx context.Context, op, path string, payload any, out any) error {
	endpoint := strings.TrimRight(c.baseURL, "/") + path
	body, err := json.Marshal(payload)
	if err != nil {
		return failure.Wrap(failure.KindUnknown, serviceName, op, fmt.Errorf("marshal request: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return failure.Wrap(failure.KindUnknown, serviceName, op, fmt.Errorf("create request: %w", err))
	}
	q := req.URL.Query()
	q.Set("key", c.apiKey)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return failure.FromTransport(serviceName, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var apiErr geminiErrorResponse
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
			return failure.FromStatus(serviceName, op, resp.StatusCode, apiErr.Error.Message)
		}
		return failure.FromStatus(serviceName, op, resp.StatusCode, string(data))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return failure.Wrap(failure.KindUpstream, serviceName, op, fmt.Errorf("decode gemini response: %w", err))
	}
	return nil
}

func (c *Client) decodeInlineAsset(ctx context.Context, part geminiPart) (ImageAsset, error) {
	if part.InlineData != nil && part.InlineData.Data != "" {
		data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
		if err != nil {
			return ImageAsset{}, failure.Wrap(failure.KindUpstream, serviceName, "generate_image", fmt.Errorf("decode inline data: %w", err))
		}
		return ImageAsset{Data: data, Format: part.InlineData.MimeType}, nil
	}

	if part.FileData != nil && part.FileData.FileURI != "" {
		data, mime, err := c.downloadFile(ctx, part.FileData.FileURI)
		if err != nil {
			return ImageAsset{}, err
		}
		return ImageAsset{Data: data, Format: firstNonEmpty(part.FileData.MimeType, mime)}, nil
	}

	return ImageAsset{}, nil
}

func (c *Client) downloadFile(ctx context.Context, uri string) ([]byte, string, error) {
	const op = "download_file"
	target := uri
	if !strings.HasPrefix(uri, "http://") && !strings.HasPrefix(uri, "https://") {
		target = strings.TrimRight(c.baseURL, "/") + "/" + strings.TrimLeft(uri, "/")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", failure.Wrap(failure.KindUnknown, serviceName, op, err)
	}
	q := req.URL.Query()
	q.Set("key", c.apiKey)
	req.URL.RawQuery = q.Encode()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", failure.FromTransport(serviceName, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return nil, "", failure.FromStatus(serviceName, op, resp.StatusCode, string(data))
	}

	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", failure.FromTransport(serviceName, op, err)
	}
	return blob, resp.Header.Get("Content-Type"), nil
}

func buildImagePrompt(req ImageRequest) string {
	var b strings.Builder
	prompt := strings.TrimSpace(req.Prompt)
	if prompt != "" {
		b.WriteString(prompt)
	}
	if aspect := strings.TrimSpace(req.AspectRatio); aspect != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Aspect ratio: ")
		b.WriteString(aspect)
	}
	if b.Len() == 0 {
		b.WriteString("Create an illustration")
	}
	return b.String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
