package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	stdimage "image"
	_ "image/png"
	"io"
	"net/http"
	"strings"
	"testing"

	"mediastudio/internal/providers/failure"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func TestOpenAIGeneratorDecodesBase64(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("png"))
	gen, err := NewOpenAIGenerator(OpenAIOptions{
		APIKey: "k",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			var payload openAIImageRequest
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				t.Fatalf("decode payload: %v", err)
			}
			if payload.ResponseFormat != "b64_json" || payload.Size != DefaultSize || payload.N != 1 {
				t.Fatalf("unexpected payload: %#v", payload)
			}
			body := `{"data":[{"b64_json":"` + encoded + `"}]}`
			return &http.Response{StatusCode: 200, Body: io.NopCloser(strings.NewReader(body)), Header: http.Header{}}, nil
		})},
	})
	if err != nil {
		t.Fatalf("NewOpenAIGenerator returned error: %v", err)
	}
	res, err := gen.Generate(context.Background(), Request{Prompt: "scene"})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if string(res.Data) != "png" || res.MIME != "image/png" {
		t.Fatalf("unexpected result: %#v", res)
	}
}

func TestOpenAIGeneratorContentPolicyIsInvalidInput(t *testing.T) {
	gen, _ := NewOpenAIGenerator(OpenAIOptions{
		APIKey: "k",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			body := `{"error":{"message":"content policy violation"}}`
			return &http.Response{StatusCode: 400, Body: io.NopCloser(strings.NewReader(body)), Header: http.Header{}}, nil
		})},
	})
	_, err := gen.Generate(context.Background(), Request{Prompt: "scene"})
	if !errors.Is(err, failure.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if !strings.Contains(err.Error(), "content policy") {
		t.Fatalf("message lost: %v", err)
	}
}

func TestSyntheticGeneratorIsDeterministicPNG(t *testing.T) {
	gen := NewSyntheticGenerator()
	a, err := gen.Generate(context.Background(), Request{Prompt: "forest", Size: "1024x1024"})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	b, _ := gen.Generate(context.Background(), Request{Prompt: "forest", Size: "1024x1024"})
	if !bytes.Equal(a.Data, b.Data) {
		t.Fatalf("synthetic output is not deterministic")
	}
	cfg, format, err := stdimage.DecodeConfig(bytes.NewReader(a.Data))
	if err != nil || format != "png" {
		t.Fatalf("decode: %v %s", err, format)
	}
	if cfg.Width != 512 || cfg.Height != 512 {
		t.Fatalf("size = %dx%d, want 512x512", cfg.Width, cfg.Height)
	}
}

func TestParseSizeAndAspect(t *testing.T) {
	if w, h := ParseSize("1792x1024"); w != 1792 || h != 1024 {
		t.Fatalf("ParseSize = %dx%d", w, h)
	}
	if w, h := ParseSize("bogus"); w != 1024 || h != 1024 {
		t.Fatalf("ParseSize fallback = %dx%d", w, h)
	}
	if got := aspectRatio("1920x1080"); got != "16:9" {
		t.Fatalf("aspectRatio = %s", got)
	}
}
