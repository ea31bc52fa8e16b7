package genai

import (
	"context"
	"encoding/base64"
	"errors"
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

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newTestClient(t *testing.T, fn roundTripFunc) *Client {
	t.Helper()
	client, err := NewClient(Options{APIKey: "k", HTTPClient: &http.Client{Transport: fn}})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return client
}

func TestGenerateText(t *testing.T) {
	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		if !strings.HasSuffix(r.URL.Path, "/models/gemini-2.5-flash:generateContent") {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "k" {
			t.Fatalf("api key not sent")
		}
		return jsonResponse(200, `{"candidates":[{"content":{"parts":[{"text":"Intro\n\n"},{"text":"Body"}]}}]}`), nil
	})

	text, err := client.GenerateText(context.Background(), TextRequest{Prompt: "p"})
	if err != nil {
		t.Fatalf("GenerateText returned error: %v", err)
	}
	if text != "Intro\n\nBody" {
		t.Fatalf("text = %q", text)
	}
}

func TestGenerateTextClassifiesStatus(t *testing.T) {
	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(429, `{"error":{"code":429,"message":"quota"}}`), nil
	})

	_, err := client.GenerateText(context.Background(), TextRequest{Prompt: "p"})
	if !errors.Is(err, failure.ErrRateLimited) {
		t.Fatalf("expected rate limited, got %v", err)
	}
}

func TestGenerateImageInlineData(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("png-bytes"))
	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"candidates":[{"content":{"parts":[{"text":"here"},{"inlineData":{"mimeType":"image/png","data":"`+encoded+`"}}]}}]}`), nil
	})

	asset, err := client.GenerateImage(context.Background(), ImageRequest{Prompt: "scene"})
	if err != nil {
		t.Fatalf("GenerateImage returned error: %v", err)
	}
	if string(asset.Data) != "png-bytes" || asset.Format != "image/png" {
		t.Fatalf("unexpected asset: %#v", asset)
	}
}

func TestGenerateImageWithoutContentIsUpstream(t *testing.T) {
	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"candidates":[]}`), nil
	})

	_, err := client.GenerateImage(context.Background(), ImageRequest{Prompt: "scene"})
	if !errors.Is(err, failure.ErrUpstream) {
		t.Fatalf("expected upstream, got %v", err)
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(Options{}); err == nil {
		t.Fatalf("expected error without api key")
	}
}
