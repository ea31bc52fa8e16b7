package speech

import (
	"context"
	"encoding/binary"
	"encoding/json"
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

func newSynth(t *testing.T, fn roundTripFunc) *ElevenLabsSynthesizer {
	t.Helper()
	s, err := NewElevenLabsSynthesizer(ElevenLabsOptions{APIKey: "xi", HTTPClient: &http.Client{Transport: fn}})
	if err != nil {
		t.Fatalf("NewElevenLabsSynthesizer returned error: %v", err)
	}
	return s
}

func TestElevenLabsUsesDefaultVoiceAndSettings(t *testing.T) {
	var payload elevenLabsRequest
	s := newSynth(t, func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/v1/text-to-speech/"+DefaultVoiceID {
			t.Fatalf("path = %s", r.URL.Path)
		}
		if r.Header.Get("xi-api-key") != "xi" {
			t.Fatalf("api key header missing")
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return &http.Response{StatusCode: 200, Header: http.Header{"Content-Type": []string{"audio/mpeg"}}, Body: io.NopCloser(strings.NewReader("mp3"))}, nil
	})

	res, err := s.Synthesize(context.Background(), "hello", "", Options{Stability: 0.7})
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if string(res.Data) != "mp3" || res.MIME != "audio/mpeg" {
		t.Fatalf("unexpected result: %#v", res)
	}
	if payload.ModelID != defaultModelID || payload.VoiceSettings.Stability != 0.7 || payload.VoiceSettings.SimilarityBoost != defaultSimilarity {
		t.Fatalf("unexpected payload: %#v", payload)
	}
}

func TestElevenLabsErrorClassification(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   []error
	}{
		{name: "voice_not_found", status: 400, body: `{"detail":{"status":"voice_not_found","message":"missing"}}`, want: []error{failure.ErrInvalidInput, failure.ErrInvalidVoice}},
		{name: "not_found", status: 404, body: ``, want: []error{failure.ErrInvalidVoice}},
		{name: "unauthorized", status: 401, body: `{"detail":{"status":"invalid_api_key","message":"bad key"}}`, want: []error{failure.ErrUnauthorized}},
		{name: "rate_limited", status: 429, body: ``, want: []error{failure.ErrRateLimited}},
		{name: "upstream", status: 503, body: `oops`, want: []error{failure.ErrUpstream}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			s := newSynth(t, func(r *http.Request) (*http.Response, error) {
				return &http.Response{StatusCode: tc.status, Header: http.Header{}, Body: io.NopCloser(strings.NewReader(tc.body))}, nil
			})
			_, err := s.Synthesize(context.Background(), "hello", "voice-x", Options{})
			for _, want := range tc.want {
				if !errors.Is(err, want) {
					t.Fatalf("error %v does not match %v", err, want)
				}
			}
		})
	}
}

func TestSyntheticSynthesizerWritesWAV(t *testing.T) {
	res, err := NewSyntheticSynthesizer().Synthesize(context.Background(), "one two three", "", Options{})
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if res.MIME != "audio/wav" || string(res.Data[0:4]) != "RIFF" || string(res.Data[8:12]) != "WAVE" {
		t.Fatalf("not a wav file")
	}
	dataSize := binary.LittleEndian.Uint32(res.Data[40:44])
	if int(dataSize) != 3*syntheticSamplesPerWord || len(res.Data) != 44+int(dataSize) {
		t.Fatalf("data size = %d, len = %d", dataSize, len(res.Data))
	}
}
