package image

import (
	"context"
	"strconv"
	"strings"
)

const (
	openAIProviderName    = "openai"
	geminiProviderName    = "gemini"
	syntheticProviderName = "synthetic"
)

// Request describes a single image to render.
type Request struct {
	Prompt string
	// Size is WIDTHxHEIGHT, e.g. 1024x1024.
	Size string
}

// Result carries the encoded image bytes.
type Result struct {
	Data []byte
	MIME string
}

// Generator is the contract implemented by all image providers. Errors are
// *failure.Error.
type Generator interface {
	Generate(ctx context.Context, req Request) (Result, error)
	Name() string
}

// DefaultSize is used when a request does not name one.
const DefaultSize = "1024x1024"

// ParseSize splits WIDTHxHEIGHT, defaulting to 1024 square.
func ParseSize(size string) (int, int) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(size)), "x")
	if len(parts) == 2 {
		w, errW := strconv.Atoi(parts[0])
		h, errH := strconv.Atoi(parts[1])
		if errW == nil && errH == nil && w > 0 && h > 0 {
			return w, h
		}
	}
	return 1024, 1024
}

func aspectRatio(size string) string {
	w, h := ParseSize(size)
	switch {
	case w == h:
		return "1:1"
	case w*9 == h*16:
		return "16:9"
	case w*16 == h*9:
		return "9:16"
	default:
		return strconv.Itoa(w) + ":" + strconv.Itoa(h)
	}
}
