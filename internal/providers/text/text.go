package text

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	openAIProviderName    = "openai"
	geminiProviderName    = "gemini"
	syntheticProviderName = "synthetic"
)

// Request is a single text generation call.
type Request struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
	// Topic is used only by the synthetic generator to shape its output.
	Topic string
}

// Generator produces text for a prompt. Errors are *failure.Error.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
	Name() string
}

// SyntheticGenerator returns a deterministic multi-section script. It is wired
// when no text provider credentials are configured.
type SyntheticGenerator struct {
	Sections int
}

func NewSyntheticGenerator() *SyntheticGenerator {
	return &SyntheticGenerator{Sections: 4}
}

func (s *SyntheticGenerator) Name() string { return syntheticProviderName }

func (s *SyntheticGenerator) Generate(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		topic = firstLine(req.Prompt)
	}
	title := cases.Title(language.Und).String(topic)
	sections := s.Sections
	if sections <= 0 {
		sections = 4
	}
	parts := make([]string, 0, sections)
	parts = append(parts, fmt.Sprintf("Introduction: welcome! Today we explore %s.", title))
	for i := 1; i < sections-1; i++ {
		parts = append(parts, fmt.Sprintf("Part %d: a closer look at %s, point %d.", i, topic, i))
	}
	parts = append(parts, fmt.Sprintf("Conclusion: thanks for joining us to talk about %s.", topic))
	return strings.Join(parts, "\n\n"), nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	if len(s) > 80 {
		s = s[:80]
	}
	if s == "" {
		return "this topic"
	}
	return s
}

var _ Generator = (*SyntheticGenerator)(nil)
