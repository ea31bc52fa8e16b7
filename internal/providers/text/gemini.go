package text

import (
	"context"

	"mediastudio/internal/providers/genai"
)

// GeminiGenerator adapts the shared genai client to the Generator contract.
type GeminiGenerator struct {
	client *genai.Client
}

func NewGeminiGenerator(client *genai.Client) *GeminiGenerator {
	return &GeminiGenerator{client: client}
}

func (g *GeminiGenerator) Name() string { return geminiProviderName }

func (g *GeminiGenerator) Generate(ctx context.Context, req Request) (string, error) {
	return g.client.GenerateText(ctx, genai.TextRequest{
		System:      req.System,
		Prompt:      req.Prompt,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
}

var _ Generator = (*GeminiGenerator)(nil)
