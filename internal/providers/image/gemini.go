package image

import (
	"context"

	"mediastudio/internal/providers/genai"
)

type GeminiGenerator struct {
	client *genai.Client
}

func NewGeminiGenerator(client *genai.Client) *GeminiGenerator {
	return &GeminiGenerator{client: client}
}

func (g *GeminiGenerator) Name() string { return geminiProviderName }

func (g *GeminiGenerator) Generate(ctx context.Context, req Request) (Result, error) {
	asset, err := g.client.GenerateImage(ctx, genai.ImageRequest{
		Prompt:      req.Prompt,
		AspectRatio: aspectRatio(req.Size),
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Data: asset.Data, MIME: asset.Format}, nil
}

var _ Generator = (*GeminiGenerator)(nil)
