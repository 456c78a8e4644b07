package image

import (
	"context"

	"content-pipeline/internal/domain/ports/adapter"
)

var _ adapter.ImageGenerator = (*NoopGenerator)(nil)

// NoopGenerator produces no image, leaving items to post text-only. Used
// in dev mode.
type NoopGenerator struct{}

func NewNoopGenerator() *NoopGenerator { return &NoopGenerator{} }

func (n *NoopGenerator) GenerateForArticle(ctx context.Context, title, body string) (*adapter.GeneratedImage, error) {
	return &adapter.GeneratedImage{Prompt: BuildPrompt(title, body)}, nil
}
