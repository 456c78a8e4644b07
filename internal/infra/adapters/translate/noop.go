package translate

import (
	"context"

	"content-pipeline/internal/domain/ports/adapter"
)

var _ adapter.Translator = (*NoopTranslator)(nil)

// NoopTranslator passes text through untouched. Used in dev mode.
type NoopTranslator struct{}

func NewNoopTranslator() *NoopTranslator { return &NoopTranslator{} }

func (n *NoopTranslator) Translate(ctx context.Context, title, body, targetLang string) (*adapter.Translation, error) {
	return &adapter.Translation{Title: title, Body: body}, nil
}
