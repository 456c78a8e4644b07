package adapter

import "context"

// Translation is the result of translating one article.
type Translation struct {
	Title string
	Body  string
}

// Translator is the port for the translation collaborator. The pipeline
// only drives it on a cadence; the provider behind it is replaceable.
type Translator interface {
	Translate(ctx context.Context, title, body, targetLang string) (*Translation, error)
}

// GeneratedImage is the result of illustrating one article.
type GeneratedImage struct {
	Data   []byte
	URL    string
	Prompt string
}

// ImageGenerator is the port for the illustration collaborator.
type ImageGenerator interface {
	GenerateForArticle(ctx context.Context, title, body string) (*GeneratedImage, error)
}
