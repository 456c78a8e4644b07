package image

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"content-pipeline/internal/domain/ports/adapter"
)

var _ adapter.ImageGenerator = (*GeminiGenerator)(nil)

// GeminiGenerator illustrates articles with the Imagen API through the
// official genai SDK.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	if model == "" {
		model = "imagen-3.0-generate-002"
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &GeminiGenerator{client: c, model: model}, nil
}

func (g *GeminiGenerator) GenerateForArticle(ctx context.Context, title, body string) (*adapter.GeneratedImage, error) {
	prompt := BuildPrompt(title, body)

	resp, err := g.client.Models.GenerateImages(ctx, g.model, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return nil, errors.New("gemini returned no image")
	}

	return &adapter.GeneratedImage{
		Data:   resp.GeneratedImages[0].Image.ImageBytes,
		Prompt: prompt,
	}, nil
}

// BuildPrompt turns an article into an illustration brief. The body is
// truncated: the opening sentences carry the topic and the prompt has a
// token budget.
func BuildPrompt(title, body string) string {
	const maxBody = 400
	runes := []rune(body)
	if len(runes) > maxBody {
		body = string(runes[:maxBody])
	}
	return fmt.Sprintf(
		"Professional illustration for a business social media post. "+
			"Topic: %s. Context: %s. "+
			"Clean modern style, no text overlays, no watermarks.",
		title, body)
}
