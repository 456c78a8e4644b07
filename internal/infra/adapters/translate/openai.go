package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"content-pipeline/internal/domain/ports/adapter"
)

var _ adapter.Translator = (*OpenAITranslator)(nil)

// OpenAITranslator translates scraped articles with the Chat Completions
// API. The model is asked for strict JSON so the title/body split survives
// the round trip.
type OpenAITranslator struct {
	client openai.Client
	model  string
}

func NewOpenAITranslator(apiKey, model string) (*OpenAITranslator, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAITranslator{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

func (o *OpenAITranslator) Translate(ctx context.Context, title, body, targetLang string) (*adapter.Translation, error) {
	if body == "" {
		return nil, errors.New("nothing to translate")
	}

	system := fmt.Sprintf(
		"You are a professional translator for a marketing agency. "+
			"Translate the article into %s, keeping the tone suitable for a social media post. "+
			`Respond with a single JSON object: {"title": "...", "body": "..."} and nothing else.`,
		languageName(targetLang))
	user := fmt.Sprintf("Title: %s\n\n%s", title, body)

	chat, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: o.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	})
	if err != nil {
		return nil, err
	}
	if len(chat.Choices) == 0 {
		return nil, errors.New("openai returned no choices")
	}

	return parseTranslation(chat.Choices[0].Message.Content)
}

func parseTranslation(raw string) (*adapter.Translation, error) {
	raw = strings.TrimSpace(raw)
	// Models occasionally wrap the JSON in a code fence despite instructions.
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var out adapter.Translation
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("unparsable translation response: %w", err)
	}
	if out.Body == "" {
		return nil, errors.New("translation response missing body")
	}
	return &out, nil
}

func languageName(code string) string {
	switch strings.ToLower(code) {
	case "uk", "ua":
		return "Ukrainian"
	case "en":
		return "English"
	default:
		if code == "" {
			return "Ukrainian"
		}
		return code
	}
}
