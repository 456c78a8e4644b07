package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"content-pipeline/internal/domain/ports/adapter"
	"content-pipeline/internal/infra/i18n"
)

type fakeSender struct {
	sent    []tgbotapi.MessageConfig
	sendErr error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.sendErr != nil {
		return tgbotapi.Message{}, f.sendErr
	}
	msg, ok := c.(tgbotapi.MessageConfig)
	if !ok {
		return tgbotapi.Message{}, errors.New("unexpected chattable type")
	}
	f.sent = append(f.sent, msg)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func newTestNotifier(t *testing.T, sender messageSender) *TelegramNotifier {
	t.Helper()
	tr, err := i18n.NewTranslator(i18n.LocalesFS, "uk")
	if err != nil {
		t.Fatalf("NewTranslator() failed: %v", err)
	}
	return newTelegramNotifier(sender, -100500, tr, zerolog.Nop())
}

func TestTelegramNotifier_Notify(t *testing.T) {
	ctx := context.Background()

	t.Run("needs_approval renders id and title to the right chat", func(t *testing.T) {
		fake := &fakeSender{}
		n := newTestNotifier(t, fake)

		err := n.Notify(ctx, adapter.EventNeedsApproval, adapter.NotifyPayload{
			ContentID: 42,
			Title:     "Нова стаття",
			Message:   "linkedin_scraper",
		})
		if err != nil {
			t.Fatalf("Notify() failed: %v", err)
		}
		if len(fake.sent) != 1 {
			t.Fatalf("sent %d messages, want 1", len(fake.sent))
		}
		msg := fake.sent[0]
		if msg.ChatID != -100500 {
			t.Errorf("ChatID = %d", msg.ChatID)
		}
		if !strings.Contains(msg.Text, "№42") || !strings.Contains(msg.Text, "Нова стаття") {
			t.Errorf("text = %q", msg.Text)
		}
	})

	t.Run("published keeps the link preview enabled", func(t *testing.T) {
		fake := &fakeSender{}
		n := newTestNotifier(t, fake)

		err := n.Notify(ctx, adapter.EventPublished, adapter.NotifyPayload{
			ContentID: 7,
			Platform:  "facebook",
			PostURL:   "https://www.facebook.com/1_2",
		})
		if err != nil {
			t.Fatalf("Notify() failed: %v", err)
		}
		msg := fake.sent[0]
		if msg.DisableWebPagePreview {
			t.Error("published notification should keep the preview")
		}
		if !strings.Contains(msg.Text, "Facebook") || !strings.Contains(msg.Text, "https://www.facebook.com/1_2") {
			t.Errorf("text = %q", msg.Text)
		}
	})

	t.Run("send failures surface as errors", func(t *testing.T) {
		fake := &fakeSender{sendErr: errors.New("chat not found")}
		n := newTestNotifier(t, fake)

		err := n.Notify(ctx, adapter.EventHealthAlert, adapter.NotifyPayload{
			Platform: "linkedin",
			Message:  "token expired",
		})
		if err == nil {
			t.Fatal("expected the send error to be returned")
		}
	})
}
