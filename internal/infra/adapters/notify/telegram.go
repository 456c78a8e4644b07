package notify

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"content-pipeline/internal/domain/ports/adapter"
	"content-pipeline/internal/infra/i18n"
	"content-pipeline/internal/infra/metrics"
)

var _ adapter.Notifier = (*TelegramNotifier)(nil)

// messageSender is the slice of tgbotapi the notifier needs.
type messageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier pushes moderation alerts into the team chat. Delivery is
// best-effort: errors are returned for logging but callers must not treat
// them as pipeline failures.
type TelegramNotifier struct {
	sender messageSender
	chatID int64
	tr     *i18n.Translator
	log    zerolog.Logger
}

func NewTelegramNotifier(token string, chatID int64, tr *i18n.Translator, log zerolog.Logger) (*TelegramNotifier, error) {
	if token == "" || chatID == 0 {
		return nil, errors.New("telegram token and chat id required")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return newTelegramNotifier(bot, chatID, tr, log), nil
}

func newTelegramNotifier(sender messageSender, chatID int64, tr *i18n.Translator, log zerolog.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		sender: sender,
		chatID: chatID,
		tr:     tr,
		log:    log.With().Str("component", "telegram_notifier").Logger(),
	}
}

func (n *TelegramNotifier) Notify(ctx context.Context, event adapter.NotifyEvent, payload adapter.NotifyPayload) error {
	text := n.render(event, payload)
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.DisableWebPagePreview = event != adapter.EventPublished

	_, err := n.sender.Send(msg)
	metrics.IncNotification(string(event), err)
	if err != nil {
		n.log.Error().Err(err).Str("event", string(event)).Int64("content_id", payload.ContentID).Msg("notification failed")
		return err
	}
	return nil
}

func (n *TelegramNotifier) render(event adapter.NotifyEvent, p adapter.NotifyPayload) string {
	platform := n.tr.T("platform." + p.Platform)
	switch event {
	case adapter.EventNeedsApproval:
		return n.tr.T("notify.needs_approval", p.ContentID, p.Title, p.Message)
	case adapter.EventApproved:
		return n.tr.T("notify.approved", p.ContentID, p.Moderator)
	case adapter.EventRejected:
		return n.tr.T("notify.rejected", p.ContentID, p.Message)
	case adapter.EventPublished:
		return n.tr.T("notify.published", p.ContentID, platform, p.PostURL)
	case adapter.EventHealthAlert:
		return n.tr.T("notify.health_alert", platform, p.Message)
	default:
		return p.Message
	}
}
