package notify

import (
	"context"

	"github.com/rs/zerolog"

	"content-pipeline/internal/domain/ports/adapter"
)

var _ adapter.Notifier = (*NoopNotifier)(nil)

// NoopNotifier logs alerts instead of delivering them. Used in dev mode.
type NoopNotifier struct {
	log zerolog.Logger
}

func NewNoopNotifier(log zerolog.Logger) *NoopNotifier {
	return &NoopNotifier{log: log.With().Str("component", "noop_notifier").Logger()}
}

func (n *NoopNotifier) Notify(ctx context.Context, event adapter.NotifyEvent, payload adapter.NotifyPayload) error {
	n.log.Info().
		Str("event", string(event)).
		Int64("content_id", payload.ContentID).
		Str("platform", payload.Platform).
		Msg("notification suppressed")
	return nil
}
