package adapter

import "context"

// NotifyEvent names an outbound alert.
type NotifyEvent string

const (
	EventNeedsApproval NotifyEvent = "needs_approval"
	EventApproved      NotifyEvent = "approved"
	EventRejected      NotifyEvent = "rejected"
	EventPublished     NotifyEvent = "published"
	EventHealthAlert   NotifyEvent = "health_alert"
)

// NotifyPayload carries the fields templates may interpolate.
type NotifyPayload struct {
	ContentID int64
	Title     string
	Platform  string
	PostURL   string
	Moderator string
	Message   string
}

// Notifier delivers fire-and-forget alerts to the moderator channel.
// Errors are for logging only; a failed notification must never roll back
// or block the state transition it reports on.
type Notifier interface {
	Notify(ctx context.Context, event NotifyEvent, payload NotifyPayload) error
}
