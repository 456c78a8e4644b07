package adapter

import (
	"context"
	"errors"
	"fmt"

	"content-pipeline/internal/domain/model"
)

// ImageRef carries every known way to reach the item's illustration, in
// fallback priority order: raw bytes, a publicly reachable serve URL for
// those bytes, a local file path, and the (possibly expired) upstream URL.
type ImageRef struct {
	Data        []byte
	ServeURL    string
	LocalPath   string
	UpstreamURL string
}

// Empty reports whether no image source is available at all.
func (r ImageRef) Empty() bool {
	return len(r.Data) == 0 && r.ServeURL == "" && r.LocalPath == "" && r.UpstreamURL == ""
}

// RenderedPost is the platform-agnostic input to a poster.
type RenderedPost struct {
	Title      string
	Body       string
	SourceName string
	SourceURL  string
	Author     string
	Image      ImageRef
}

// PlatformPoster publishes one rendered post to one platform. It performs
// no persisted-state mutation; recording the outcome is the orchestrator's
// job. Image sources are tried in ImageRef priority order, degrading to a
// text-only post before the publish as a whole is failed.
type PlatformPoster interface {
	Platform() model.Platform
	Publish(ctx context.Context, post RenderedPost) (*model.PostOutcome, error)
	// VerifyCredentials checks the platform token without posting.
	VerifyCredentials(ctx context.Context) error
}

// PublishError classifies a failed publish so the orchestrator can decide
// retry vs. alert. Wrap with fmt.Errorf/%w as usual.
type PublishError struct {
	Kind model.FailureKind
	Err  error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish failed (%s): %v", e.Kind, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// NewPublishError wraps err with a failure classification.
func NewPublishError(kind model.FailureKind, err error) *PublishError {
	return &PublishError{Kind: kind, Err: err}
}

// ClassifyPublishError extracts the failure kind, defaulting to transient
// so unknown errors stay retryable.
func ClassifyPublishError(err error) model.FailureKind {
	var pe *PublishError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return model.FailureTransient
}
