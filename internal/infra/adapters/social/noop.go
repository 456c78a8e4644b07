package social

import (
	"context"
	"fmt"
	"time"

	"content-pipeline/internal/domain/model"
	"content-pipeline/internal/domain/ports/adapter"
)

var _ adapter.PlatformPoster = (*NoopPoster)(nil)

// NoopPoster pretends every publish succeeded. Used in dev mode so the
// pipeline can be exercised without real platform credentials.
type NoopPoster struct {
	platform model.Platform
	seq      int
}

func NewNoopPoster(platform model.Platform) *NoopPoster {
	return &NoopPoster{platform: platform}
}

func (n *NoopPoster) Platform() model.Platform { return n.platform }

func (n *NoopPoster) Publish(ctx context.Context, post adapter.RenderedPost) (*model.PostOutcome, error) {
	n.seq++
	id := fmt.Sprintf("noop_%s_%d", n.platform, n.seq)
	return &model.PostOutcome{
		PostID:   id,
		PostURL:  "https://example.invalid/" + id,
		PostedAt: time.Now().UTC(),
	}, nil
}

func (n *NoopPoster) VerifyCredentials(ctx context.Context) error { return nil }
