package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"content-pipeline/internal/domain"
	"content-pipeline/internal/domain/model"
	"content-pipeline/internal/domain/ports/adapter"
	"content-pipeline/internal/domain/ports/repository"
	"content-pipeline/internal/infra/logging"
	"content-pipeline/internal/infra/metrics"
)

// Compile-time check
var _ PublishUseCase = (*publishUC)(nil)

// RateLimiter is the slice of the redis limiter the publisher needs.
type RateLimiter interface {
	AllowPublish(ctx context.Context, platform model.Platform, perHour int) (bool, error)
}

// PublishUseCase drives the publish sweeps. A sweep reclaims abandoned
// claims, then claims, publishes and finalizes items one at a time until
// the platform has no more eligible work.
type PublishUseCase interface {
	SweepPlatform(ctx context.Context, platform model.Platform) (int, error)
	VerifyCredentials(ctx context.Context, platform model.Platform) error
}

type publishUC struct {
	contents repository.ContentRepository
	posters  map[model.Platform]adapter.PlatformPoster
	notifier adapter.Notifier
	limiter  RateLimiter

	staleClaimAge time.Duration
	ratePerHour   int
	// maxAttempts bounds how many claims one tick may burn through while
	// looking for an item that publishes.
	maxAttempts    int
	mediaServeBase string

	log *zerolog.Logger
}

func NewPublishUseCase(
	contents repository.ContentRepository,
	posters map[model.Platform]adapter.PlatformPoster,
	notifier adapter.Notifier,
	limiter RateLimiter,
	staleClaimAge time.Duration,
	ratePerHour int,
	mediaServeBase string,
	logger *zerolog.Logger,
) *publishUC {
	return &publishUC{
		contents:       contents,
		posters:        posters,
		notifier:       notifier,
		limiter:        limiter,
		staleClaimAge:  staleClaimAge,
		ratePerHour:    ratePerHour,
		maxAttempts:    10,
		mediaServeBase: mediaServeBase,
		log:            logger,
	}
}

// SweepPlatform runs one publish tick for the platform and returns how
// many items were finished. At most one item is published per tick; the
// attempt loop only moves on past items that fail with an item-specific
// error. A transient platform failure ends the sweep early; the items stay
// approved and the next trigger retries them.
func (u *publishUC) SweepPlatform(ctx context.Context, platform model.Platform) (int, error) {
	poster, ok := u.posters[platform]
	if !ok {
		return 0, fmt.Errorf("%w: no poster for platform %q", domain.ErrInvalidArgument, platform)
	}
	log := logging.With(ctx, u.log)

	reclaimed, err := u.contents.ReclaimStale(ctx, platform, u.staleClaimAge)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale claims: %w", err)
	}
	if reclaimed > 0 {
		metrics.AddStaleReclaims(string(platform), reclaimed)
		log.Warn().Int("reclaimed", reclaimed).Str("platform", string(platform)).Msg("returned stale claims to approved")
	}

	published := 0
	for i := 0; i < u.maxAttempts; i++ {
		item, err := u.contents.ClaimNextForPosting(ctx, platform, time.Now())
		if errors.Is(err, domain.ErrNotFound) {
			metrics.IncClaim(string(platform), "empty")
			break
		}
		if err != nil {
			metrics.IncClaim(string(platform), "error")
			return published, fmt.Errorf("claim next for %s: %w", platform, err)
		}
		metrics.IncClaim(string(platform), "claimed")

		itemCtx := logging.WithContentID(ctx, item.ID)
		done, err := u.publishClaimed(itemCtx, poster, platform, item)
		if done {
			published++
			break
		}
		if err != nil {
			kind := adapter.ClassifyPublishError(err)
			if kind == model.FailureAuth || kind == model.FailureTransient {
				// The same token or the same outage will hit every
				// remaining item; stop and let the next trigger retry.
				return published, err
			}
		}
	}
	return published, nil
}

// publishClaimed takes an item already in posting_<platform> to a terminal
// outcome for this attempt. done reports whether the item ended up posted.
func (u *publishUC) publishClaimed(ctx context.Context, poster adapter.PlatformPoster, platform model.Platform, item *model.ContentItem) (done bool, err error) {
	log := logging.With(ctx, u.log)

	// The witness may exist if a previous attempt crashed after recording
	// the outcome but before finishing. Never post twice.
	if item.PublishedTo(platform) {
		metrics.IncIdempotentSkip(string(platform))
		log.Info().Str("platform", string(platform)).Msg("outcome already recorded, finishing without posting")
		if err := u.contents.MarkPosted(ctx, repository.NoTX, item.ID, platform); err != nil {
			return false, fmt.Errorf("finish previously published item: %w", err)
		}
		return true, nil
	}

	allowed, err := u.limiter.AllowPublish(ctx, platform, u.ratePerHour)
	if err != nil {
		log.Warn().Err(err).Msg("rate limiter unavailable, proceeding without it")
	} else if !allowed {
		log.Warn().Str("platform", string(platform)).Msg("publish budget exhausted, releasing claim")
		if relErr := u.contents.ReleaseClaim(ctx, repository.NoTX, item.ID, platform); relErr != nil {
			return false, relErr
		}
		return false, adapter.NewPublishError(model.FailureTransient, errors.New("platform publish budget exhausted"))
	}

	start := time.Now()
	outcome, err := poster.Publish(ctx, u.renderPost(item))
	metrics.ObservePublishDuration(string(platform), time.Since(start))
	if err != nil {
		kind := adapter.ClassifyPublishError(err)
		metrics.IncPublish(string(platform), "failure")
		metrics.IncPublishRetry(string(platform), string(kind))
		log.Error().Err(err).Str("platform", string(platform)).Str("kind", string(kind)).Msg("publish attempt failed")

		if relErr := u.contents.ReleaseForRetry(ctx, repository.NoTX, item.ID, platform, err.Error(), kind); relErr != nil {
			log.Error().Err(relErr).Msg("release for retry failed, claim will be reclaimed as stale")
		}
		if kind == model.FailureAuth {
			u.notify(ctx, adapter.EventHealthAlert, adapter.NotifyPayload{
				ContentID: item.ID,
				Platform:  string(platform),
				Message:   err.Error(),
			})
		}
		return false, err
	}

	// Two separate commits: the witness first, then the transition. A crash
	// between them is safe; the next claim sees the witness and finishes.
	if err := u.contents.RecordOutcome(ctx, repository.NoTX, item.ID, platform, outcome); err != nil {
		return false, fmt.Errorf("record outcome for %d: %w", item.ID, err)
	}
	if err := u.contents.MarkPosted(ctx, repository.NoTX, item.ID, platform); err != nil {
		return false, fmt.Errorf("mark posted for %d: %w", item.ID, err)
	}

	metrics.IncPublish(string(platform), "success")
	log.Info().
		Str("platform", string(platform)).
		Str("post_id", outcome.PostID).
		Msg("published")

	u.notify(ctx, adapter.EventPublished, adapter.NotifyPayload{
		ContentID: item.ID,
		Title:     item.Title(),
		Platform:  string(platform),
		PostURL:   outcome.PostURL,
	})
	return true, nil
}

func (u *publishUC) VerifyCredentials(ctx context.Context, platform model.Platform) error {
	poster, ok := u.posters[platform]
	if !ok {
		return fmt.Errorf("%w: no poster for platform %q", domain.ErrInvalidArgument, platform)
	}
	return poster.VerifyCredentials(ctx)
}

func (u *publishUC) renderPost(item *model.ContentItem) adapter.RenderedPost {
	img := adapter.ImageRef{
		Data:        item.ImageData,
		LocalPath:   item.LocalImagePath,
		UpstreamURL: item.ImageURL,
	}
	if len(item.ImageData) > 0 && u.mediaServeBase != "" {
		img.ServeURL = fmt.Sprintf("%s/media/%d", u.mediaServeBase, item.ID)
	}
	return adapter.RenderedPost{
		Title:      item.Title(),
		Body:       item.Body(),
		SourceName: item.Source,
		SourceURL:  item.SourceURL,
		Author:     item.Author,
		Image:      img,
	}
}

// notify is fire-and-forget; a failed alert never affects pipeline state.
func (u *publishUC) notify(ctx context.Context, event adapter.NotifyEvent, payload adapter.NotifyPayload) {
	if u.notifier == nil {
		return
	}
	if err := u.notifier.Notify(ctx, event, payload); err != nil {
		logging.With(ctx, u.log).Warn().Err(err).Str("event", string(event)).Msg("notification failed")
	}
}
