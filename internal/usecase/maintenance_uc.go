package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"content-pipeline/internal/domain/model"
	"content-pipeline/internal/domain/ports/adapter"
	"content-pipeline/internal/domain/ports/repository"
	"content-pipeline/internal/infra/logging"
)

// Compile-time check
var _ MaintenanceUseCase = (*maintenanceUC)(nil)

// MaintenanceUseCase holds the housekeeping jobs: purging old rejected
// items and the daily platform credential check.
type MaintenanceUseCase interface {
	// CleanupRejected hard-deletes rejected items older than the retention
	// window. Nothing else is ever deleted.
	CleanupRejected(ctx context.Context) (int64, error)
	// CheckPlatformHealth verifies credentials for every configured
	// platform, alerting the moderator channel on failure. The returned
	// map holds the per-platform result.
	CheckPlatformHealth(ctx context.Context) map[model.Platform]error
}

type maintenanceUC struct {
	contents  repository.ContentRepository
	publisher PublishUseCase
	notifier  adapter.Notifier
	platforms []model.Platform
	retention time.Duration

	log *zerolog.Logger
}

func NewMaintenanceUseCase(
	contents repository.ContentRepository,
	publisher PublishUseCase,
	notifier adapter.Notifier,
	platforms []model.Platform,
	retention time.Duration,
	logger *zerolog.Logger,
) *maintenanceUC {
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	return &maintenanceUC{
		contents:  contents,
		publisher: publisher,
		notifier:  notifier,
		platforms: platforms,
		retention: retention,
		log:       logger,
	}
}

func (u *maintenanceUC) CleanupRejected(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-u.retention)
	n, err := u.contents.DeleteRejectedBefore(ctx, repository.NoTX, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old rejected items: %w", err)
	}
	if n > 0 {
		logging.With(ctx, u.log).Info().Int64("deleted", n).Time("cutoff", cutoff).Msg("purged old rejected items")
	}
	return n, nil
}

func (u *maintenanceUC) CheckPlatformHealth(ctx context.Context) map[model.Platform]error {
	log := logging.With(ctx, u.log)
	results := make(map[model.Platform]error, len(u.platforms))

	for _, platform := range u.platforms {
		err := u.publisher.VerifyCredentials(ctx, platform)
		results[platform] = err
		if err == nil {
			log.Info().Str("platform", string(platform)).Msg("credentials ok")
			continue
		}
		log.Error().Err(err).Str("platform", string(platform)).Msg("credential check failed")
		if u.notifier != nil {
			notifyErr := u.notifier.Notify(ctx, adapter.EventHealthAlert, adapter.NotifyPayload{
				Platform: string(platform),
				Message:  err.Error(),
			})
			if notifyErr != nil {
				log.Warn().Err(notifyErr).Msg("health alert notification failed")
			}
		}
	}
	return results
}
