package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"content-pipeline/internal/domain/model"
	"content-pipeline/internal/domain/ports/adapter"
	"content-pipeline/internal/domain/ports/repository"
	"content-pipeline/internal/infra/logging"
)

// Compile-time check
var _ PipelineUseCase = (*pipelineUC)(nil)

// PipelineUseCase runs the collaborator sweeps that move drafts toward
// moderation: translation first, then illustration. Both are idempotent
// batch jobs driven by the scheduler.
type PipelineUseCase interface {
	// TranslatePending translates drafts flagged for translation and
	// promotes them to pending_approval. Returns how many were translated.
	TranslatePending(ctx context.Context, limit int) (int, error)
	// GenerateImages illustrates items missing an image. Drafts that skip
	// translation are promoted to pending_approval here. Returns how many
	// items received an image.
	GenerateImages(ctx context.Context, limit int) (int, error)
}

type pipelineUC struct {
	contents   repository.ContentRepository
	translator adapter.Translator
	images     adapter.ImageGenerator
	notifier   adapter.Notifier
	targetLang string

	log *zerolog.Logger
}

func NewPipelineUseCase(
	contents repository.ContentRepository,
	translator adapter.Translator,
	images adapter.ImageGenerator,
	notifier adapter.Notifier,
	targetLang string,
	logger *zerolog.Logger,
) *pipelineUC {
	if targetLang == "" {
		targetLang = "uk"
	}
	return &pipelineUC{
		contents:   contents,
		translator: translator,
		images:     images,
		notifier:   notifier,
		targetLang: targetLang,
		log:        logger,
	}
}

func (u *pipelineUC) TranslatePending(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 20
	}
	items, err := u.contents.ListNeedingTranslation(ctx, repository.NoTX, limit)
	if err != nil {
		return 0, fmt.Errorf("list needing translation: %w", err)
	}

	translated := 0
	for _, item := range items {
		itemCtx := logging.WithContentID(ctx, item.ID)
		log := logging.With(itemCtx, u.log)

		tr, err := u.translator.Translate(itemCtx, item.SourceTitle, item.OriginalText, u.targetLang)
		if err != nil {
			// Leave the item as a draft; the next sweep retries it.
			log.Error().Err(err).Msg("translation failed")
			continue
		}
		item.TranslatedTitle = tr.Title
		item.TranslatedText = tr.Body
		item.Language = u.targetLang
		if err := item.TransitionTo(model.StatusPendingApproval); err != nil {
			log.Error().Err(err).Str("status", string(item.Status)).Msg("cannot promote translated item")
			continue
		}
		if err := u.contents.Save(itemCtx, repository.NoTX, item); err != nil {
			log.Error().Err(err).Msg("save translated item failed")
			continue
		}
		translated++
		log.Info().Msg("translated and queued for moderation")
		u.notifyNeedsApproval(itemCtx, item)
	}
	return translated, nil
}

func (u *pipelineUC) GenerateImages(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 20
	}
	items, err := u.contents.ListNeedingImage(ctx, repository.NoTX, limit)
	if err != nil {
		return 0, fmt.Errorf("list needing image: %w", err)
	}

	illustrated := 0
	for _, item := range items {
		itemCtx := logging.WithContentID(ctx, item.ID)
		log := logging.With(itemCtx, u.log)

		img, err := u.images.GenerateForArticle(itemCtx, item.Title(), item.Body())
		if err != nil {
			log.Error().Err(err).Msg("image generation failed")
			continue
		}
		item.ImageData = img.Data
		item.ImagePrompt = img.Prompt
		if img.URL != "" {
			item.ImageURL = img.URL
		}

		// Items that never needed translation reach moderation here.
		promoted := false
		if item.Status == model.StatusDraft {
			if err := item.TransitionTo(model.StatusPendingApproval); err != nil {
				log.Error().Err(err).Msg("cannot promote illustrated draft")
				continue
			}
			promoted = true
		}
		if err := u.contents.Save(itemCtx, repository.NoTX, item); err != nil {
			log.Error().Err(err).Msg("save illustrated item failed")
			continue
		}
		if len(img.Data) > 0 {
			illustrated++
		}
		log.Info().Bool("promoted", promoted).Msg("illustration attached")
		if promoted {
			u.notifyNeedsApproval(itemCtx, item)
		}
	}
	return illustrated, nil
}

func (u *pipelineUC) notifyNeedsApproval(ctx context.Context, item *model.ContentItem) {
	if u.notifier == nil {
		return
	}
	err := u.notifier.Notify(ctx, adapter.EventNeedsApproval, adapter.NotifyPayload{
		ContentID: item.ID,
		Title:     item.Title(),
		Message:   item.Source,
	})
	if err != nil {
		logging.With(ctx, u.log).Warn().Err(err).Msg("needs-approval notification failed")
	}
}
