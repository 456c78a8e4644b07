package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"content-pipeline/internal/domain"
	"content-pipeline/internal/domain/model"
	"content-pipeline/internal/domain/ports/adapter"
	"content-pipeline/internal/domain/ports/repository"
	"content-pipeline/internal/infra/logging"
)

// Compile-time check
var _ ApprovalUseCase = (*approvalUC)(nil)

// EditRequest carries the moderator's pre-approval corrections. Nil fields
// are left untouched.
type EditRequest struct {
	TranslatedTitle   *string
	TranslatedText    *string
	ScheduledPostTime *time.Time
	Platforms         []model.Platform
}

// ApproveRequest carries the approval decision plus optional schedule and
// platform overrides, applied in the same transaction as the transition.
// PublishNow and ScheduledPostTime are mutually exclusive.
type ApproveRequest struct {
	PublishNow        bool
	ScheduledPostTime *time.Time
	Platforms         []model.Platform
}

// ApprovalUseCase is the moderation surface: list what waits, approve,
// reject, edit, and inspect the audit trail.
type ApprovalUseCase interface {
	ListPending(ctx context.Context, limit int) ([]*model.ContentItem, error)
	Get(ctx context.Context, id int64) (*model.ContentItem, error)
	// Approve moves pending_approval -> approved, optionally overriding the
	// schedule or target platforms. With PublishNow the schedule is cleared
	// so the next sweep picks the item up immediately, and a sweep is kicked
	// off right away.
	Approve(ctx context.Context, id int64, moderator string, req ApproveRequest) error
	// Reject requires a non-empty reason and is terminal.
	Reject(ctx context.Context, id int64, moderator, reason string) error
	// Edit updates moderator-editable fields while the item still waits.
	Edit(ctx context.Context, id int64, moderator string, req EditRequest) error
	AuditTrail(ctx context.Context, id int64) ([]*model.ApprovalLogEntry, error)
	// ResetRetries clears a platform's retry counter after an operator
	// fixed the underlying failure.
	ResetRetries(ctx context.Context, id int64, platform model.Platform) error
}

type approvalUC struct {
	contents repository.ContentRepository
	auditLog repository.ApprovalLogRepository
	tm       repository.TransactionManager
	notifier adapter.Notifier
	// publisher, when set, receives an immediate sweep after an approve
	// with publishNow.
	publisher PublishUseCase

	log *zerolog.Logger
}

func NewApprovalUseCase(
	contents repository.ContentRepository,
	auditLog repository.ApprovalLogRepository,
	tm repository.TransactionManager,
	notifier adapter.Notifier,
	publisher PublishUseCase,
	logger *zerolog.Logger,
) *approvalUC {
	return &approvalUC{
		contents:  contents,
		auditLog:  auditLog,
		tm:        tm,
		notifier:  notifier,
		publisher: publisher,
		log:       logger,
	}
}

func (u *approvalUC) ListPending(ctx context.Context, limit int) ([]*model.ContentItem, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return u.contents.ListByStatus(ctx, repository.NoTX, model.StatusPendingApproval, limit)
}

func (u *approvalUC) Get(ctx context.Context, id int64) (*model.ContentItem, error) {
	return u.contents.FindByID(ctx, repository.NoTX, id)
}

func (u *approvalUC) Approve(ctx context.Context, id int64, moderator string, req ApproveRequest) error {
	if req.PublishNow && req.ScheduledPostTime != nil {
		return fmt.Errorf("%w: publish now conflicts with a scheduled post time", domain.ErrInvalidArgument)
	}
	for _, p := range req.Platforms {
		if !p.Valid() {
			return fmt.Errorf("%w: unknown platform %q", domain.ErrInvalidArgument, p)
		}
	}

	var targets []model.Platform

	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		item, err := u.contents.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := item.TransitionTo(model.StatusApproved); err != nil {
			return fmt.Errorf("approve item %d in status %q: %w", id, item.Status, err)
		}
		now := time.Now()
		item.ReviewedAt = &now
		item.ReviewedBy = moderator
		if req.ScheduledPostTime != nil {
			item.ScheduledPostTime = req.ScheduledPostTime
		}
		if len(req.Platforms) > 0 {
			item.Platforms = req.Platforms
		}
		if req.PublishNow {
			item.ScheduledPostTime = nil
		}
		if err := u.contents.Save(ctx, tx, item); err != nil {
			return err
		}

		details := map[string]string{}
		if req.PublishNow {
			details["publish_now"] = "true"
		}
		if req.ScheduledPostTime != nil {
			details["scheduled_post_time"] = req.ScheduledPostTime.Format(time.RFC3339)
		}
		if len(req.Platforms) > 0 {
			details["platforms"] = platformList(req.Platforms)
		}
		if err := u.auditLog.Append(ctx, tx, model.NewApprovalLogEntry(id, model.ActionApproved, moderator, details)); err != nil {
			return err
		}
		targets = item.Platforms
		return nil
	})
	if err != nil {
		return err
	}

	logging.With(ctx, u.log).Info().Int64("content_id", id).Str("moderator", moderator).Bool("publish_now", req.PublishNow).Msg("approved")
	u.notify(ctx, adapter.EventApproved, adapter.NotifyPayload{ContentID: id, Moderator: moderator})

	// Publish-now goes through the same sweep entry point the scheduler
	// uses, so the claim and idempotency guarantees hold here too. Sweep
	// failures are logged, not returned: the approval itself committed.
	if req.PublishNow && u.publisher != nil {
		for _, platform := range targets {
			if _, err := u.publisher.SweepPlatform(ctx, platform); err != nil {
				u.log.Error().Err(err).Str("platform", string(platform)).Msg("publish-now sweep failed")
			}
		}
	}
	return nil
}

func (u *approvalUC) Reject(ctx context.Context, id int64, moderator, reason string) error {
	if reason == "" {
		return domain.ErrReasonRequired
	}

	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		item, err := u.contents.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := item.TransitionTo(model.StatusRejected); err != nil {
			return fmt.Errorf("reject item %d in status %q: %w", id, item.Status, err)
		}
		now := time.Now()
		item.ReviewedAt = &now
		item.ReviewedBy = moderator
		item.RejectionReason = reason
		if err := u.contents.Save(ctx, tx, item); err != nil {
			return err
		}
		return u.auditLog.Append(ctx, tx, model.NewApprovalLogEntry(id, model.ActionRejected, moderator, map[string]string{
			"reason": reason,
		}))
	})
	if err != nil {
		return err
	}

	logging.With(ctx, u.log).Info().Int64("content_id", id).Str("moderator", moderator).Msg("rejected")
	u.notify(ctx, adapter.EventRejected, adapter.NotifyPayload{ContentID: id, Moderator: moderator, Message: reason})
	return nil
}

func (u *approvalUC) Edit(ctx context.Context, id int64, moderator string, req EditRequest) error {
	return u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		item, err := u.contents.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		// Edits only make sense while a moderator still holds the item.
		if item.Status != model.StatusPendingApproval && item.Status != model.StatusDraft {
			return fmt.Errorf("edit item %d in status %q: %w", id, item.Status, domain.ErrInvalidTransition)
		}

		details := map[string]string{}
		if req.TranslatedTitle != nil {
			item.TranslatedTitle = *req.TranslatedTitle
			details["translated_title"] = *req.TranslatedTitle
		}
		if req.TranslatedText != nil {
			item.TranslatedText = *req.TranslatedText
			details["translated_text"] = "updated"
		}
		if req.ScheduledPostTime != nil {
			item.ScheduledPostTime = req.ScheduledPostTime
			details["scheduled_post_time"] = req.ScheduledPostTime.Format(time.RFC3339)
		}
		if len(req.Platforms) > 0 {
			for _, p := range req.Platforms {
				if !p.Valid() {
					return fmt.Errorf("%w: unknown platform %q", domain.ErrInvalidArgument, p)
				}
			}
			item.Platforms = req.Platforms
		}
		if len(details) == 0 && len(req.Platforms) == 0 {
			return domain.ErrInvalidArgument
		}

		if err := u.contents.Save(ctx, tx, item); err != nil {
			return err
		}
		return u.auditLog.Append(ctx, tx, model.NewApprovalLogEntry(id, model.ActionEdited, moderator, details))
	})
}

func (u *approvalUC) AuditTrail(ctx context.Context, id int64) ([]*model.ApprovalLogEntry, error) {
	if _, err := u.contents.FindByID(ctx, repository.NoTX, id); err != nil {
		return nil, err
	}
	return u.auditLog.ListByContent(ctx, repository.NoTX, id)
}

func (u *approvalUC) ResetRetries(ctx context.Context, id int64, platform model.Platform) error {
	if !platform.Valid() {
		return fmt.Errorf("%w: unknown platform %q", domain.ErrInvalidArgument, platform)
	}
	if _, err := u.contents.FindByID(ctx, repository.NoTX, id); err != nil {
		return err
	}
	return u.contents.ResetRetries(ctx, repository.NoTX, id, platform)
}

func platformList(platforms []model.Platform) string {
	names := make([]string, len(platforms))
	for i, p := range platforms {
		names[i] = string(p)
	}
	return strings.Join(names, ",")
}

func (u *approvalUC) notify(ctx context.Context, event adapter.NotifyEvent, payload adapter.NotifyPayload) {
	if u.notifier == nil {
		return
	}
	if err := u.notifier.Notify(ctx, event, payload); err != nil {
		logging.With(ctx, u.log).Warn().Err(err).Str("event", string(event)).Msg("notification failed")
	}
}
