package repository

import (
	"context"
	"time"

	"content-pipeline/internal/domain/model"
)

// ContentRepository persists ContentItems and implements the claim primitive
// the sweeps rely on. All status mutation goes through the claim-then-
// transition methods below; there is no generic status setter.
type ContentRepository interface {
	Save(ctx context.Context, tx Tx, item *model.ContentItem) error
	FindByID(ctx context.Context, tx Tx, id int64) (*model.ContentItem, error)
	ListByStatus(ctx context.Context, tx Tx, status model.Status, limit int) ([]*model.ContentItem, error)

	// ClaimNextForPosting atomically selects the newest eligible approved
	// item for the platform and flips it to posting_<platform> before
	// returning. Rows locked by a concurrent claim are skipped, not waited
	// on. Items whose outcome witness already exists are still handed out
	// so an interrupted publish can be finished. Returns domain.ErrNotFound
	// when no candidate exists.
	ClaimNextForPosting(ctx context.Context, platform model.Platform, now time.Time) (*model.ContentItem, error)

	// RecordOutcome durably stores the idempotency witness for one platform.
	// Committed separately from MarkPosted so a crash between the two leaves
	// the witness behind for the next sweep to find.
	RecordOutcome(ctx context.Context, tx Tx, id int64, platform model.Platform, outcome *model.PostOutcome) error

	// MarkPosted finishes posting_<platform> -> posted. Also legal from
	// approved, for the short-circuit path that discovers an existing witness.
	MarkPosted(ctx context.Context, tx Tx, id int64, platform model.Platform) error

	// ReleaseForRetry returns a posting_<platform> item to approved,
	// incrementing the platform retry counter and recording the failure.
	ReleaseForRetry(ctx context.Context, tx Tx, id int64, platform model.Platform, reason string, kind model.FailureKind) error

	// ReleaseClaim returns a posting_<platform> item to approved without
	// touching the retry counter. For backoff that is not the item's fault,
	// rate limiting for one.
	ReleaseClaim(ctx context.Context, tx Tx, id int64, platform model.Platform) error

	// ResetRetries clears the retry counter for operator-driven re-runs.
	ResetRetries(ctx context.Context, tx Tx, id int64, platform model.Platform) error

	// ReclaimStale flips posting_<platform> rows whose claim is older than
	// olderThan back to approved, returning how many were reclaimed. Covers
	// workers that crashed mid-attempt.
	ReclaimStale(ctx context.Context, platform model.Platform, olderThan time.Duration) (int, error)

	// DeleteRejectedBefore removes rejected items created before cutoff.
	DeleteRejectedBefore(ctx context.Context, tx Tx, cutoff time.Time) (int64, error)

	// ListNeedingTranslation returns drafts awaiting translation.
	ListNeedingTranslation(ctx context.Context, tx Tx, limit int) ([]*model.ContentItem, error)

	// ListNeedingImage returns items ready for an illustration: translated
	// pending_approval items plus drafts that skip translation.
	ListNeedingImage(ctx context.Context, tx Tx, limit int) ([]*model.ContentItem, error)

	// LatestCreatedAt returns the newest item creation time, or zero time
	// when the table is empty. Used by catch-up recovery.
	LatestCreatedAt(ctx context.Context, tx Tx) (time.Time, error)

	// LatestPostedAt returns the newest successful publish time for the
	// platform, or zero time when none exists.
	LatestPostedAt(ctx context.Context, tx Tx, platform model.Platform) (time.Time, error)

	CountByStatus(ctx context.Context, tx Tx) (map[model.Status]int, error)
}
