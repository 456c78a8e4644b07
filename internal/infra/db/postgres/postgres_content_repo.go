package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"content-pipeline/internal/domain"
	"content-pipeline/internal/domain/model"
	"content-pipeline/internal/domain/ports/repository"
)

var _ repository.ContentRepository = (*contentRepo)(nil)

type contentRepo struct {
	pool *pgxpool.Pool
	tm   repository.TransactionManager
}

func NewContentRepo(pool *pgxpool.Pool, tm repository.TransactionManager) *contentRepo {
	return &contentRepo{pool: pool, tm: tm}
}

const contentColumns = `
id, status, source, source_url, source_title,
original_text, translated_title, translated_text, language, needs_translation, author,
image_url, image_prompt, local_image_path, image_data,
platforms, scheduled_post_time,
created_at, reviewed_at, reviewed_by, rejection_reason, claimed_at`

// rowScanner is what pgx.Row and pgx.Rows have in common.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanContent(row rowScanner) (*model.ContentItem, error) {
	var (
		it        model.ContentItem
		status    string
		platforms []string
	)
	err := row.Scan(
		&it.ID, &status, &it.Source, &it.SourceURL, &it.SourceTitle,
		&it.OriginalText, &it.TranslatedTitle, &it.TranslatedText, &it.Language, &it.NeedsTranslation, &it.Author,
		&it.ImageURL, &it.ImagePrompt, &it.LocalImagePath, &it.ImageData,
		&platforms, &it.ScheduledPostTime,
		&it.CreatedAt, &it.ReviewedAt, &it.ReviewedBy, &it.RejectionReason, &it.ClaimedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	it.Status = model.Status(status)
	for _, p := range platforms {
		it.Platforms = append(it.Platforms, model.Platform(p))
	}
	return &it, nil
}

// Save inserts or updates the content row itself. Per-platform outcome rows
// are managed only by RecordOutcome, ReleaseForRetry and ResetRetries.
func (r *contentRepo) Save(ctx context.Context, tx repository.Tx, item *model.ContentItem) error {
	platforms := make([]string, 0, len(item.Platforms))
	for _, p := range item.Platforms {
		platforms = append(platforms, string(p))
	}

	if item.ID == 0 {
		if item.CreatedAt.IsZero() {
			item.CreatedAt = time.Now()
		}
		const q = `
INSERT INTO content_items
  (status, source, source_url, source_title,
   original_text, translated_title, translated_text, language, needs_translation, author,
   image_url, image_prompt, local_image_path, image_data,
   platforms, scheduled_post_time,
   created_at, reviewed_at, reviewed_by, rejection_reason, claimed_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
RETURNING id;`
		row, err := pickRow(ctx, r.pool, tx, q,
			string(item.Status), item.Source, item.SourceURL, item.SourceTitle,
			item.OriginalText, item.TranslatedTitle, item.TranslatedText, item.Language, item.NeedsTranslation, item.Author,
			item.ImageURL, item.ImagePrompt, item.LocalImagePath, item.ImageData,
			platforms, item.ScheduledPostTime,
			item.CreatedAt, item.ReviewedAt, item.ReviewedBy, item.RejectionReason, item.ClaimedAt)
		if err != nil {
			return err
		}
		return row.Scan(&item.ID)
	}

	const q = `
UPDATE content_items SET
  status = $2, source = $3, source_url = $4, source_title = $5,
  original_text = $6, translated_title = $7, translated_text = $8, language = $9, needs_translation = $10, author = $11,
  image_url = $12, image_prompt = $13, local_image_path = $14, image_data = $15,
  platforms = $16, scheduled_post_time = $17,
  reviewed_at = $18, reviewed_by = $19, rejection_reason = $20, claimed_at = $21
WHERE id = $1;`
	ct, err := execSQL(ctx, r.pool, tx, q,
		item.ID,
		string(item.Status), item.Source, item.SourceURL, item.SourceTitle,
		item.OriginalText, item.TranslatedTitle, item.TranslatedText, item.Language, item.NeedsTranslation, item.Author,
		item.ImageURL, item.ImagePrompt, item.LocalImagePath, item.ImageData,
		platforms, item.ScheduledPostTime,
		item.ReviewedAt, item.ReviewedBy, item.RejectionReason, item.ClaimedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *contentRepo) FindByID(ctx context.Context, tx repository.Tx, id int64) (*model.ContentItem, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+contentColumns+` FROM content_items WHERE id = $1;`, id)
	if err != nil {
		return nil, err
	}
	it, err := scanContent(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadPlatformState(ctx, tx, it); err != nil {
		return nil, err
	}
	return it, nil
}

func (r *contentRepo) ListByStatus(ctx context.Context, tx repository.Tx, status model.Status, limit int) ([]*model.ContentItem, error) {
	const q = `SELECT ` + contentColumns + `
FROM content_items WHERE status = $1 ORDER BY created_at DESC LIMIT $2;`
	return r.list(ctx, tx, q, string(status), limit)
}

// ClaimNextForPosting implements the sweep's selection step: newest approved
// item targeting the platform, schedule reached, retries below the cap. Rows
// whose outcome witness already exists stay claimable on purpose: a crash
// between RecordOutcome and MarkPosted leaves the item approved with the
// witness, and the next claim hands it out so the sweep can finish it without
// posting again. The row lock plus SKIP LOCKED keeps concurrent sweeps off
// the same item; the status flip inside the same transaction makes the claim
// durable before any network call happens.
func (r *contentRepo) ClaimNextForPosting(ctx context.Context, platform model.Platform, now time.Time) (*model.ContentItem, error) {
	var claimed *model.ContentItem

	err := r.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		const q = `
SELECT ` + contentColumns + `
FROM content_items
WHERE status = 'approved'
  AND $1 = ANY(platforms)
  AND (scheduled_post_time IS NULL OR scheduled_post_time <= $2)
  AND id NOT IN (
      SELECT content_id FROM content_platform_state
      WHERE platform = $1 AND retry_count >= $3)
ORDER BY created_at DESC
LIMIT 1
FOR UPDATE SKIP LOCKED;`

		row, err := pickRow(ctx, r.pool, tx, q, string(platform), now, model.MaxPublishRetries)
		if err != nil {
			return err
		}
		it, err := scanContent(row)
		if err != nil {
			return err
		}

		if err := it.TransitionTo(model.PostingStatus(platform)); err != nil {
			return err
		}
		claimedAt := now
		it.ClaimedAt = &claimedAt

		_, err = execSQL(ctx, r.pool, tx,
			`UPDATE content_items SET status = $1, claimed_at = $2 WHERE id = $3;`,
			string(it.Status), claimedAt, it.ID)
		if err != nil {
			return err
		}

		if err := r.loadPlatformState(ctx, tx, it); err != nil {
			return err
		}
		claimed = it
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *contentRepo) RecordOutcome(ctx context.Context, tx repository.Tx, id int64, platform model.Platform, outcome *model.PostOutcome) error {
	if outcome == nil || outcome.PostID == "" {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO content_platform_state (content_id, platform, post_id, post_url, posted_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (content_id, platform) DO UPDATE SET
  post_id = EXCLUDED.post_id,
  post_url = EXCLUDED.post_url,
  posted_at = EXCLUDED.posted_at
WHERE content_platform_state.posted_at IS NULL;`
	_, err := execSQL(ctx, r.pool, tx, q, id, string(platform), outcome.PostID, outcome.PostURL, outcome.PostedAt)
	return err
}

func (r *contentRepo) MarkPosted(ctx context.Context, tx repository.Tx, id int64, platform model.Platform) error {
	const q = `
UPDATE content_items SET status = 'posted', claimed_at = NULL
WHERE id = $1 AND status IN ($2, 'approved');`
	ct, err := execSQL(ctx, r.pool, tx, q, id, string(model.PostingStatus(platform)))
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrInvalidTransition
	}
	return nil
}

func (r *contentRepo) ReleaseForRetry(ctx context.Context, tx repository.Tx, id int64, platform model.Platform, reason string, kind model.FailureKind) error {
	const release = `
UPDATE content_items SET status = 'approved', claimed_at = NULL
WHERE id = $1 AND status = $2;`
	ct, err := execSQL(ctx, r.pool, tx, release, id, string(model.PostingStatus(platform)))
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrInvalidTransition
	}

	const bump = `
INSERT INTO content_platform_state (content_id, platform, retry_count, last_error, failure_kind, last_failed_at)
VALUES ($1, $2, 1, $3, $4, now())
ON CONFLICT (content_id, platform) DO UPDATE SET
  retry_count = content_platform_state.retry_count + 1,
  last_error = EXCLUDED.last_error,
  failure_kind = EXCLUDED.failure_kind,
  last_failed_at = now();`
	_, err = execSQL(ctx, r.pool, tx, bump, id, string(platform), reason, string(kind))
	return err
}

func (r *contentRepo) ReleaseClaim(ctx context.Context, tx repository.Tx, id int64, platform model.Platform) error {
	const q = `
UPDATE content_items SET status = 'approved', claimed_at = NULL
WHERE id = $1 AND status = $2;`
	ct, err := execSQL(ctx, r.pool, tx, q, id, string(model.PostingStatus(platform)))
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrInvalidTransition
	}
	return nil
}

func (r *contentRepo) ResetRetries(ctx context.Context, tx repository.Tx, id int64, platform model.Platform) error {
	const q = `
UPDATE content_platform_state
SET retry_count = 0, last_error = '', failure_kind = '', last_failed_at = NULL
WHERE content_id = $1 AND platform = $2;`
	_, err := execSQL(ctx, r.pool, tx, q, id, string(platform))
	return err
}

func (r *contentRepo) ReclaimStale(ctx context.Context, platform model.Platform, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	const q = `
UPDATE content_items SET status = 'approved', claimed_at = NULL
WHERE status = $1 AND claimed_at IS NOT NULL AND claimed_at < $2;`
	ct, err := execSQL(ctx, r.pool, repository.NoTX, q, string(model.PostingStatus(platform)), cutoff)
	if err != nil {
		return 0, err
	}
	return int(ct.RowsAffected()), nil
}

func (r *contentRepo) DeleteRejectedBefore(ctx context.Context, tx repository.Tx, cutoff time.Time) (int64, error) {
	const q = `DELETE FROM content_items WHERE status = 'rejected' AND created_at < $1;`
	ct, err := execSQL(ctx, r.pool, tx, q, cutoff)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

func (r *contentRepo) ListNeedingTranslation(ctx context.Context, tx repository.Tx, limit int) ([]*model.ContentItem, error) {
	const q = `SELECT ` + contentColumns + `
FROM content_items
WHERE status = 'draft' AND needs_translation AND translated_text = ''
ORDER BY created_at ASC LIMIT $1;`
	return r.list(ctx, tx, q, limit)
}

func (r *contentRepo) ListNeedingImage(ctx context.Context, tx repository.Tx, limit int) ([]*model.ContentItem, error) {
	const q = `SELECT ` + contentColumns + `
FROM content_items
WHERE (status = 'pending_approval' OR (status = 'draft' AND NOT needs_translation))
  AND image_data IS NULL AND local_image_path = '' AND image_url = ''
ORDER BY created_at ASC LIMIT $1;`
	return r.list(ctx, tx, q, limit)
}

func (r *contentRepo) LatestCreatedAt(ctx context.Context, tx repository.Tx) (time.Time, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT MAX(created_at) FROM content_items;`)
	if err != nil {
		return time.Time{}, err
	}
	var t *time.Time
	if err := row.Scan(&t); err != nil {
		return time.Time{}, domain.ErrReadDatabaseRow
	}
	if t == nil {
		return time.Time{}, nil
	}
	return *t, nil
}

func (r *contentRepo) LatestPostedAt(ctx context.Context, tx repository.Tx, platform model.Platform) (time.Time, error) {
	row, err := pickRow(ctx, r.pool, tx,
		`SELECT MAX(posted_at) FROM content_platform_state WHERE platform = $1;`, string(platform))
	if err != nil {
		return time.Time{}, err
	}
	var t *time.Time
	if err := row.Scan(&t); err != nil {
		return time.Time{}, domain.ErrReadDatabaseRow
	}
	if t == nil {
		return time.Time{}, nil
	}
	return *t, nil
}

func (r *contentRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.Status]int, error) {
	rows, err := pickRows(ctx, r.pool, tx, `SELECT status, COUNT(*) FROM content_items GROUP BY status;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[model.Status]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		counts[model.Status(status)] = n
	}
	return counts, rows.Err()
}

func (r *contentRepo) list(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.ContentItem, error) {
	rows, err := pickRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*model.ContentItem
	for rows.Next() {
		it, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, it := range items {
		if err := r.loadPlatformState(ctx, tx, it); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func (r *contentRepo) loadPlatformState(ctx context.Context, tx repository.Tx, it *model.ContentItem) error {
	const q = `
SELECT platform, post_id, post_url, posted_at, retry_count, last_error, failure_kind, last_failed_at
FROM content_platform_state WHERE content_id = $1;`
	rows, err := pickRows(ctx, r.pool, tx, q, it.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			platform string
			postID   string
			postURL  string
			postedAt *time.Time
			ps       model.PlatformState
			kind     string
		)
		if err := rows.Scan(&platform, &postID, &postURL, &postedAt,
			&ps.RetryCount, &ps.LastError, &kind, &ps.LastFailedAt); err != nil {
			return domain.ErrReadDatabaseRow
		}
		ps.FailureKind = model.FailureKind(kind)
		if postedAt != nil && postID != "" {
			ps.Outcome = &model.PostOutcome{PostID: postID, PostURL: postURL, PostedAt: *postedAt}
		}
		state := ps
		it.State(model.Platform(platform))
		it.PlatformState[model.Platform(platform)] = &state
	}
	return rows.Err()
}
