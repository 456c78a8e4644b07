package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"content-pipeline/internal/domain"
	"content-pipeline/internal/domain/model"
	"content-pipeline/internal/domain/ports/repository"
)

var _ repository.ApprovalLogRepository = (*approvalLogRepo)(nil)

type approvalLogRepo struct {
	pool *pgxpool.Pool
}

func NewApprovalLogRepo(pool *pgxpool.Pool) *approvalLogRepo {
	return &approvalLogRepo{pool: pool}
}

func (r *approvalLogRepo) Append(ctx context.Context, tx repository.Tx, entry *model.ApprovalLogEntry) error {
	if entry == nil || entry.ID == "" {
		return domain.ErrInvalidArgument
	}
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO approval_log (id, content_id, action, moderator, at, details)
VALUES ($1, $2, $3, $4, $5, $6);`
	_, err = execSQL(ctx, r.pool, tx, q,
		entry.ID, entry.ContentID, string(entry.Action), entry.Moderator, entry.At, details)
	return err
}

func (r *approvalLogRepo) ListByContent(ctx context.Context, tx repository.Tx, contentID int64) ([]*model.ApprovalLogEntry, error) {
	const q = `
SELECT id, content_id, action, moderator, at, details
FROM approval_log WHERE content_id = $1 ORDER BY id;`
	rows, err := pickRows(ctx, r.pool, tx, q, contentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*model.ApprovalLogEntry
	for rows.Next() {
		var (
			e       model.ApprovalLogEntry
			action  string
			at      time.Time
			details []byte
		)
		if err := rows.Scan(&e.ID, &e.ContentID, &action, &e.Moderator, &at, &details); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		e.Action = model.ApprovalAction(action)
		e.At = at
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, domain.ErrReadDatabaseRow
			}
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
