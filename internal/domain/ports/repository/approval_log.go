package repository

import (
	"context"

	"content-pipeline/internal/domain/model"
)

// ApprovalLogRepository stores the append-only moderation audit trail.
type ApprovalLogRepository interface {
	Append(ctx context.Context, tx Tx, entry *model.ApprovalLogEntry) error
	ListByContent(ctx context.Context, tx Tx, contentID int64) ([]*model.ApprovalLogEntry, error)
}
