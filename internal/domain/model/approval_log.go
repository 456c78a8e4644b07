package model

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// ApprovalAction enumerates the recorded moderation actions.
type ApprovalAction string

const (
	ActionApproved ApprovalAction = "approved"
	ActionRejected ApprovalAction = "rejected"
	ActionEdited   ApprovalAction = "edited"
)

// ApprovalLogEntry is one append-only audit record. Entries are never
// updated or deleted.
type ApprovalLogEntry struct {
	ID        string
	ContentID int64
	Action    ApprovalAction
	Moderator string
	At        time.Time
	Details   map[string]string
}

// NewApprovalLogEntry builds an entry with a sortable ULID id.
func NewApprovalLogEntry(contentID int64, action ApprovalAction, moderator string, details map[string]string) *ApprovalLogEntry {
	now := time.Now().UTC()
	return &ApprovalLogEntry{
		ID:        ulid.MustNew(ulid.Timestamp(now), rand.Reader).String(),
		ContentID: contentID,
		Action:    action,
		Moderator: moderator,
		At:        now,
		Details:   details,
	}
}
