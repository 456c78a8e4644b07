//go:build integration

package postgres

import (
	"context"
	"testing"

	"content-pipeline/internal/domain/model"
)

func TestApprovalLogRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	ctx := context.Background()
	tm := NewTxManager(testPool)
	contentRepo := NewContentRepo(testPool, tm)
	logRepo := NewApprovalLogRepo(testPool)

	t.Run("append and list preserve order and details", func(t *testing.T) {
		cleanup(t)

		item := approvedItem("audited")
		if err := contentRepo.Save(ctx, nil, item); err != nil {
			t.Fatalf("Save() failed: %v", err)
		}

		first := model.NewApprovalLogEntry(item.ID, model.ActionEdited, "olena", map[string]string{"field": "translated_title"})
		second := model.NewApprovalLogEntry(item.ID, model.ActionApproved, "olena", nil)
		for _, e := range []*model.ApprovalLogEntry{first, second} {
			if err := logRepo.Append(ctx, nil, e); err != nil {
				t.Fatalf("Append() failed: %v", err)
			}
		}

		entries, err := logRepo.ListByContent(ctx, nil, item.ID)
		if err != nil {
			t.Fatalf("ListByContent() failed: %v", err)
		}
		if len(entries) != 2 {
			t.Fatalf("got %d entries, want 2", len(entries))
		}
		if entries[0].Action != model.ActionEdited || entries[1].Action != model.ActionApproved {
			t.Errorf("entries out of order: %v then %v", entries[0].Action, entries[1].Action)
		}
		if entries[0].Details["field"] != "translated_title" {
			t.Errorf("details lost: %v", entries[0].Details)
		}
		if entries[1].Moderator != "olena" {
			t.Errorf("moderator = %q", entries[1].Moderator)
		}
	})

	t.Run("list is scoped to one item", func(t *testing.T) {
		cleanup(t)

		a := approvedItem("a")
		b := approvedItem("b")
		for _, it := range []*model.ContentItem{a, b} {
			if err := contentRepo.Save(ctx, nil, it); err != nil {
				t.Fatalf("Save() failed: %v", err)
			}
		}
		if err := logRepo.Append(ctx, nil, model.NewApprovalLogEntry(a.ID, model.ActionApproved, "ivan", nil)); err != nil {
			t.Fatalf("Append() failed: %v", err)
		}

		entries, err := logRepo.ListByContent(ctx, nil, b.ID)
		if err != nil {
			t.Fatalf("ListByContent() failed: %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("got %d entries for the other item, want none", len(entries))
		}
	})
}
