package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"content-pipeline/internal/domain"
	"content-pipeline/internal/domain/model"
	"content-pipeline/internal/domain/ports/adapter"
)

func TestMaintenanceUC_CleanupRejected(t *testing.T) {
	ctx := context.Background()
	repo := newMemContentRepo()

	old := pendingFixture()
	old.Status = model.StatusRejected
	old.CreatedAt = time.Now().Add(-45 * 24 * time.Hour)
	oldStored := repo.add(old)

	recent := pendingFixture()
	recent.Status = model.StatusRejected
	recentStored := repo.add(recent)

	keeper := repo.add(pendingFixture())

	uc := NewMaintenanceUseCase(repo, nil, &mockNotifier{}, nil, 30*24*time.Hour, nopLogger())

	n, err := uc.CleanupRejected(ctx)
	if err != nil {
		t.Fatalf("CleanupRejected() failed: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d, want 1", n)
	}
	if _, err := repo.FindByID(ctx, nil, oldStored.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Error("old rejected item survived the purge")
	}
	if _, err := repo.FindByID(ctx, nil, recentStored.ID); err != nil {
		t.Error("recent rejected item was purged")
	}
	if _, err := repo.FindByID(ctx, nil, keeper.ID); err != nil {
		t.Error("non-rejected item was purged")
	}
}

func TestMaintenanceUC_CheckPlatformHealth(t *testing.T) {
	ctx := context.Background()

	t.Run("all healthy", func(t *testing.T) {
		repo := newMemContentRepo()
		poster := &mockPoster{platform: model.PlatformFacebook}
		publisher, _ := newPublishFixture(repo, poster)
		notifier := &mockNotifier{}
		uc := NewMaintenanceUseCase(repo, publisher, notifier, []model.Platform{model.PlatformFacebook}, 0, nopLogger())

		results := uc.CheckPlatformHealth(ctx)
		if err := results[model.PlatformFacebook]; err != nil {
			t.Errorf("facebook health = %v, want nil", err)
		}
		if events := notifier.eventsSeen(); len(events) != 0 {
			t.Errorf("events = %v, want none", events)
		}
	})

	t.Run("expired token raises a health alert", func(t *testing.T) {
		repo := newMemContentRepo()
		poster := &mockPoster{
			platform: model.PlatformFacebook,
			verifyFn: func(ctx context.Context) error { return errors.New("token expired") },
		}
		publisher, _ := newPublishFixture(repo, poster)
		notifier := &mockNotifier{}
		uc := NewMaintenanceUseCase(repo, publisher, notifier, []model.Platform{model.PlatformFacebook}, 0, nopLogger())

		results := uc.CheckPlatformHealth(ctx)
		if results[model.PlatformFacebook] == nil {
			t.Error("expected a facebook failure")
		}
		events := notifier.eventsSeen()
		if len(events) != 1 || events[0] != adapter.EventHealthAlert {
			t.Errorf("events = %v, want one health alert", events)
		}
	})

	t.Run("one bad platform does not mask the others", func(t *testing.T) {
		repo := newMemContentRepo()
		fb := &mockPoster{
			platform: model.PlatformFacebook,
			verifyFn: func(ctx context.Context) error { return errors.New("token expired") },
		}
		li := &mockPoster{platform: model.PlatformLinkedIn}
		publisher := NewPublishUseCase(
			repo,
			map[model.Platform]adapter.PlatformPoster{fb.platform: fb, li.platform: li},
			&mockNotifier{},
			&mockLimiter{},
			30*time.Minute,
			0,
			"",
			nopLogger(),
		)
		uc := NewMaintenanceUseCase(repo, publisher, &mockNotifier{},
			[]model.Platform{model.PlatformFacebook, model.PlatformLinkedIn}, 0, nopLogger())

		results := uc.CheckPlatformHealth(ctx)
		if results[model.PlatformFacebook] == nil {
			t.Error("expected a facebook failure")
		}
		if results[model.PlatformLinkedIn] != nil {
			t.Errorf("linkedin health = %v, want nil", results[model.PlatformLinkedIn])
		}
	})
}
