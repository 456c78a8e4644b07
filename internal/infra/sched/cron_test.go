package sched

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := New("UTC", zerolog.Nop())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return svc
}

func TestService_Register(t *testing.T) {
	t.Run("accepts five-field specs and descriptors", func(t *testing.T) {
		svc := newTestService(t)
		specs := []string{"0 18 * * *", "0 9 * * 1,3,5", "15 6,14,20 * * *", "@hourly"}
		for _, spec := range specs {
			err := svc.Register(JobSpec{ID: "j-" + spec, Name: spec, Spec: spec}, func(ctx context.Context) error { return nil })
			if err != nil {
				t.Errorf("Register(%q) failed: %v", spec, err)
			}
		}
	})

	t.Run("rejects malformed specs", func(t *testing.T) {
		svc := newTestService(t)
		err := svc.Register(JobSpec{ID: "bad", Spec: "not a cron line"}, func(ctx context.Context) error { return nil })
		if err == nil {
			t.Fatal("expected an error for a malformed spec")
		}
	})

	t.Run("rejects six-field specs", func(t *testing.T) {
		svc := newTestService(t)
		err := svc.Register(JobSpec{ID: "six", Spec: "0 0 18 * * *"}, func(ctx context.Context) error { return nil })
		if err == nil {
			t.Fatal("expected six-field spec to be rejected")
		}
	})

	t.Run("rejects unknown timezone at construction", func(t *testing.T) {
		if _, err := New("Mars/Olympus_Mons", zerolog.Nop()); err == nil {
			t.Fatal("expected an error for an unknown timezone")
		}
	})
}

func TestService_Execute(t *testing.T) {
	ctx := context.Background()

	t.Run("runs the job and passes a deadline when timeout is set", func(t *testing.T) {
		svc := newTestService(t)
		j := &job{spec: JobSpec{ID: "translate", Timeout: time.Minute}}
		var sawDeadline bool
		j.run = func(ctx context.Context) error {
			_, sawDeadline = ctx.Deadline()
			return nil
		}

		svc.execute(ctx, j, time.Now(), time.Now())
		if !sawDeadline {
			t.Error("job context had no deadline")
		}
	})

	t.Run("drops a trigger while the previous instance runs", func(t *testing.T) {
		svc := newTestService(t)
		block := make(chan struct{})
		entered := make(chan struct{})
		var runs int32
		var mu sync.Mutex

		j := &job{spec: JobSpec{ID: "post_facebook"}}
		j.run = func(ctx context.Context) error {
			mu.Lock()
			runs++
			mu.Unlock()
			close(entered)
			<-block
			return nil
		}

		done := make(chan struct{})
		go func() {
			svc.execute(ctx, j, time.Now(), time.Now())
			close(done)
		}()
		<-entered

		// Second trigger while the first is still inside run.
		svc.execute(ctx, j, time.Now(), time.Now())

		close(block)
		<-done

		mu.Lock()
		defer mu.Unlock()
		if runs != 1 {
			t.Fatalf("job ran %d times, want 1", runs)
		}
	})

	t.Run("skips triggers outside the grace window", func(t *testing.T) {
		svc := newTestService(t)
		var ran bool
		j := &job{spec: JobSpec{ID: "post_linkedin", Grace: time.Hour}}
		j.run = func(ctx context.Context) error { ran = true; return nil }

		now := time.Now()
		svc.execute(ctx, j, now.Add(-2*time.Hour), now)
		if ran {
			t.Error("late trigger ran, want misfire skip")
		}

		svc.execute(ctx, j, now.Add(-10*time.Minute), now)
		if !ran {
			t.Error("trigger within grace did not run")
		}
	})

	t.Run("job errors do not leave the running flag stuck", func(t *testing.T) {
		svc := newTestService(t)
		j := &job{spec: JobSpec{ID: "cleanup"}}
		j.run = func(ctx context.Context) error { return errors.New("boom") }

		svc.execute(ctx, j, time.Now(), time.Now())

		var ran bool
		j.run = func(ctx context.Context) error { ran = true; return nil }
		svc.execute(ctx, j, time.Now(), time.Now())
		if !ran {
			t.Error("job did not run after a failed instance")
		}
	})
}

func TestService_Snapshot(t *testing.T) {
	svc := newTestService(t)
	if err := svc.Register(JobSpec{ID: "post_facebook", Name: "Facebook publish sweep", Spec: "0 18 * * *"},
		func(ctx context.Context) error { return nil }); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	if err := svc.Register(JobSpec{ID: "cleanup", Name: "Rejected cleanup", Spec: "0 3 * * *"},
		func(ctx context.Context) error { return nil }); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	snap := svc.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("snapshot has %d jobs, want 2", len(snap))
	}
	byID := map[string]JobStatus{}
	for _, js := range snap {
		byID[js.ID] = js
	}
	fb, ok := byID["post_facebook"]
	if !ok {
		t.Fatal("post_facebook missing from snapshot")
	}
	if fb.Name != "Facebook publish sweep" || fb.Spec != "0 18 * * *" {
		t.Errorf("snapshot row = %+v", fb)
	}
	if fb.NextRun.IsZero() {
		t.Error("NextRun not populated after Start")
	}
	if fb.NextRun.Hour() != 18 {
		t.Errorf("NextRun hour = %d, want 18 (UTC schedule)", fb.NextRun.Hour())
	}
	if fb.Running {
		t.Error("idle job reported as running")
	}
}
