package sched

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"content-pipeline/internal/infra/logging"
	"content-pipeline/internal/infra/metrics"
)

// JobSpec describes one recurring job. Spec is a five-field cron expression
// (or a descriptor like @hourly) evaluated in the service's timezone.
type JobSpec struct {
	ID      string
	Name    string
	Spec    string
	Timeout time.Duration
	// Grace bounds how late a trigger may fire and still run. A trigger
	// delayed past it (process stalled, clock jumped) is counted as a
	// misfire and skipped rather than run at the wrong time of day.
	Grace time.Duration
}

// JobStatus is one row of the scheduler snapshot.
type JobStatus struct {
	ID      string
	Name    string
	Spec    string
	NextRun time.Time
	PrevRun time.Time
	Running bool
}

type job struct {
	spec    JobSpec
	run     func(ctx context.Context) error
	entryID cron.EntryID

	mu      sync.Mutex
	running bool
}

// Service schedules the pipeline's recurring jobs. Each job runs at most
// one instance at a time: a trigger that fires while the previous run is
// still going is dropped, not queued.
type Service struct {
	mu   sync.Mutex
	log  zerolog.Logger
	loc  *time.Location
	c    *cron.Cron
	jobs []*job

	baseCtx context.Context
	started bool
}

func New(timezone string, log zerolog.Logger) (*Service, error) {
	loc := time.Local
	if timezone != "" {
		var err error
		loc, err = time.LoadLocation(timezone)
		if err != nil {
			return nil, err
		}
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &Service{
		log: log.With().Str("component", "sched").Logger(),
		loc: loc,
		c:   cron.New(cron.WithParser(parser), cron.WithLocation(loc)),
	}, nil
}

// Register adds a job. Must be called before Start; the cron spec is
// validated immediately.
func (s *Service) Register(spec JobSpec, run func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j := &job{spec: spec, run: run}
	entryID, err := s.c.AddFunc(spec.Spec, func() { s.fire(j) })
	if err != nil {
		return err
	}
	j.entryID = entryID
	s.jobs = append(s.jobs, j)
	return nil
}

// Start begins firing triggers. ctx is the parent of every job run's
// context; cancelling it stops in-flight runs.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.baseCtx = ctx
	s.started = true
	s.c.Start()
	s.log.Info().Str("tz", s.loc.String()).Int("jobs", len(s.jobs)).Msg("scheduler started")
}

// Stop halts the trigger loop and waits for running jobs to return.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	s.started = false
	<-s.c.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

func (s *Service) fire(j *job) {
	s.mu.Lock()
	ctx := s.baseCtx
	scheduledAt := s.c.Entry(j.entryID).Prev
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	s.execute(ctx, j, scheduledAt, time.Now())
}

// execute runs one trigger of j, applying the coalesce and misfire rules.
func (s *Service) execute(ctx context.Context, j *job, scheduledAt, now time.Time) {
	log := s.log.With().Str("job", j.spec.ID).Logger()

	if j.spec.Grace > 0 && !scheduledAt.IsZero() && now.Sub(scheduledAt) > j.spec.Grace {
		metrics.IncJobMisfire(j.spec.ID)
		log.Warn().
			Time("scheduled_at", scheduledAt).
			Dur("late_by", now.Sub(scheduledAt)).
			Msg("trigger outside grace window, skipping")
		return
	}

	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		metrics.IncJobCoalesced(j.spec.ID)
		log.Warn().Msg("previous instance still running, trigger dropped")
		return
	}
	j.running = true
	j.mu.Unlock()
	defer func() {
		j.mu.Lock()
		j.running = false
		j.mu.Unlock()
	}()

	runCtx := logging.WithJobID(ctx, j.spec.ID)
	if j.spec.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, j.spec.Timeout)
		defer cancel()
	}

	started := time.Now()
	err := j.run(runCtx)
	metrics.IncJobRun(j.spec.ID, err)
	if err != nil {
		log.Error().Err(err).Dur("took", time.Since(started)).Msg("job failed")
		return
	}
	log.Info().Dur("took", time.Since(started)).Msg("job finished")
}

// Snapshot reports every registered job with its next and previous
// trigger times.
func (s *Service) Snapshot() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobStatus, 0, len(s.jobs))
	for _, j := range s.jobs {
		entry := s.c.Entry(j.entryID)
		j.mu.Lock()
		running := j.running
		j.mu.Unlock()
		out = append(out, JobStatus{
			ID:      j.spec.ID,
			Name:    j.spec.Name,
			Spec:    j.spec.Spec,
			NextRun: entry.Next,
			PrevRun: entry.Prev,
			Running: running,
		})
	}
	return out
}
