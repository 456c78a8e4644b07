package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"content-pipeline/internal/infra/metrics"
)

// CatchUpRule decides at startup whether a job's work is overdue. If the
// last observed activity is older than Threshold (or there is none), Run is
// executed once, synchronously, before the cron loop starts. This recovers
// the schedule after downtime instead of waiting for the next trigger.
type CatchUpRule struct {
	Name      string
	Threshold time.Duration
	// LastActivity returns the most recent evidence the job has done its
	// work, or the zero time when there is none.
	LastActivity func(ctx context.Context) (time.Time, error)
	Run          func(ctx context.Context) error
}

// RunCatchUp evaluates every rule in order. Rule failures are logged and
// do not stop the remaining rules; startup proceeds either way.
func RunCatchUp(ctx context.Context, log zerolog.Logger, rules []CatchUpRule) {
	log = log.With().Str("component", "catchup").Logger()
	now := time.Now()

	for _, rule := range rules {
		last, err := rule.LastActivity(ctx)
		if err != nil {
			log.Error().Err(err).Str("rule", rule.Name).Msg("last activity lookup failed")
			continue
		}
		if !last.IsZero() && now.Sub(last) <= rule.Threshold {
			log.Debug().Str("rule", rule.Name).Time("last", last).Msg("recent activity, no catch-up needed")
			continue
		}

		log.Info().Str("rule", rule.Name).Time("last", last).Msg("overdue, running catch-up")
		metrics.IncCatchUpRun(rule.Name)
		if err := rule.Run(ctx); err != nil {
			log.Error().Err(err).Str("rule", rule.Name).Msg("catch-up run failed")
		}
	}
}
