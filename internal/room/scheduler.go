package room

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Scheduler drives the orchestrator's sweep on a fixed cadence. Each room
// advances by at most one automatic action per tick, which is what paces
// bot play and turn timeouts.
type Scheduler struct {
	Orch   *Orchestrator
	Period time.Duration
	Log    zerolog.Logger
}

func NewScheduler(o *Orchestrator, period time.Duration, log zerolog.Logger) *Scheduler {
	return &Scheduler{Orch: o, Period: period, Log: log}
}

// Run blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	t := time.NewTicker(s.Period)
	defer t.Stop()
	s.Log.Info().Dur("period", s.Period).Msg("scheduler running")
	for {
		select {
		case <-ctx.Done():
			s.Log.Info().Msg("scheduler stopped")
			return
		case <-t.C:
			s.Orch.Tick(ctx)
		}
	}
}
