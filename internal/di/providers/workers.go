package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/bookwarden/bookwarden-server/internal/config"
	"github.com/bookwarden/bookwarden-server/internal/logger"
	"github.com/bookwarden/bookwarden-server/internal/service"
)

// SweepJob runs the overdue sweep on a schedule.
type SweepJob struct {
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (j *SweepJob) Shutdown() error {
	j.cancel()
	return nil
}

// ProvideSweepJob provides the periodic overdue sweep job. One pass runs
// at startup so a server that was down over a due date catches up
// immediately.
func ProvideSweepJob(i do.Injector) (*SweepJob, error) {
	sweep := do.MustInvoke[*service.SweepService](i)
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	ctx, cancel := context.WithCancel(context.Background())

	runPass := func() {
		transitions, err := sweep.Run(ctx)
		if err != nil {
			log.Warn("Sweep pass failed", "error", err)
			return
		}
		changed, err := sweep.RecomputeBorrowers(ctx)
		if err != nil {
			log.Warn("Borrower recompute failed", "error", err)
			return
		}
		if len(transitions) > 0 || changed > 0 {
			log.Info("Sweep pass completed",
				"transitions", len(transitions),
				"borrowers_changed", changed,
			)
		}
	}

	go func() {
		ticker := time.NewTicker(cfg.Sweep.Interval)
		defer ticker.Stop()

		runPass()

		for {
			select {
			case <-ticker.C:
				runPass()
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Info("Sweep job started", "interval", cfg.Sweep.Interval)

	return &SweepJob{cancel: cancel}, nil
}
