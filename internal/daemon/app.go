// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/oxbow-labs/ingestord/internal/scheduler"
	"github.com/oxbow-labs/ingestord/internal/watcher"
	"github.com/rs/zerolog"
)

// App owns the long-lived runtime lifecycle: the health server (via
// Manager), the pipeline's own scheduler (the one actor SIGHUP wakes), any
// ancillary schedulers (metadata refresh, discogs refresh, regen), and the
// inbox watcher that wakes an event-driven pipeline scheduler on activity.
type App struct {
	logger  zerolog.Logger
	manager Manager

	pipelineScheduler scheduler.Scheduler
	ancillary         []scheduler.Scheduler
	inboxWatcher      *watcher.Watcher

	reloadSignal os.Signal
}

// NewApp creates a new App orchestrator. ancillary and inboxWatcher may be
// nil/empty when the corresponding feature is disabled by configuration.
func NewApp(logger zerolog.Logger, manager Manager, pipelineScheduler scheduler.Scheduler, ancillary []scheduler.Scheduler, inboxWatcher *watcher.Watcher) *App {
	return &App{
		logger:            logger,
		manager:           manager,
		pipelineScheduler: pipelineScheduler,
		ancillary:         ancillary,
		inboxWatcher:      inboxWatcher,
		reloadSignal:      syscall.SIGHUP,
	}
}

// Run starts every owned actor and blocks until ctx is cancelled or a
// fatal error occurs in any of them.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}
	if a.pipelineScheduler == nil {
		return ErrMissingPipelineScheduler
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.manager.Start(ctx)
	})

	g.Go(func() error {
		return a.pipelineScheduler.Start(ctx)
	})

	for _, sched := range a.ancillary {
		sched := sched
		g.Go(func() error {
			return sched.Start(ctx)
		})
	}

	if a.inboxWatcher != nil {
		g.Go(func() error {
			return a.inboxWatcher.Run(ctx)
		})
	}

	if a.reloadSignal != nil {
		g.Go(func() error {
			hupChan := make(chan os.Signal, 1)
			signal.Notify(hupChan, a.reloadSignal)
			defer signal.Stop(hupChan)

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-hupChan:
					a.logger.Info().Str("signal", a.reloadSignal.String()).Msg("received reload signal, triggering immediate pipeline pass")
					a.pipelineScheduler.RunNow()
				}
			}
		})
	}

	return g.Wait()
}
