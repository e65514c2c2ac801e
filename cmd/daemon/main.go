// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/oxbow-labs/ingestord/internal/config"
	"github.com/oxbow-labs/ingestord/internal/daemon"
	"github.com/oxbow-labs/ingestord/internal/healthsrv"
	ilog "github.com/oxbow-labs/ingestord/internal/log"
	"github.com/oxbow-labs/ingestord/internal/pipeline"
	"github.com/oxbow-labs/ingestord/internal/scheduler"
	"github.com/oxbow-labs/ingestord/internal/version"
	"github.com/oxbow-labs/ingestord/internal/watcher"
)

// Exit codes follow the pipeline's error table: 0 on a clean pass (or a
// clean daemon shutdown), 1 when the run lock is held by another live
// process, 2 on any other uncaught failure.
const (
	exitOK            = 0
	exitLockContended = 1
	exitFailure       = 2
)

func main() {
	once := flag.Bool("once", false, "run a single pipeline pass and exit, instead of starting the daemon")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("ingestord %s (commit: %s)\n", version.Version, version.Commit)
		os.Exit(exitOK)
	}

	cfg := config.Load(os.Getenv)

	ilog.Configure(ilog.Config{
		Level:    cfg.LogLevel,
		Console:  cfg.LogConsole,
		Service:  "ingestord",
		Version:  version.Version,
		FilePath: filepath.Join(cfg.Paths.Data, "ingestord.log"),
	})
	logger := ilog.WithComponent("main")

	controller := pipeline.New(cfg, ilog.Base())

	if *once {
		ctx := daemon.WaitForShutdown()
		os.Exit(runOnce(ctx, logger, controller))
	}

	os.Exit(runDaemon(logger, cfg, controller))
}

// runOnce drives a single pipeline pass, mapping its outcome to the exit
// codes the run lock and every other error path expect.
func runOnce(ctx context.Context, logger zerolog.Logger, controller *pipeline.Controller) int {
	err := controller.Run(ctx)
	switch {
	case err == nil:
		logger.Info().Msg("pipeline pass completed")
		return exitOK
	case errors.Is(err, pipeline.ErrLockHeld):
		logger.Warn().Msg("another pipeline run already holds the lock")
		return exitLockContended
	default:
		logger.Error().Err(err).Msg("pipeline pass failed")
		return exitFailure
	}
}

// runDaemon builds every long-lived actor (the pipeline's own scheduler,
// ancillary refresh schedulers, the inbox watcher, and the health/metrics
// server) and blocks until shutdown.
func runDaemon(logger zerolog.Logger, cfg config.Config, controller *pipeline.Controller) int {
	pipelineJob := func(ctx context.Context) error {
		err := controller.Run(ctx)
		if errors.Is(err, pipeline.ErrLockHeld) {
			return nil
		}
		return err
	}

	pipelineScheduler := buildPipelineScheduler(cfg, pipelineJob, logger)
	ancillary := buildAncillarySchedulers(cfg, controller, logger)

	var inboxWatcher *watcher.Watcher
	if cfg.PipelineMode != config.SchedulerWallClock {
		inboxWatcher = watcher.New(cfg.Paths.Inbox, pipelineScheduler.RunNow, ilog.WithComponent("watcher"))
	}

	healthMgr := healthsrv.NewManager(version.Version)
	healthMgr.RegisterChecker(healthsrv.NewFileChecker("inbox_dir", cfg.Paths.Inbox))
	healthMgr.RegisterChecker(healthsrv.NewFileChecker("staging_dir", cfg.Paths.Staging))
	healthMgr.RegisterChecker(healthsrv.NewLastRunChecker(controller.LastRun))
	healthMgr.RegisterChecker(healthsrv.NewLockChecker(controller.LockProbe))

	mgr, err := daemon.NewManager(daemon.Deps{
		Logger:          logger,
		HealthHandler:   healthsrv.NewMux(healthMgr, ilog.WithComponent("healthsrv")),
		HealthAddr:      cfg.HealthAddr,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to build daemon manager")
		return exitFailure
	}

	app := daemon.NewApp(logger, mgr, pipelineScheduler, ancillary, inboxWatcher)
	ctx := daemon.WaitForShutdown()
	if err := app.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("daemon exited with error")
		return exitFailure
	}

	logger.Info().Msg("daemon exiting")
	return exitOK
}

func buildPipelineScheduler(cfg config.Config, job scheduler.Job, logger zerolog.Logger) scheduler.Scheduler {
	schedLogger := ilog.WithComponent("scheduler.pipeline")
	switch cfg.PipelineMode {
	case config.SchedulerInterval:
		return scheduler.NewImmediateInterval("pipeline", job, time.Duration(cfg.PipelineIntervalMinutes)*time.Minute, schedLogger)
	case config.SchedulerWallClock:
		logger.Warn().Msg("PIPELINE_MODE=wallclock has no configured time-of-day target; falling back to continuous mode")
		fallthrough
	default:
		return scheduler.NewContinuous("pipeline", job, cfg.PipelineCooldown, schedLogger)
	}
}

// buildAncillarySchedulers wires the pipeline's secondary maintenance
// jobs (library metadata refresh, Discogs enrichment refresh, and a
// periodic catalogue reorganisation pass) onto the cataloguer the
// pipeline already owns.
func buildAncillarySchedulers(cfg config.Config, controller *pipeline.Controller, logger zerolog.Logger) []scheduler.Scheduler {
	var scheds []scheduler.Scheduler

	if cfg.MetadataRefreshEnabled {
		target, err := parseWallClockTarget(cfg.MetadataRefreshAt)
		if err != nil {
			logger.Warn().Err(err).Str("value", cfg.MetadataRefreshAt).Msg("invalid METADATA_REFRESH_AT, skipping scheduler")
		} else {
			scheds = append(scheds, scheduler.NewWallClock("metadata_refresh", controller.RefreshMetadata, target, ilog.WithComponent("scheduler.metadata")))
		}
	}

	if cfg.DiscogsRefreshEnabled {
		target, err := parseWallClockTarget(cfg.DiscogsRefreshAt)
		if err != nil {
			logger.Warn().Err(err).Str("value", cfg.DiscogsRefreshAt).Msg("invalid DISCOGS_REFRESH_AT, skipping scheduler")
		} else {
			scheds = append(scheds, scheduler.NewWallClock("discogs_refresh", controller.RefreshDiscogs, target, ilog.WithComponent("scheduler.discogs")))
		}
	}

	if cfg.RegenIntervalMinutes > 0 {
		interval := time.Duration(cfg.RegenIntervalMinutes) * time.Minute
		scheds = append(scheds, scheduler.NewInterval("regen", controller.Regenerate, interval, ilog.WithComponent("scheduler.regen")))
	}

	return scheds
}

func parseWallClockTarget(hhmm string) (scheduler.WallClockTarget, error) {
	if hhmm == "" {
		return scheduler.WallClockTarget{}, fmt.Errorf("empty time-of-day")
	}
	return scheduler.WallClockTarget{HourMinute: hhmm}, nil
}
