// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package pipeline implements the Pipeline Controller: the state machine
// that walks the inbox, gates on the Safety Probes, drains material
// through Staging and the Deduplicator into the cataloguer, and handles
// every failure path (corrupt file -> quarantine, failed import ->
// quarantine, staging full -> drain and retry). It is the core of the
// daemon; every other package in this module exists to serve one of its
// steps (SPEC_FULL.md §4.4).
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/oxbow-labs/ingestord/internal/catalog"
	"github.com/oxbow-labs/ingestord/internal/config"
	"github.com/oxbow-labs/ingestord/internal/dedup"
	"github.com/oxbow-labs/ingestord/internal/lockfile"
	"github.com/oxbow-labs/ingestord/internal/log"
	"github.com/oxbow-labs/ingestord/internal/mediaservers"
	"github.com/oxbow-labs/ingestord/internal/metrics"
	"github.com/oxbow-labs/ingestord/internal/pipeline/fsm"
	"github.com/oxbow-labs/ingestord/internal/probes"
	"github.com/oxbow-labs/ingestord/internal/quarantine"
	"github.com/oxbow-labs/ingestord/internal/staging"
	"github.com/oxbow-labs/ingestord/internal/status"
)

// state is the pipeline pass's S type for its internal fsm.Machine.
type state string

const (
	stateInit           state = "INIT"
	stateCleanupInvalid state = "CLEANUP_INVALID"
	stateForEachArtist  state = "FOR_EACH_ARTIST"
	stateFinalize       state = "FINALIZE"
	stateDone           state = "DONE"
	stateFailed         state = "FAILED"
)

// event is the pipeline pass's E type. Named per SPEC_FULL.md §4.4;
// DRAIN_STARTUP and SNAPSHOT_BUSY have no branching of their own, so their
// work happens inside the CLEANUP_INVALID -> FOR_EACH_ARTIST transition's
// action, after the cleanup itself, rather than each getting its own
// state/event pair. The lock_acquired transition carries only the lock
// guard.
type event string

const (
	eventLockAcquired   event = "lock_acquired"
	eventDrainDone      event = "drain_done"
	eventArtistLoopDone event = "artist_loop_done"
	eventFinalizeDone   event = "finalize_done"
	eventFatal          event = "fatal"
)

// Controller owns every collaborator one pipeline pass needs and drives
// the state machine that walks a single pass from INIT to DONE or FAILED.
type Controller struct {
	cfg config.Config

	lock       *lockfile.Lock
	peer       *probes.PeerTransferProbe
	newsgroup  *probes.NewsgroupProbe
	stage      *staging.Manager
	dedup      *dedup.Deduplicator
	cataloguer *catalog.Cataloguer
	quarantine *quarantine.Quarantine
	notifier   *mediaservers.Notifier
	statusW    *status.Writer

	logger zerolog.Logger

	// busySnapshot is the peer-transfer active set captured at
	// SNAPSHOT_BUSY. The per-artist check in FOR_EACH_ARTIST queries the
	// probe afresh and neither reads nor updates it.
	busySnapshot []string

	runTimestamp func() string
}

// New wires a Controller from cfg. logger should already carry the
// process-wide base fields (service, version); Controller adds its own
// component tag.
func New(cfg config.Config, logger zerolog.Logger) *Controller {
	return &Controller{
		cfg:        cfg,
		lock:       lockfile.New(cfg.LockFilePath, "ingestord"),
		peer:       probes.NewPeerTransferProbe(cfg.PeerTransferProbe),
		newsgroup:  probes.NewNewsgroupProbe(cfg.NewsgroupProbe),
		stage:      staging.New(cfg.Paths.Staging),
		cataloguer: catalog.New(cfg.CataloguerBin, logger),
		quarantine: quarantine.New(cfg.Paths.Quarantine),
		notifier:   mediaservers.New(cfg.MediaServers, logger),
		statusW:    status.NewWriter(statusPath(cfg)),
		logger:     logger.With().Str("component", "pipeline").Logger(),
		dedup: dedup.New(dedup.Options{
			FpcalcPath:         cfg.FpcalcPath,
			FfprobePath:        cfg.FfprobePath,
			FingerprintWindow:  cfg.Thresholds.FingerprintWindow,
			SimilarityThresh:   cfg.Thresholds.SimilarityThresh,
			UseMusicBrainz:     cfg.DedupUseMusicBrainz,
			AcoustIDAPIKey:     cfg.AcoustIDAPIKey,
			RecordingIDMinConf: cfg.Thresholds.RecordingIDMinConf,
		}),
		runTimestamp: func() string { return time.Now().UTC().Format("20060102T150405Z") },
	}
}

func statusPath(cfg config.Config) string {
	return cfg.Paths.Data + "/pipeline_status.json"
}

// LastRun exposes the most recent pass's completion time and error
// message (empty on success), for internal/healthsrv's LastRunChecker.
func (c *Controller) LastRun() (time.Time, string) {
	rec := c.statusW.Last()
	if rec.Status == status.Success || rec.Status == status.Error {
		errMsg := ""
		if rec.Status == status.Error {
			errMsg = rec.Detail
		}
		return rec.Timestamp, errMsg
	}
	return time.Time{}, ""
}

// LockProbe is passed to internal/healthsrv.NewLockChecker.
func (c *Controller) LockProbe() error {
	return c.lock.Probe()
}

// Run performs exactly one pipeline pass. It returns ErrLockHeld if
// another live process already owns the run lock (callers map that to
// exit code 1); any other returned error is the "catastrophic" row of
// §7's error table (callers map that to exit code 2).
func (c *Controller) Run(ctx context.Context) (err error) {
	runID := uuid.NewString()
	ctx = log.ContextWithRunID(ctx, runID)
	logger := log.WithContext(ctx, c.logger)

	start := time.Now()
	pass := &passState{
		ctx:    ctx,
		runID:  runID,
		logger: logger,
		stats:  &passStats{},
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline: panic during pass: %v", r)
			logger.Error().Interface("panic", r).Msg("pipeline pass panicked")
		}

		elapsed := time.Since(start).Seconds()
		switch {
		case err == nil:
			metrics.RecordPipelineRun("success", elapsed)
			c.writeStatus(status.Success, "pass completed", "", runID)
		case isLockHeld(err):
			metrics.RecordPipelineRun("lock_contention", elapsed)
		default:
			metrics.RecordPipelineRun("error", elapsed)
			c.writeStatus(status.Error, err.Error(), pass.currentArtist, runID)
		}
	}()

	machine, ferr := fsm.New(stateInit, []fsm.Transition[state, event]{
		{
			From:  stateInit,
			Event: eventLockAcquired,
			To:    stateCleanupInvalid,
			Guard: func(context.Context, state, event) error { return c.lock.Acquire() },
		},
		{
			From:  stateCleanupInvalid,
			Event: eventDrainDone,
			To:    stateForEachArtist,
			Action: func(ctx context.Context, _, _ state, _ event) error {
				if err := c.cleanupInvalid(); err != nil {
					return err
				}
				if err := c.drainStartup(ctx, pass); err != nil {
					return err
				}
				return c.snapshotBusy(ctx)
			},
		},
		{
			From:  stateForEachArtist,
			Event: eventArtistLoopDone,
			To:    stateFinalize,
			Action: func(ctx context.Context, _, _ state, _ event) error {
				return c.forEachArtist(ctx, pass)
			},
		},
		{
			From:  stateFinalize,
			Event: eventFinalizeDone,
			To:    stateDone,
			Action: func(ctx context.Context, _, _ state, _ event) error {
				return c.finalize(ctx, pass)
			},
		},
	})
	if ferr != nil {
		return fmt.Errorf("pipeline: build state machine: %w", ferr)
	}

	defer func() { _ = c.lock.Release() }()

	c.writeStatus(status.Running, "acquiring run lock", "", runID)
	if _, err = machine.Fire(ctx, eventLockAcquired); err != nil {
		return err
	}

	c.writeStatus(status.Running, "cleanup and startup drain", "", runID)
	if _, err = machine.Fire(ctx, eventDrainDone); err != nil {
		return err
	}

	c.writeStatus(status.Running, "processing artists", "", runID)
	if _, err = machine.Fire(ctx, eventArtistLoopDone); err != nil {
		return err
	}

	c.writeStatus(status.Running, "finalizing", "", runID)
	if _, err = machine.Fire(ctx, eventFinalizeDone); err != nil {
		return err
	}

	logger.Info().
		Int("artists_imported", pass.stats.artistsImported).
		Int("artists_skipped", pass.stats.artistsSkipped).
		Int("files_quarantined", pass.stats.filesQuarantined).
		Msg("pipeline pass complete")
	return nil
}

func (c *Controller) writeStatus(s status.State, detail, artist, runID string) {
	if err := c.statusW.Write(status.Record{
		Status:        s,
		Detail:        detail,
		CurrentArtist: artist,
		RunID:         runID,
	}); err != nil {
		c.logger.Warn().Err(err).Msg("failed to write status record")
	}
}

// RefreshMetadata re-runs the cataloguer's library-wide metadata update
// command. It is wired to the optional metadata-refresh scheduler rather
// than to the pipeline pass itself, since it scans the whole library
// instead of just newly-imported material.
func (c *Controller) RefreshMetadata(ctx context.Context) error {
	logger := log.WithContext(ctx, c.logger)
	result, err := c.cataloguer.Update(ctx)
	if err != nil {
		return fmt.Errorf("pipeline: refresh metadata: %w", err)
	}
	logger.Info().Str("output", result.Stdout).Msg("metadata refresh complete")
	return nil
}

// RefreshDiscogs re-runs the same cataloguer update command as
// RefreshMetadata. The cataloguer exposes no separate Discogs-only
// subcommand, so the two refresh schedulers are distinguished only by
// their configured time-of-day, both converging on the one update path
// the cataloguer binary offers.
func (c *Controller) RefreshDiscogs(ctx context.Context) error {
	return c.RefreshMetadata(ctx)
}

// Regenerate asks the cataloguer to move anything imported in the last
// 24 hours into its final library layout, catching material any prior
// pass's MoveRecent call might have missed.
func (c *Controller) Regenerate(ctx context.Context) error {
	logger := log.WithContext(ctx, c.logger)
	result, err := c.cataloguer.MoveRecent(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		return fmt.Errorf("pipeline: regenerate: %w", err)
	}
	logger.Info().Str("output", result.Stdout).Msg("regen pass complete")
	return nil
}

// passState carries the mutable bookkeeping for one Run invocation.
type passState struct {
	ctx           context.Context
	runID         string
	logger        zerolog.Logger
	currentArtist string
	stats         *passStats
}

type passStats struct {
	artistsImported  int
	artistsSkipped   int
	filesQuarantined int
	dedupRejected    int
}
