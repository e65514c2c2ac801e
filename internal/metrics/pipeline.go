// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pipelineRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingestord_pipeline_runs_total",
		Help: "Total number of pipeline passes by terminal status (success, error, lock_contention).",
	}, []string{"status"})

	pipelineRunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ingestord_pipeline_run_duration_seconds",
		Help:    "Wall-clock duration of one pipeline pass.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"status"})

	artistsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingestord_pipeline_artists_total",
		Help: "Artist folders seen by the pipeline, by outcome (imported, skipped_busy, skipped_unsettled, error).",
	}, []string{"outcome"})

	filesQuarantined = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingestord_pipeline_quarantined_files_total",
		Help: "Files moved to quarantine, by reason (corrupt, failed_import).",
	}, []string{"reason"})

	dedupRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingestord_dedup_rejected_files_total",
		Help: "Files rejected by the deduplicator, by tier (tier1, tier2).",
	}, []string{"tier"})

	stagingUsagePct = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ingestord_staging_usage_pct",
		Help: "Most recently observed staging (pre-library) tmpfs usage percentage.",
	})

	stagingDrainsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingestord_staging_drains_total",
		Help: "Staging drains performed, by reason (startup, proactive, emergency_enospc).",
	}, []string{"reason"})

	probeQueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingestord_probe_queries_total",
		Help: "Safety-probe queries issued, by probe and result (busy, idle, error).",
	}, []string{"probe", "result"})

	schedulerTicksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingestord_scheduler_ticks_total",
		Help: "Scheduler job invocations, by scheduler name.",
	}, []string{"scheduler"})

	lockWaitTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingestord_lock_acquisitions_total",
		Help: "Run-lock acquisition attempts, by result (acquired, held, stale_cleared).",
	}, []string{"result"})
)

// RecordPipelineRun records one completed pass's terminal status and duration.
func RecordPipelineRun(status string, seconds float64) {
	pipelineRunsTotal.WithLabelValues(status).Inc()
	pipelineRunDuration.WithLabelValues(status).Observe(seconds)
}

// RecordArtistOutcome increments the per-artist outcome counter.
func RecordArtistOutcome(outcome string) {
	artistsProcessed.WithLabelValues(outcome).Inc()
}

// RecordQuarantine increments the quarantine counter for reason.
func RecordQuarantine(reason string) {
	filesQuarantined.WithLabelValues(reason).Inc()
}

// RecordDedupRejection increments the dedup rejection counter for a tier.
func RecordDedupRejection(tier string) {
	dedupRejected.WithLabelValues(tier).Inc()
}

// SetStagingUsagePct records the staging tmpfs usage observed this pass.
func SetStagingUsagePct(pct float64) {
	stagingUsagePct.Set(pct)
}

// RecordDrain increments the drain counter for reason.
func RecordDrain(reason string) {
	stagingDrainsTotal.WithLabelValues(reason).Inc()
}

// RecordProbeQuery increments the probe query counter for probe/result.
func RecordProbeQuery(probe, result string) {
	probeQueriesTotal.WithLabelValues(probe, result).Inc()
}

// RecordSchedulerTick increments the tick counter for a named scheduler.
func RecordSchedulerTick(scheduler string) {
	schedulerTicksTotal.WithLabelValues(scheduler).Inc()
}

// RecordLockAcquisition increments the lock-acquisition counter for result.
func RecordLockAcquisition(result string) {
	lockWaitTotal.WithLabelValues(result).Inc()
}
