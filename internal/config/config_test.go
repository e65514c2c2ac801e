// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"testing"
	"time"
)

func envMap(overrides map[string]string) func(string) string {
	return func(key string) string { return overrides[key] }
}

func TestLoad_Defaults(t *testing.T) {
	cfg := Load(envMap(nil))

	if cfg.Paths.Inbox != "/inbox" {
		t.Errorf("Inbox = %q, want /inbox", cfg.Paths.Inbox)
	}
	if cfg.Thresholds.DrainUsagePct != 85.0 {
		t.Errorf("DrainUsagePct = %v, want 85.0", cfg.Thresholds.DrainUsagePct)
	}
	if cfg.Thresholds.ChunkSize != 500 {
		t.Errorf("ChunkSize = %d, want 500", cfg.Thresholds.ChunkSize)
	}
	if cfg.Thresholds.ArtistSettleAge != 300*time.Second {
		t.Errorf("ArtistSettleAge = %v, want 300s", cfg.Thresholds.ArtistSettleAge)
	}
	if cfg.PipelineMode != SchedulerContinuous {
		t.Errorf("PipelineMode = %v, want continuous", cfg.PipelineMode)
	}
	if !cfg.DedupUseMusicBrainz {
		t.Error("DedupUseMusicBrainz should default true")
	}
	if cfg.LockFilePath != "/data/pipeline.lock" {
		t.Errorf("LockFilePath = %q, want /data/pipeline.lock", cfg.LockFilePath)
	}
}

func TestLoad_Overrides(t *testing.T) {
	cfg := Load(envMap(map[string]string{
		"INGESTORD_DATA_DIR":          "/var/ingestord",
		"INGESTORD_CHUNK_SIZE":        "250",
		"INGESTORD_DRAIN_USAGE_PCT":   "90.5",
		"PIPELINE_MODE":               "interval",
		"DEDUP_USE_MUSICBRAINZ":       "false",
		"INGESTORD_ARTIST_SETTLE_AGE": "10m",
	}))

	if cfg.Thresholds.ChunkSize != 250 {
		t.Errorf("ChunkSize = %d, want 250", cfg.Thresholds.ChunkSize)
	}
	if cfg.Thresholds.DrainUsagePct != 90.5 {
		t.Errorf("DrainUsagePct = %v, want 90.5", cfg.Thresholds.DrainUsagePct)
	}
	if cfg.PipelineMode != SchedulerInterval {
		t.Errorf("PipelineMode = %v, want interval", cfg.PipelineMode)
	}
	if cfg.DedupUseMusicBrainz {
		t.Error("DedupUseMusicBrainz should be false")
	}
	if cfg.Thresholds.ArtistSettleAge != 10*time.Minute {
		t.Errorf("ArtistSettleAge = %v, want 10m", cfg.Thresholds.ArtistSettleAge)
	}
	if cfg.LockFilePath != "/var/ingestord/pipeline.lock" {
		t.Errorf("LockFilePath = %q, want /var/ingestord/pipeline.lock", cfg.LockFilePath)
	}
}

func TestLoad_InvalidValuesFallBackToDefaults(t *testing.T) {
	cfg := Load(envMap(map[string]string{
		"INGESTORD_CHUNK_SIZE":       "not-a-number",
		"INGESTORD_DRAIN_USAGE_PCT":  "not-a-float",
		"INGESTORD_PIPELINE_COOLDOWN": "not-a-duration",
		"METADATA_REFRESH_ENABLED":   "maybe",
	}))

	if cfg.Thresholds.ChunkSize != 500 {
		t.Errorf("ChunkSize = %d, want default 500 on parse failure", cfg.Thresholds.ChunkSize)
	}
	if cfg.Thresholds.DrainUsagePct != 85.0 {
		t.Errorf("DrainUsagePct = %v, want default 85.0 on parse failure", cfg.Thresholds.DrainUsagePct)
	}
	if cfg.PipelineCooldown != 10*time.Second {
		t.Errorf("PipelineCooldown = %v, want default 10s on parse failure", cfg.PipelineCooldown)
	}
	if cfg.MetadataRefreshEnabled {
		t.Error("MetadataRefreshEnabled should fall back to default false on unparseable value")
	}
}

func TestParseMediaServers(t *testing.T) {
	targets := parseMediaServers("plex|http://plex:32400/refresh, jellyfin|http://jf:8096/refresh|POST")
	if len(targets) != 2 {
		t.Fatalf("expected 2 targets, got %d", len(targets))
	}
	if targets[0].Name != "plex" || targets[0].Method != "GET" {
		t.Errorf("unexpected first target: %+v", targets[0])
	}
	if targets[1].Method != "POST" {
		t.Errorf("expected POST method, got %q", targets[1].Method)
	}
}
