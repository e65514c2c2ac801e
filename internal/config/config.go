// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config assembles the daemon's typed configuration from
// environment variables. There are no hidden globals: every component
// constructor takes the slice of Config it needs explicitly.
package config

import (
	"strconv"
	"strings"
	"time"
)

// Paths holds the resolved, absolute filesystem roots the pipeline operates on.
type Paths struct {
	Inbox      string
	Staging    string
	Library    string
	Quarantine string
	Data       string
}

// Thresholds holds the empirical constants the spec calls out as part of the
// contract but overridable without changing default behavior (SPEC_FULL.md §9,
// open question 1).
type Thresholds struct {
	DrainUsagePct      float64       // proactive drain trigger, default 85.0
	ArtistSettleAge    time.Duration // default 300s
	AlbumSettleAge     time.Duration // default 300s
	ChunkSize          int           // default 500
	ChunkCooldown      time.Duration // default 2s
	FingerprintWindow  int           // first N fingerprint words compared, default 120
	SimilarityThresh   float64       // tier-2 cluster threshold, default 0.85
	RecordingIDMinConf float64       // tier-3 confirmation score floor, default 0.8
}

// Probe holds connection settings for one safety-probe HTTP client.
type Probe struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// MediaServerTarget is one downstream refresh poke.
type MediaServerTarget struct {
	Name   string
	URL    string
	Method string
}

// SchedulerMode selects one of the three pipeline scheduler shapes (§4.5).
type SchedulerMode string

const (
	SchedulerContinuous SchedulerMode = "continuous"
	SchedulerInterval   SchedulerMode = "interval"
	SchedulerWallClock  SchedulerMode = "wallclock"
)

// Config is the single typed configuration record passed to every component
// constructor at startup.
type Config struct {
	Paths      Paths
	Thresholds Thresholds

	PeerTransferProbe Probe
	NewsgroupProbe    Probe

	MediaServers []MediaServerTarget

	PipelineMode            SchedulerMode
	PipelineIntervalMinutes int
	PipelineCooldown        time.Duration
	PipelinePollInterval    time.Duration

	MetadataRefreshEnabled bool
	MetadataRefreshAt      string // "HH:MM"
	DiscogsRefreshEnabled  bool
	DiscogsRefreshAt       string
	RegenIntervalMinutes   int

	DedupUseMusicBrainz bool
	AcoustIDAPIKey      string

	FpcalcPath    string
	FfprobePath   string
	CataloguerBin string

	LockFilePath string

	HealthAddr string

	LogLevel   string
	LogConsole bool
}

// Load builds a Config from the process environment using getenv as the
// lookup function (os.Getenv in production, a map in tests).
func Load(getenv func(string) string) Config {
	data := getString(getenv, "INGESTORD_DATA_DIR", "/data")

	return Config{
		Paths: Paths{
			Inbox:      getString(getenv, "INGESTORD_INBOX_DIR", "/inbox"),
			Staging:    getString(getenv, "INGESTORD_STAGING_DIR", "/pre-library"),
			Library:    getString(getenv, "INGESTORD_LIBRARY_DIR", "/library"),
			Quarantine: getString(getenv, "INGESTORD_QUARANTINE_DIR", "/quarantine"),
			Data:       data,
		},
		Thresholds: Thresholds{
			DrainUsagePct:      getFloat(getenv, "INGESTORD_DRAIN_USAGE_PCT", 85.0),
			ArtistSettleAge:    getDuration(getenv, "INGESTORD_ARTIST_SETTLE_AGE", 300*time.Second),
			AlbumSettleAge:     getDuration(getenv, "INGESTORD_ALBUM_SETTLE_AGE", 300*time.Second),
			ChunkSize:          getInt(getenv, "INGESTORD_CHUNK_SIZE", 500),
			ChunkCooldown:      getDuration(getenv, "INGESTORD_CHUNK_COOLDOWN", 2*time.Second),
			FingerprintWindow:  getInt(getenv, "INGESTORD_FINGERPRINT_WINDOW", 120),
			SimilarityThresh:   getFloat(getenv, "INGESTORD_FP_SIMILARITY_THRESHOLD", 0.85),
			RecordingIDMinConf: getFloat(getenv, "INGESTORD_RECORDING_ID_MIN_CONFIDENCE", 0.8),
		},
		PeerTransferProbe: Probe{
			BaseURL: getString(getenv, "INGESTORD_PEER_DAEMON_URL", ""),
			APIKey:  getString(getenv, "INGESTORD_PEER_DAEMON_API_KEY", ""),
			Timeout: getDuration(getenv, "INGESTORD_PEER_DAEMON_TIMEOUT", 10*time.Second),
		},
		NewsgroupProbe: Probe{
			BaseURL: getString(getenv, "INGESTORD_NEWSGROUP_DAEMON_URL", ""),
			APIKey:  getString(getenv, "INGESTORD_NEWSGROUP_DAEMON_API_KEY", ""),
			Timeout: getDuration(getenv, "INGESTORD_NEWSGROUP_DAEMON_TIMEOUT", 10*time.Second),
		},
		MediaServers: parseMediaServers(getString(getenv, "INGESTORD_MEDIA_SERVERS", "")),

		PipelineMode:            SchedulerMode(getString(getenv, "PIPELINE_MODE", string(SchedulerContinuous))),
		PipelineIntervalMinutes: getInt(getenv, "PIPELINE_INTERVAL_MINUTES", 30),
		PipelineCooldown:        getDuration(getenv, "INGESTORD_PIPELINE_COOLDOWN", 10*time.Second),
		PipelinePollInterval:    getDuration(getenv, "INGESTORD_PIPELINE_POLL_INTERVAL", 5*time.Second),

		MetadataRefreshEnabled: getBool(getenv, "METADATA_REFRESH_ENABLED", false),
		MetadataRefreshAt:      getString(getenv, "METADATA_REFRESH_AT", "03:30"),
		DiscogsRefreshEnabled:  getBool(getenv, "DISCOGS_REFRESH_ENABLED", false),
		DiscogsRefreshAt:       getString(getenv, "DISCOGS_REFRESH_AT", "04:00"),
		RegenIntervalMinutes:   getInt(getenv, "REGEN_INTERVAL_MINUTES", 60),

		DedupUseMusicBrainz: getBool(getenv, "DEDUP_USE_MUSICBRAINZ", true),
		AcoustIDAPIKey:      getString(getenv, "INGESTORD_ACOUSTID_API_KEY", "ToQiZOt39C"),

		FpcalcPath:    getString(getenv, "INGESTORD_FPCALC_PATH", "fpcalc"),
		FfprobePath:   getString(getenv, "INGESTORD_FFPROBE_PATH", "ffprobe"),
		CataloguerBin: getString(getenv, "INGESTORD_CATALOGUER_BIN", "beet"),

		LockFilePath: getString(getenv, "INGESTORD_LOCK_FILE", data+"/pipeline.lock"),

		HealthAddr: getString(getenv, "INGESTORD_HEALTH_ADDR", "127.0.0.1:9091"),

		LogLevel:   getString(getenv, "INGESTORD_LOG_LEVEL", "info"),
		LogConsole: getBool(getenv, "INGESTORD_LOG_CONSOLE", false),
	}
}

func parseMediaServers(raw string) []MediaServerTarget {
	if raw == "" {
		return nil
	}
	var targets []MediaServerTarget
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		fields := strings.Split(entry, "|")
		t := MediaServerTarget{Method: "GET"}
		switch len(fields) {
		case 1:
			t.Name, t.URL = fields[0], fields[0]
		case 2:
			t.Name, t.URL = fields[0], fields[1]
		default:
			t.Name, t.URL, t.Method = fields[0], fields[1], fields[2]
		}
		targets = append(targets, t)
	}
	return targets
}

func getString(getenv func(string) string, key, defaultValue string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getInt(getenv func(string) string, key string, defaultValue int) int {
	raw := getenv(key)
	if raw == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return i
}

func getFloat(getenv func(string) string, key string, defaultValue float64) float64 {
	raw := getenv(key)
	if raw == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return defaultValue
	}
	return f
}

func getDuration(getenv func(string) string, key string, defaultValue time.Duration) time.Duration {
	raw := getenv(key)
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return defaultValue
	}
	return d
}

func getBool(getenv func(string) string, key string, defaultValue bool) bool {
	raw := getenv(key)
	if raw == "" {
		return defaultValue
	}
	switch strings.ToLower(raw) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultValue
	}
}
