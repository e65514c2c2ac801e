// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package probes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/oxbow-labs/ingestord/internal/config"
)

func TestNewsgroupProbe_IsArtistBusy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"queue":{"slots":[
			{"status":"Downloading","storage":"/downloads/Aphex Twin/Selected Ambient Works","filename":""},
			{"status":"Paused","storage":"/downloads/Other Artist/x","filename":""}
		]}}`))
	}))
	defer srv.Close()

	probe := NewNewsgroupProbe(config.Probe{BaseURL: srv.URL, Timeout: 5 * time.Second})
	ctx := context.Background()

	if !probe.IsArtistBusy(ctx, "Aphex Twin") {
		t.Error("expected artist with downloading job to be busy")
	}
	if probe.IsArtistBusy(ctx, "Other Artist") {
		t.Error("expected paused job not to block")
	}
}

func TestNewsgroupProbe_UnreachableFailsIdle(t *testing.T) {
	probe := NewNewsgroupProbe(config.Probe{BaseURL: "http://127.0.0.1:1", Timeout: 200 * time.Millisecond})
	if probe.IsArtistBusy(context.Background(), "Anything") {
		t.Error("expected unreachable newsgroup probe to fail open (idle)")
	}
}

func TestNewsgroupProbe_FilenameMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"queue":{"slots":[{"status":"Extracting","storage":"","filename":"Radiohead.OK.Computer.zip"}]}}`))
	}))
	defer srv.Close()

	probe := NewNewsgroupProbe(config.Probe{BaseURL: srv.URL, Timeout: 5 * time.Second})
	if !probe.IsArtistBusy(context.Background(), "Radiohead") {
		t.Error("expected filename match to report busy")
	}
}
