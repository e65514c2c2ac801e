// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package status implements the pipeline's status record: the single
// {timestamp, status, detail, current_artist, run_id} document the
// controller writes on every state transition so an external observer
// always has a canonical, never-partial view of the last pass (SPEC_FULL.md
// §3, §6). Every write goes through renameio's temp-then-rename path.
package status

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/renameio/v2"
)

// State is one of the pipeline's lifecycle states surfaced to observers.
type State string

const (
	Idle    State = "idle"
	Running State = "running"
	Success State = "success"
	Error   State = "error"
)

// Record is the status document written to data/pipeline_status.json.
type Record struct {
	Timestamp     time.Time `json:"timestamp"`
	Status        State     `json:"status"`
	Detail        string    `json:"detail"`
	CurrentArtist string    `json:"current_artist"`
	RunID         string    `json:"run_id"`
}

// Writer persists the latest Record atomically to one path, and keeps the
// last-written value in memory so health checks can read it without a disk
// round trip.
type Writer struct {
	path string

	mu   sync.RWMutex
	last Record
}

// NewWriter returns a Writer that persists to path (typically
// data/pipeline_status.json).
func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

// Write persists rec as the new current status, via temp-file-then-rename
// so concurrent readers (health checks, a future UI) never observe a
// partially-written document.
func (w *Writer) Write(rec Record) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	body, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("status: marshal: %w", err)
	}
	if err := renameio.WriteFile(w.path, body, 0o640); err != nil {
		return fmt.Errorf("status: write %s: %w", w.path, err)
	}

	w.mu.Lock()
	w.last = rec
	w.mu.Unlock()
	return nil
}

// Last returns the most recently written Record, from memory.
func (w *Writer) Last() Record {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.last
}

// Read loads the Record currently persisted at path. Returns the zero
// Record and no error if the file doesn't exist yet (the daemon has never
// completed a pass).
func Read(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Record{}, nil
		}
		return Record{}, fmt.Errorf("status: read %s: %w", path, err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("status: parse %s: %w", path, err)
	}
	return rec, nil
}
