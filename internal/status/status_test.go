// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package status

import (
	"path/filepath"
	"testing"
	"time"
)

func TestWriterWriteAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline_status.json")
	w := NewWriter(path)

	rec := Record{
		Status:        Running,
		Detail:        "processing artist",
		CurrentArtist: "Boards of Canada",
		RunID:         "run-1",
	}
	if err := w.Write(rec); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got.Status != Running || got.CurrentArtist != "Boards of Canada" || got.RunID != "run-1" {
		t.Errorf("Read() = %+v, want matching status/current_artist/run_id", got)
	}
	if got.Timestamp.IsZero() {
		t.Error("expected Write to stamp a non-zero Timestamp")
	}
}

func TestWriterLastReflectsMostRecentWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline_status.json")
	w := NewWriter(path)

	if err := w.Write(Record{Status: Running, RunID: "run-1"}); err != nil {
		t.Fatal(err)
	}
	if err := w.Write(Record{Status: Success, RunID: "run-1"}); err != nil {
		t.Fatal(err)
	}

	if got := w.Last(); got.Status != Success {
		t.Errorf("Last().Status = %v, want %v", got.Status, Success)
	}
}

func TestReadMissingFileReturnsZeroValue(t *testing.T) {
	got, err := Read(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("Read() error = %v, want nil for missing file", err)
	}
	if got != (Record{}) {
		t.Errorf("Read() = %+v, want zero value", got)
	}
}

func TestWriterWriteIsAtomicAcrossMultipleWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline_status.json")
	w := NewWriter(path)

	for i := 0; i < 5; i++ {
		rec := Record{Status: Running, Detail: "tick", Timestamp: time.Now()}
		if err := w.Write(rec); err != nil {
			t.Fatalf("Write() iteration %d error = %v", i, err)
		}
		if _, err := Read(path); err != nil {
			t.Fatalf("Read() iteration %d error = %v", i, err)
		}
	}
}
