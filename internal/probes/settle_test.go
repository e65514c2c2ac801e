// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package probes

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestIsSettled_EmptyDirIsSettled(t *testing.T) {
	dir := t.TempDir()
	settled, err := IsSettled(dir, 300*time.Second, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if !settled {
		t.Error("expected empty directory to be settled")
	}
}

func TestIsSettled_RecentWriteIsNotSettled(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "track.flac")
	if err := os.WriteFile(file, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	if err := os.Chtimes(file, now, now); err != nil {
		t.Fatal(err)
	}

	settled, err := IsSettled(dir, 300*time.Second, now)
	if err != nil {
		t.Fatal(err)
	}
	if settled {
		t.Error("expected freshly-written file not to be settled")
	}
}

func TestIsSettled_OldWriteIsSettled(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "track.flac")
	if err := os.WriteFile(file, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-1 * time.Hour)
	if err := os.Chtimes(file, old, old); err != nil {
		t.Fatal(err)
	}

	settled, err := IsSettled(dir, 300*time.Second, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if !settled {
		t.Error("expected hour-old file to be settled under a 300s threshold")
	}
}
