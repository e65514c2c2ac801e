// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package pathutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfineRelPath(t *testing.T) {
	tmpDir := t.TempDir()

	subDir := filepath.Join(tmpDir, "subdir")
	if err := os.Mkdir(subDir, 0o750); err != nil {
		t.Fatal(err)
	}
	safeFile := filepath.Join(tmpDir, "safe.flac")
	if err := os.WriteFile(safeFile, []byte("safe"), 0o600); err != nil {
		t.Fatal(err)
	}
	linkOutside := filepath.Join(tmpDir, "link_outside")
	if err := os.Symlink("..", linkOutside); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		target  string
		wantErr bool
	}{
		{name: "valid simple file", target: "safe.flac"},
		{name: "valid subdir path", target: "subdir/album"},
		{name: "traversal via dotdot", target: "../outside", wantErr: true},
		{name: "traversal via symlink", target: "link_outside/passwd", wantErr: true},
		{name: "absolute rejected", target: "/etc/passwd", wantErr: true},
		{name: "backslash rejected", target: `sub\dir`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ConfineRelPath(tmpDir, tt.target)
			if (err != nil) != tt.wantErr {
				t.Errorf("ConfineRelPath(%q) err = %v, wantErr %v", tt.target, err, tt.wantErr)
			}
		})
	}
}

func TestIsRegularFile(t *testing.T) {
	tmpDir := t.TempDir()
	file := filepath.Join(tmpDir, "track.flac")
	if err := os.WriteFile(file, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := IsRegularFile(file); err != nil {
		t.Errorf("expected regular file, got err: %v", err)
	}
	if err := IsRegularFile(tmpDir); err == nil {
		t.Error("expected error for directory")
	}
	if err := IsRegularFile(filepath.Join(tmpDir, "missing")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSafeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"AC/DC", "AC-DC"},
		{"  Radiohead  ", "Radiohead"},
		{"", "Unknown"},
		{"   ", "Unknown"},
		{"Boards of Canada", "Boards of Canada"},
	}
	for _, tt := range tests {
		if got := SafeName(tt.in); got != tt.want {
			t.Errorf("SafeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFlattenForQuarantine(t *testing.T) {
	ts := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)

	got := FlattenForQuarantine("Foo/(2001) Bar/01.flac", ts)
	if !strings.HasPrefix(got, "Foo - (2001) Bar - 01") {
		t.Errorf("unexpected flattened prefix: %q", got)
	}
	if !strings.HasSuffix(got, ".flac") {
		t.Errorf("expected extension preserved, got %q", got)
	}
	if !strings.Contains(got, "20260729T120000Z") {
		t.Errorf("expected run timestamp in flattened name, got %q", got)
	}
}

func TestFlattenForQuarantine_AllIllegalFallsBackToStuck(t *testing.T) {
	ts := time.Now()
	got := FlattenForQuarantine("///", ts)
	if !strings.Contains(got, ".stuck") {
		t.Errorf("expected .stuck fallback, got %q", got)
	}
}

func TestUniqueFileName(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, "01.flac"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	got := UniqueFileName(tmpDir, "01.flac")
	if got != "01_1.flac" {
		t.Errorf("UniqueFileName() = %q, want 01_1.flac", got)
	}

	got = UniqueFileName(tmpDir, "02.flac")
	if got != "02.flac" {
		t.Errorf("UniqueFileName() for non-colliding name = %q, want 02.flac", got)
	}
}

func TestUniqueFolderName(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.Mkdir(filepath.Join(tmpDir, "Bar"), 0o750); err != nil {
		t.Fatal(err)
	}
	ts := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)

	got := UniqueFolderName(tmpDir, "Bar", ts)
	if got != "Bar_20260729T120000Z" {
		t.Errorf("UniqueFolderName() = %q, want Bar_20260729T120000Z", got)
	}

	got = UniqueFolderName(tmpDir, "Baz", ts)
	if got != "Baz" {
		t.Errorf("UniqueFolderName() for non-colliding name = %q, want Baz", got)
	}
}
