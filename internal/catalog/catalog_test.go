// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package catalog

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// fakeBinScript writes a tiny shell script standing in for the cataloguer
// binary, so these tests never depend on beets being installed.
func fakeBinScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake shell script harness requires a POSIX shell")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "fakebin.sh")
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o700); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCataloguerImportSuccess(t *testing.T) {
	bin := fakeBinScript(t, "echo ok; exit 0")
	c := New(bin, zerolog.Nop())

	res, err := c.Import(context.Background(), "/staging/Artist/Album")
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", res.ExitCode)
	}
}

func TestCataloguerImportFailureTripsBreaker(t *testing.T) {
	bin := fakeBinScript(t, "echo boom 1>&2; exit 1")
	c := New(bin, zerolog.Nop())

	for i := 0; i < 3; i++ {
		if _, err := c.Import(context.Background(), "/staging/x"); err == nil {
			t.Fatalf("Import() iteration %d: expected error", i)
		}
	}

	if got := c.State(); got != "open" {
		t.Errorf("State() = %q, want %q after 3 consecutive failures", got, "open")
	}

	if _, err := c.Import(context.Background(), "/staging/x"); err == nil {
		t.Error("expected circuit-open error on 4th call")
	}
}

func TestCataloguerMoveRecentBuildsDateQuery(t *testing.T) {
	bin := fakeBinScript(t, `
if [ "$2" != "-q" ]; then exit 1; fi
case "$3" in
  added:*) exit 0 ;;
  *) exit 1 ;;
esac
`)
	c := New(bin, zerolog.Nop())

	_, err := c.MoveRecent(context.Background(), time.Date(2026, 7, 28, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("MoveRecent() error = %v", err)
	}
}
