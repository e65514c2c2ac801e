// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package lockfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/sys/unix"
)

func TestAcquireRelease_Uncontended(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.lock")
	l := New(path, "ingestord")

	if err := l.Acquire(); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}

	// Reacquiring after release must succeed.
	if err := l.Acquire(); err != nil {
		t.Fatalf("second Acquire() error = %v", err)
	}
	_ = l.Release()
}

func TestAcquire_HeldByLiveProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.lock")

	holder := New(path, "ingestord")
	if err := holder.Acquire(); err != nil {
		t.Fatalf("holder Acquire() error = %v", err)
	}
	defer holder.Release()

	contender := New(path, "ingestord")
	err := contender.Acquire()
	if !errors.Is(err, ErrHeld) {
		t.Fatalf("contender Acquire() error = %v, want ErrHeld", err)
	}
}

func TestAcquire_StaleLockIsCleared(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.lock")

	// Simulate a crashed holder: the lock file is left on disk but its
	// flock is dropped, which is what the kernel does when a holder exits
	// without releasing. The contender's flock then succeeds, so the
	// injected "process table scan finds nothing" stub is only a guard and
	// is not expected to be called on this path.
	holder := New(path, "ingestord")
	if err := holder.Acquire(); err != nil {
		t.Fatalf("holder Acquire() error = %v", err)
	}
	if err := unix.Flock(int(fileFD(t, holder)), unix.LOCK_UN); err != nil {
		t.Fatalf("pre-unlock for stale simulation: %v", err)
	}

	l := New(path, "ingestord")
	l.pgrepScan = func(string) (bool, error) { return false, nil }

	if err := l.Acquire(); err != nil {
		t.Fatalf("Acquire() on stale lock error = %v", err)
	}
	_ = l.Release()
}

func fileFD(t *testing.T, l *Lock) uintptr {
	t.Helper()
	if l.file == nil {
		t.Fatal("lock has no open file")
	}
	return l.file.Fd()
}

func TestScanProcessTableForMarker_NoMatchForUnknownMarker(t *testing.T) {
	// The current test binary's own cmdline never contains this sentinel,
	// so the scan must report not-found without erroring.
	found, err := scanProcessTableForMarker("sentinel-that-will-never-match-xyz")
	if err != nil {
		t.Fatalf("scan error = %v", err)
	}
	if found {
		t.Error("expected no process to match an impossible marker")
	}
}

func TestScanProcessTableForMarker_RequiresProc(t *testing.T) {
	if _, err := os.Stat("/proc"); err != nil {
		t.Skip("no /proc on this platform")
	}
	// Matching against a genuinely live sibling process with a known
	// cmdline marker is exercised in integration testing, where the
	// pipeline binary itself can be the holder; a unit test has no stable
	// way to control another process's argv.
}
