// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package lockfile implements the pipeline's exclusive run lock: an
// advisory flock over a single named file, serialising pipeline passes
// across processes, with stale-owner detection via a process-table scan.
package lockfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// ErrHeld is returned when the lock is held by a live process.
var ErrHeld = errors.New("lockfile: held by a live process")

// Lock guards one pipeline pass. It is not reentrant: Acquire must be paired
// with exactly one Release.
type Lock struct {
	path      string
	marker    string
	file      *os.File
	pgrepScan func(marker string) (bool, error)
}

// New returns a Lock over path. marker is the substring Acquire looks for in
// another process's command line when deciding whether a held lock is stale;
// callers pass something unique to the pipeline binary (e.g. "ingestord").
func New(path, marker string) *Lock {
	return &Lock{path: path, marker: marker, pgrepScan: scanProcessTableForMarker}
}

// Acquire takes the exclusive lock, clearing it first if it is present but
// stale (no live process matches marker). Returns ErrHeld if a live process
// holds it.
func (l *Lock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o750); err != nil {
		return fmt.Errorf("lockfile: prepare directory: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o640)
	if err != nil {
		return fmt.Errorf("lockfile: open %s: %w", l.path, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		if !errors.Is(err, unix.EWOULDBLOCK) && !errors.Is(err, unix.EAGAIN) {
			_ = f.Close()
			return fmt.Errorf("lockfile: flock %s: %w", l.path, err)
		}

		live, scanErr := l.pgrepScan(l.marker)
		if scanErr != nil || live {
			_ = f.Close()
			return ErrHeld
		}

		// Stale: no live owner matches the lock-holder marker, yet the kernel
		// still reports the old inode as locked (e.g. the prior process was
		// killed in a way that left the fd around under another namespace).
		// Re-create the file under a fresh inode so the stale flock cannot
		// follow it, then acquire on the new inode.
		_ = f.Close()
		if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("lockfile: clear stale lock %s: %w", l.path, err)
		}
		f, err = os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o640)
		if err != nil {
			return fmt.Errorf("lockfile: recreate %s: %w", l.path, err)
		}
		if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
			_ = f.Close()
			return ErrHeld
		}
	}

	if err := f.Truncate(0); err != nil {
		_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
		_ = f.Close()
		return fmt.Errorf("lockfile: truncate %s: %w", l.path, err)
	}
	if _, err := f.WriteString(strconv.Itoa(os.Getpid())); err != nil {
		_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
		_ = f.Close()
		return fmt.Errorf("lockfile: write pid: %w", err)
	}

	l.file = f
	return nil
}

// Release unlocks and closes the lock file. Safe to call on a Lock that
// never successfully Acquired (no-op).
func (l *Lock) Release() error {
	if l.file == nil {
		return nil
	}
	defer func() {
		_ = l.file.Close()
		l.file = nil
	}()
	if err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN); err != nil {
		return fmt.Errorf("lockfile: unlock %s: %w", l.path, err)
	}
	return nil
}

// Probe verifies the lock subsystem is reachable without disturbing a
// currently-held lock: it confirms the lock directory exists (creating it
// if needed) and that the lock path, if present, stats cleanly. Used by
// internal/healthsrv's liveness checker.
func (l *Lock) Probe() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o750); err != nil {
		return fmt.Errorf("lockfile: probe directory: %w", err)
	}
	if _, err := os.Stat(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("lockfile: probe %s: %w", l.path, err)
	}
	return nil
}

// scanProcessTableForMarker reports whether any process other than the
// current one has marker as a substring of its command line, per the
// original controller's pgrep-based stale-lock check.
func scanProcessTableForMarker(marker string) (bool, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		// No /proc (non-Linux or restricted environment): fail closed by
		// treating the lock as live rather than risking a double-run.
		return true, err
	}

	self := os.Getpid()
	for _, entry := range entries {
		pid, err := strconv.Atoi(entry.Name())
		if err != nil || pid == self {
			continue
		}
		cmdline, err := os.ReadFile(filepath.Join("/proc", entry.Name(), "cmdline"))
		if err != nil {
			continue // process exited mid-scan, or unreadable: not a match
		}
		if strings.Contains(string(cmdline), marker) {
			return true, nil
		}
	}
	return false, nil
}
