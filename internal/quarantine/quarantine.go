// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package quarantine moves files the pipeline cannot safely keep in
// circulation — integrity failures and cataloguer rejections — into one of
// the two append-only quarantine roots, flattening their original nested
// path into a single unique filename so nothing is ever silently
// overwritten or deleted (SPEC_FULL.md §3, §3.1, §4.7).
package quarantine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"github.com/oxbow-labs/ingestord/internal/pathutil"
)

// Quarantine owns the two append-only quarantine sub-areas.
type Quarantine struct {
	corruptRoot       string
	failedImportsRoot string
}

// New returns a Quarantine rooted at root, with corrupt/ and
// failed_imports/ as its two sub-areas.
func New(root string) *Quarantine {
	return &Quarantine{
		corruptRoot:       filepath.Join(root, "corrupt"),
		failedImportsRoot: filepath.Join(root, "failed_imports"),
	}
}

// FailedImportsRoot returns the failed_imports quarantine sub-area path.
func (q *Quarantine) FailedImportsRoot() string { return q.failedImportsRoot }

// CorruptRoot returns the corrupt quarantine sub-area path.
func (q *Quarantine) CorruptRoot() string { return q.corruptRoot }

// Corrupt moves an integrity-check failure into quarantine/corrupt/. relTo
// is the root of the tree the file was found in (e.g. the inbox root); the
// path relative to it builds the flattened filename so the original
// location survives in the quarantined name.
func (q *Quarantine) Corrupt(path, relTo string, runTimestamp time.Time) error {
	return q.move(path, relTo, q.corruptRoot, runTimestamp)
}

// FailedImport moves a cataloguer rejection (found under
// staging/failed_imports/) into quarantine/failed_imports/.
func (q *Quarantine) FailedImport(path, relTo string, runTimestamp time.Time) error {
	return q.move(path, relTo, q.failedImportsRoot, runTimestamp)
}

func (q *Quarantine) move(path, relTo, destRoot string, runTimestamp time.Time) error {
	rel, err := filepath.Rel(relTo, path)
	if err != nil {
		rel = filepath.Base(path)
	}

	if err := os.MkdirAll(destRoot, 0o750); err != nil {
		return fmt.Errorf("quarantine: prepare %s: %w", destRoot, err)
	}

	name := pathutil.FlattenForQuarantine(rel, runTimestamp)
	dst := uniqueQuarantinePath(destRoot, name)

	if err := moveFile(path, dst); err != nil {
		return fmt.Errorf("quarantine: move %s -> %s: %w", path, dst, err)
	}
	return nil
}

// uniqueQuarantinePath guards the effectively-never case where the
// flattened, timestamp-suffixed name still collides: it appends ".stuck"
// (and, if that's already taken too, a numeric counter) rather than
// silently failing the move.
func uniqueQuarantinePath(destRoot, name string) string {
	candidate := filepath.Join(destRoot, name)
	if _, err := os.Stat(candidate); os.IsNotExist(err) {
		return candidate
	}
	stuck := candidate + ".stuck"
	for counter := 1; ; counter++ {
		if _, err := os.Stat(stuck); os.IsNotExist(err) {
			return stuck
		}
		stuck = fmt.Sprintf("%s.stuck.%d", candidate, counter)
	}
}

func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err != nil {
		var linkErr *os.LinkError
		if errors.As(err, &linkErr) && errors.Is(linkErr.Err, unix.EXDEV) {
			return copyAndRemove(src, dst)
		}
		return err
	}
	return nil
}

// copyAndRemove implements the cross-filesystem-safe move contract (§3):
// the destination is fsynced before the source is removed, so a crash
// mid-move never leaves the file in neither location.
func copyAndRemove(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return err
	}
	if _, err := out.ReadFrom(in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}

// IsNotExist reports whether err indicates the source file was already
// gone when the move was attempted — callers treat this as a no-op rather
// than an error, since the inbox is concurrently mutated by an external
// downloader.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
