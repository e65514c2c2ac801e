// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package staging implements the Staging Manager: the tmpfs-backed
// pre-library area that material passes through between the inbox and the
// cataloguer. It owns the move, usage, and clear primitives; drain
// orchestration (fingerprint -> import -> clear) belongs to the pipeline
// controller, which has the cataloguer and dedup dependencies this package
// does not.
package staging

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/oxbow-labs/ingestord/internal/pathutil"
)

// ErrFull is returned by a move when the destination filesystem is out of
// space (ENOSPC), distinguishing a tmpfs-full condition from any other move
// failure so the pipeline controller can trigger a drain instead of treating
// the file as unmoveable.
var ErrFull = errors.New("staging: pre-library is full")

// Manager moves material from the inbox into the staging root and reports
// on the staging root's tmpfs usage.
type Manager struct {
	root string
}

// New returns a Manager rooted at root (the staging/pre-library directory).
func New(root string) *Manager {
	return &Manager{root: root}
}

// Root returns the staging root path.
func (m *Manager) Root() string { return m.root }

// EnsureAlbumFolder creates and returns root/albumArtist/album, sanitising
// both components for use as path segments.
func (m *Manager) EnsureAlbumFolder(albumArtist, album string) (string, error) {
	dst := filepath.Join(m.root, pathutil.SafeName(albumArtist), pathutil.SafeName(album))
	if err := os.MkdirAll(dst, 0o750); err != nil {
		return "", fmt.Errorf("staging: create album folder: %w", err)
	}
	return dst, nil
}

// MoveGroup moves every file in files into root/albumArtist/album, renaming
// around any destination-name collision. A file that has disappeared since
// being listed is skipped, not an error: the inbox is being concurrently
// written by an external downloader.
func (m *Manager) MoveGroup(albumArtist, album string, files []string) error {
	dstFolder, err := m.EnsureAlbumFolder(albumArtist, album)
	if err != nil {
		return err
	}

	for _, src := range files {
		if _, statErr := os.Stat(src); errors.Is(statErr, fs.ErrNotExist) {
			continue
		}

		name := pathutil.UniqueFileName(dstFolder, filepath.Base(src))
		dst := filepath.Join(dstFolder, name)

		if err := moveFile(src, dst); err != nil {
			if errors.Is(err, unix.ENOSPC) {
				return fmt.Errorf("%w: moving %s", ErrFull, filepath.Base(src))
			}
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("staging: move %s -> %s: %w", src, dst, err)
		}
	}
	return nil
}

// MoveAlbumFolder moves an entire album directory (srcAlbumFolder, assumed to
// be a child of inboxRoot) into the equivalent path under the staging root,
// preserving the relative path. A destination collision is resolved by
// appending runTimestamp rather than renaming each file individually.
func (m *Manager) MoveAlbumFolder(inboxRoot, srcAlbumFolder string, runTimestamp func() string) error {
	if _, err := os.Stat(srcAlbumFolder); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	rel, err := filepath.Rel(inboxRoot, srcAlbumFolder)
	if err != nil || rel == ".." || len(rel) >= 2 && rel[:2] == ".." {
		rel = filepath.Base(srcAlbumFolder)
	}

	dst := filepath.Join(m.root, rel)
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return fmt.Errorf("staging: create parent for %s: %w", dst, err)
	}

	if _, err := os.Stat(dst); err == nil {
		dst = dst + "_" + runTimestamp()
	}

	if err := os.Rename(srcAlbumFolder, dst); err != nil {
		var linkErr *os.LinkError
		if errors.As(err, &linkErr) && errors.Is(linkErr.Err, unix.EXDEV) {
			err = filepath.WalkDir(srcAlbumFolder, func(p string, d fs.DirEntry, walkErr error) error {
				if walkErr != nil {
					return walkErr
				}
				target := filepath.Join(dst, p[len(srcAlbumFolder):])
				if d.IsDir() {
					return os.MkdirAll(target, 0o750)
				}
				return moveFile(p, target)
			})
			if err == nil {
				return nil
			}
		}
		if errors.Is(err, unix.ENOSPC) {
			return fmt.Errorf("%w: moving folder %s", ErrFull, filepath.Base(srcAlbumFolder))
		}
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("staging: move folder %s -> %s: %w", srcAlbumFolder, dst, err)
	}
	return nil
}

// UsagePct returns the staging root's filesystem usage as a percentage in
// [0, 100], computed as 100 * (1 - Bavail/Blocks) via statfs. Returns 0 if
// the root doesn't exist or statfs fails, matching the conservative
// no-drain-on-unknown behavior of the controller this replaces.
func (m *Manager) UsagePct() float64 {
	var st unix.Statfs_t
	if err := unix.Statfs(m.root, &st); err != nil {
		return 0.0
	}
	if st.Blocks == 0 {
		return 0.0
	}
	return 100.0 * (1.0 - float64(st.Bavail)/float64(st.Blocks))
}

// Clear wipes the staging root's contents, skipping failedImportsDir (the
// pipeline moves its files to quarantine at the end of each pass).
func (m *Manager) Clear(failedImportsDir string) (cleared, failed int, err error) {
	entries, readErr := os.ReadDir(m.root)
	if readErr != nil {
		if errors.Is(readErr, fs.ErrNotExist) {
			return 0, 0, nil
		}
		return 0, 0, fmt.Errorf("staging: read %s: %w", m.root, readErr)
	}

	for _, e := range entries {
		if e.Name() == filepath.Base(failedImportsDir) {
			continue
		}
		path := filepath.Join(m.root, e.Name())
		if removeErr := os.RemoveAll(path); removeErr != nil {
			failed++
			continue
		}
		cleared++
	}
	return cleared, failed, nil
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

// copyAndRemove implements the cross-filesystem-safe move contract: the
// destination is fsynced before the source is removed, so a crash
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
