// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package probes

import (
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// IsSettled walks root and reports whether the newest file mtime found under
// it is at least minAge old. An empty tree (no files at all, or every entry
// already gone by the time it's stat'd) is considered settled: there is
// nothing left that could still be mid-write.
func IsSettled(root string, minAge time.Duration, now time.Time) (bool, error) {
	var newest time.Time

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, statErr := d.Info()
		if statErr != nil {
			if os.IsNotExist(statErr) {
				return nil
			}
			return statErr
		}
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	if newest.IsZero() {
		return true, nil
	}
	return now.Sub(newest) >= minAge, nil
}
