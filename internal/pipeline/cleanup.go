// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
)

// failedImportsDirName is the sentinel directory name that must live only
// under staging/ or quarantine/, never inside the inbox.
const failedImportsDirName = "failed_imports"

// unpackPrefix marks an in-progress unpack the artist loop must skip.
const unpackPrefix = "_UNPACK_"

// cleanupInvalid removes any failed_imports/ directory that has been
// created inside the inbox root, which can happen if a previous process
// crashed mid-move (SPEC_FULL.md §4.4, CLEANUP_INVALID).
func (c *Controller) cleanupInvalid() error {
	path := filepath.Join(c.cfg.Paths.Inbox, failedImportsDirName)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("pipeline: stat %s: %w", path, err)
	}

	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("pipeline: remove stray %s: %w", path, err)
	}
	c.logger.Warn().Str("path", path).Msg("removed failed_imports found inside inbox")
	return nil
}

// isSkippedInboxChild reports whether name is a sentinel the artist loop
// must never treat as an artist folder.
func isSkippedInboxChild(name string) bool {
	if name == failedImportsDirName {
		return true
	}
	return len(name) >= len(unpackPrefix) && name[:len(unpackPrefix)] == unpackPrefix
}
