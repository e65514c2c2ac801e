// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oxbow-labs/ingestord/internal/mediaservers"
	"github.com/oxbow-labs/ingestord/internal/metrics"
)

// finalize moves every file the cataloguer left under
// staging/failed_imports/ into quarantine/failed_imports/, fixes
// permissions (chmod only, never ownership) on the library tree, and pokes
// every configured media server to pick up the newly imported material
// (SPEC_FULL.md §4.4, FINALIZE).
func (c *Controller) finalize(ctx context.Context, pass *passState) error {
	failedRoot := c.failedImportsDir()
	_ = filepath.WalkDir(failedRoot, func(path string, d os.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			if qerr := c.quarantine.FailedImport(path, failedRoot, time.Now()); qerr != nil {
				pass.logger.Error().Str("path", path).Err(qerr).Msg("failed to quarantine failed import")
			} else {
				metrics.RecordQuarantine("failed_import")
			}
		}
		return nil
	})

	if err := mediaservers.FixPermissions(c.cfg.Paths.Library); err != nil {
		return fmt.Errorf("pipeline: fix library permissions: %w", err)
	}

	c.notifier.NotifyAll(ctx)
	pass.logger.Info().Msg("media server notifications sent")
	return nil
}
