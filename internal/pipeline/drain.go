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

	"github.com/oxbow-labs/ingestord/internal/metrics"
)

// failedImportsDir is the one child of staging/ that survives a Clear.
func (c *Controller) failedImportsDir() string {
	return filepath.Join(c.stage.Root(), failedImportsDirName)
}

// drainStartup drains whatever is left in staging from a previous crashed
// pass, before the current pass adds anything new (SPEC_FULL.md §4.4,
// DRAIN_STARTUP).
func (c *Controller) drainStartup(ctx context.Context, pass *passState) error {
	entries, err := os.ReadDir(c.stage.Root())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("pipeline: read staging root for startup drain: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	return c.drain(ctx, pass, "startup")
}

// drain runs the Deduplicator and the cataloguer over whatever is
// currently staged, then clears the staging root (except
// failed_imports/), per the Staging Manager's documented contract
// (SPEC_FULL.md §4.2).
func (c *Controller) drain(ctx context.Context, pass *passState, reason string) error {
	metrics.RecordDrain(reason)
	pass.logger.Info().Str("reason", reason).Msg("draining staging")

	if err := c.dedupStagedAlbums(ctx, pass); err != nil {
		pass.logger.Warn().Err(err).Msg("dedup pass over staging encountered an error, continuing drain")
	}

	if _, err := c.cataloguer.Import(ctx, c.stage.Root()); err != nil {
		pass.logger.Warn().Err(err).Msg("cataloguer import reported a failure; affected items remain staged")
	}

	since := time.Now().Add(-24 * time.Hour)
	if _, err := c.cataloguer.Update(ctx); err != nil {
		pass.logger.Warn().Err(err).Msg("cataloguer update reported a failure")
	}
	if _, err := c.cataloguer.MoveRecent(ctx, since); err != nil {
		pass.logger.Warn().Err(err).Msg("cataloguer move reported a failure")
	}

	cleared, failed, err := c.stage.Clear(c.failedImportsDir())
	if err != nil {
		return fmt.Errorf("pipeline: clear staging after drain: %w", err)
	}
	pass.logger.Info().Int("cleared", cleared).Int("failed", failed).Msg("staging cleared")
	return nil
}

// dedupStagedAlbums walks each album folder directly under staging and
// runs the Deduplicator over its files, moving rejects to
// staging/dedup_rejected/ with a run-timestamp prefix, per SPEC_FULL.md
// §4.3.
func (c *Controller) dedupStagedAlbums(ctx context.Context, pass *passState) error {
	artists, err := os.ReadDir(c.stage.Root())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	rejectedRoot := filepath.Join(c.stage.Root(), "dedup_rejected")

	for _, artistEntry := range artists {
		if !artistEntry.IsDir() || artistEntry.Name() == failedImportsDirName || artistEntry.Name() == "dedup_rejected" {
			continue
		}
		artistDir := filepath.Join(c.stage.Root(), artistEntry.Name())

		albums, err := os.ReadDir(artistDir)
		if err != nil {
			continue
		}
		for _, albumEntry := range albums {
			if !albumEntry.IsDir() {
				continue
			}
			albumDir := filepath.Join(artistDir, albumEntry.Name())
			files := listAudioFiles(albumDir)
			if len(files) == 0 {
				continue
			}

			_, rejected := c.dedup.Dedup(ctx, files)
			for _, r := range rejected {
				pass.stats.dedupRejected++
				metrics.RecordDedupRejection(dedupTier(r.Reason))
				dst := filepath.Join(rejectedRoot, c.runTimestamp()+"_"+filepath.Base(r.Rejected))
				if err := os.MkdirAll(rejectedRoot, 0o750); err == nil {
					_ = os.Rename(r.Rejected, dst)
				}
			}
		}
	}
	return nil
}

func dedupTier(reason string) string {
	if len(reason) >= len("tag-dedup") && reason[:len("tag-dedup")] == "tag-dedup" {
		return "tier1"
	}
	return "tier2"
}

// listAudioFiles returns the regular files directly inside dir (no
// recursion) whose extension is in the recognised audio set.
func listAudioFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if isAudioExt(filepath.Ext(e.Name())) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files
}

var audioExts = map[string]struct{}{
	".flac": {}, ".mp3": {}, ".m4a": {}, ".ogg": {}, ".wav": {}, ".aac": {},
}

func isAudioExt(ext string) bool {
	_, ok := audioExts[toLowerExt(ext)]
	return ok
}

func toLowerExt(ext string) string {
	b := []byte(ext)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
