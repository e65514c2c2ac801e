// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/oxbow-labs/ingestord/internal/log"
	"github.com/oxbow-labs/ingestord/internal/metadata"
	"github.com/oxbow-labs/ingestord/internal/metrics"
	"github.com/oxbow-labs/ingestord/internal/probes"
	"github.com/oxbow-labs/ingestord/internal/staging"
)

// safeImageNames are cover art files the junk-cleanup step never removes.
var safeImageNames = map[string]struct{}{
	"cover.jpg": {}, "cover.png": {}, "folder.jpg": {}, "folder.png": {},
}

var safeImageExts = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".webp": {},
}

// minHeaderBytes is the minimum number of leading bytes a candidate audio
// file must yield for the quick integrity check to pass.
const minHeaderBytes = 100

// forEachArtist lists the inbox's children in lexical order and drives
// each artist folder through the gating, staging, and import steps
// described in SPEC_FULL.md §4.4.
func (c *Controller) forEachArtist(ctx context.Context, pass *passState) error {
	entries, err := os.ReadDir(c.cfg.Paths.Inbox)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("pipeline: list inbox: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() || isSkippedInboxChild(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		pass.currentArtist = name
		artistCtx := log.ContextWithArtist(ctx, name)
		if err := c.processArtist(artistCtx, pass, name); err != nil {
			pass.logger.Error().Str("artist", name).Err(err).Msg("error processing artist, continuing with next")
			metrics.RecordArtistOutcome("error")
		}
	}
	pass.currentArtist = ""
	return nil
}

// processArtist runs steps 1-8 of the per-artist loop for one folder.
func (c *Controller) processArtist(ctx context.Context, pass *passState, name string) error {
	artistDir := filepath.Join(c.cfg.Paths.Inbox, name)
	logger := log.WithContext(ctx, pass.logger)

	// Steps 1-2: re-check both safety probes fresh for this artist (a
	// download can start after SNAPSHOT_BUSY was taken at the top of the
	// pass), then gate on the settle timer.
	if c.peer.IsArtistBusy(ctx, name) || c.newsgroup.IsArtistBusy(ctx, name) {
		logger.Info().Str("artist", name).Msg("skipping artist: downloader activity detected")
		pass.stats.artistsSkipped++
		metrics.RecordArtistOutcome("skipped_busy")
		return nil
	}
	settled, err := probes.IsSettled(artistDir, c.cfg.Thresholds.ArtistSettleAge, time.Now())
	if err != nil || !settled {
		logger.Info().Str("artist", name).Msg("skipping artist: not yet settled")
		pass.stats.artistsSkipped++
		metrics.RecordArtistOutcome("skipped_unsettled")
		return nil
	}

	// Step 3: junk cleanup.
	cleanJunk(artistDir)
	pruneEmptyDirsRecursive(artistDir)

	// Step 4: snapshot contents once, splitting loose files from album
	// subfolders, before anything is moved out from under us.
	looseFiles, albumDirs, err := snapshotArtistContents(artistDir)
	if err != nil {
		return fmt.Errorf("snapshot artist contents: %w", err)
	}

	// Step 5: verify each album subfolder is settled and quick-check its
	// audio files, quarantining corrupt ones.
	var importCandidates []string
	for _, albumDir := range albumDirs {
		settled, err := probes.IsSettled(albumDir, c.cfg.Thresholds.AlbumSettleAge, time.Now())
		if err != nil || !settled {
			continue
		}
		if c.quickCheckAndQuarantine(albumDir, pass) {
			importCandidates = append(importCandidates, albumDir)
		}
	}

	imported := false

	// Step 6: chunk album-folder import candidates and drain them.
	for i, chunk := range chunkStrings(importCandidates, c.cfg.Thresholds.ChunkSize) {
		chunkCtx := log.ContextWithChunk(ctx, i)
		if err := c.importAlbumChunk(chunkCtx, pass, chunk); err != nil {
			logger.Error().Err(err).Msg("chunk import failed")
			continue
		}
		imported = true
	}

	// Step 7: regroup loose files by (albumartist, album) and repeat.
	if len(looseFiles) > 0 {
		groups := metadata.GroupFilesByAlbum(looseFiles)
		for i, chunk := range chunkGroups(groups, c.cfg.Thresholds.ChunkSize) {
			chunkCtx := log.ContextWithChunk(ctx, i)
			if err := c.importLooseChunk(chunkCtx, pass, chunk); err != nil {
				logger.Error().Err(err).Msg("loose-file chunk import failed")
				continue
			}
			imported = true
		}
	}

	if imported {
		pass.stats.artistsImported++
		metrics.RecordArtistOutcome("imported")
	}

	// Step 8: prune any now-empty album subfolders, then the artist
	// folder itself and its now-empty ancestors.
	pruneEmptyDirsRecursive(artistDir)
	pruneEmptyDirs(artistDir, c.cfg.Paths.Inbox)

	return nil
}

// importAlbumChunk stages, dedups, and imports one chunk of album-folder
// candidates (SPEC_FULL.md §4.4 step 6).
func (c *Controller) importAlbumChunk(ctx context.Context, pass *passState, chunk []string) error {
	for _, albumDir := range chunk {
		if c.stage.UsagePct() >= c.cfg.Thresholds.DrainUsagePct {
			if err := c.drain(ctx, pass, "proactive"); err != nil {
				return err
			}
		}
		metrics.SetStagingUsagePct(c.stage.UsagePct())

		err := c.stage.MoveAlbumFolder(c.cfg.Paths.Inbox, albumDir, c.runTimestamp)
		if err != nil && errors.Is(err, staging.ErrFull) {
			if drainErr := c.drain(ctx, pass, "emergency_enospc"); drainErr != nil {
				return drainErr
			}
			err = c.stage.MoveAlbumFolder(c.cfg.Paths.Inbox, albumDir, c.runTimestamp)
		}
		if err != nil {
			pass.logger.Error().Str("path", albumDir).Err(err).Msg("failed to stage album folder, skipping")
			continue
		}
	}

	if err := c.drain(ctx, pass, "chunk"); err != nil {
		return err
	}
	time.Sleep(c.cfg.Thresholds.ChunkCooldown)
	return nil
}

// importLooseChunk stages one chunk of regrouped loose-file albums.
func (c *Controller) importLooseChunk(ctx context.Context, pass *passState, chunk map[metadata.Group][]string) error {
	for group, files := range chunk {
		if c.stage.UsagePct() >= c.cfg.Thresholds.DrainUsagePct {
			if err := c.drain(ctx, pass, "proactive"); err != nil {
				return err
			}
		}

		err := c.stage.MoveGroup(group.AlbumArtist, group.Album, files)
		if err != nil && errors.Is(err, staging.ErrFull) {
			if drainErr := c.drain(ctx, pass, "emergency_enospc"); drainErr != nil {
				return drainErr
			}
			err = c.stage.MoveGroup(group.AlbumArtist, group.Album, files)
		}
		if err != nil {
			pass.logger.Error().Str("album_artist", group.AlbumArtist).Str("album", group.Album).Err(err).Msg("failed to stage loose-file group, skipping")
			continue
		}
	}

	if err := c.drain(ctx, pass, "chunk"); err != nil {
		return err
	}
	time.Sleep(c.cfg.Thresholds.ChunkCooldown)
	return nil
}

// quickCheckAndQuarantine verifies every audio file in albumDir exists,
// has non-zero size, and yields a readable header; files that fail are
// quarantined as corrupt. Returns whether the album still has at least
// one surviving audio file.
func (c *Controller) quickCheckAndQuarantine(albumDir string, pass *passState) bool {
	files := listAudioFiles(albumDir)
	survivors := 0
	for _, f := range files {
		if err := quickCheckFile(f); err != nil {
			if qerr := c.quarantine.Corrupt(f, c.cfg.Paths.Inbox, time.Now()); qerr != nil {
				pass.logger.Error().Str("path", f).Err(qerr).Msg("failed to quarantine corrupt file")
				continue
			}
			pass.stats.filesQuarantined++
			metrics.RecordQuarantine("corrupt")
			pass.logger.Warn().Str("path", f).Err(err).Msg("quarantined corrupt file")
			continue
		}
		survivors++
	}
	return survivors > 0
}

func quickCheckFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return fmt.Errorf("empty file")
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	buf := make([]byte, minHeaderBytes)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return fmt.Errorf("unreadable header: %w", err)
	}
	if n < minHeaderBytes {
		return fmt.Errorf("short header read")
	}
	if bytes.Equal(buf[:n], make([]byte, n)) {
		return fmt.Errorf("header is all zero bytes")
	}
	return nil
}

// snapshotArtistContents separates loose audio files from album
// subfolders in one directory read, so both are processed from a
// consistent view even though later steps move entries out of artistDir.
func snapshotArtistContents(artistDir string) (looseFiles []string, albumDirs []string, err error) {
	entries, err := os.ReadDir(artistDir)
	if err != nil {
		return nil, nil, err
	}
	for _, e := range entries {
		path := filepath.Join(artistDir, e.Name())
		if e.IsDir() {
			albumDirs = append(albumDirs, path)
			continue
		}
		if isAudioExt(filepath.Ext(e.Name())) {
			looseFiles = append(looseFiles, path)
		}
	}
	return looseFiles, albumDirs, nil
}

// cleanJunk removes non-audio, non-safe-image files from dir's top
// level only; files inside album subfolders are never touched here.
func cleanJunk(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if isAudioExt(filepath.Ext(name)) {
			continue
		}
		if _, ok := safeImageNames[toLowerExt(name)]; ok {
			continue
		}
		if _, ok := safeImageExts[toLowerExt(filepath.Ext(name))]; ok {
			continue
		}
		_ = os.Remove(filepath.Join(dir, name))
	}
}

// pruneEmptyDirsRecursive removes empty directories nested under root,
// bottom-up, without removing root itself.
func pruneEmptyDirsRecursive(root string) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		sub := filepath.Join(root, e.Name())
		pruneEmptyDirsRecursive(sub)
		if isEmptyDir(sub) {
			_ = os.Remove(sub)
		}
	}
}

// pruneEmptyDirs removes dir and any now-empty ancestors up to (but not
// including) stopAt.
func pruneEmptyDirs(dir, stopAt string) {
	for {
		if dir == stopAt || dir == "." || dir == string(filepath.Separator) {
			return
		}
		if !isEmptyDir(dir) {
			return
		}
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

func isEmptyDir(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	return len(entries) == 0
}

func chunkStrings(items []string, size int) [][]string {
	if size <= 0 {
		if len(items) == 0 {
			return nil
		}
		size = len(items)
	}
	var chunks [][]string
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[i:end])
	}
	return chunks
}

func chunkGroups(groups map[metadata.Group][]string, size int) []map[metadata.Group][]string {
	var keys []metadata.Group
	for k := range groups {
		keys = append(keys, k)
	}
	if size <= 0 {
		size = len(keys)
	}
	if size == 0 {
		return nil
	}

	var chunks []map[metadata.Group][]string
	for i := 0; i < len(keys); i += size {
		end := i + size
		if end > len(keys) {
			end = len(keys)
		}
		chunk := make(map[metadata.Group][]string, end-i)
		for _, k := range keys[i:end] {
			chunk[k] = groups[k]
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}
