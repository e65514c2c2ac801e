// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package watcher observes the inbox root for external-downloader activity
// and debounces it into a single trigger, rather than invoking the
// pipeline on every individual file event a large download burst
// generates (SPEC_FULL.md §1, §5).
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// debounce is how long the watcher waits for inbox activity to go quiet
// before firing its trigger, so one artist folder's worth of file-create
// events collapses into a single pipeline run request.
const debounce = 10 * time.Second

// Trigger is called once per debounce window of inbox activity.
type Trigger func()

// Watcher wraps one fsnotify.Watcher rooted at an inbox directory.
type Watcher struct {
	root    string
	trigger Trigger
	logger  zerolog.Logger
}

// New returns a Watcher that calls trigger after each debounce window of
// quiet following inbox activity under root.
func New(root string, trigger Trigger, logger zerolog.Logger) *Watcher {
	return &Watcher{
		root:    root,
		trigger: trigger,
		logger:  logger.With().Str("component", "watcher").Logger(),
	}
}

// Run watches root until ctx is cancelled. It recurses one level into
// existing artist folders at startup (fsnotify is not recursive) and adds
// newly created top-level directories as they appear.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := fw.Add(w.root); err != nil {
		return err
	}
	if entries, err := os.ReadDir(w.root); err == nil {
		for _, e := range entries {
			if e.IsDir() {
				_ = fw.Add(filepath.Join(w.root, e.Name()))
			}
		}
	}

	var debounceTimer *time.Timer
	var debounceCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return ctx.Err()

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.logger.Debug().Str("path", event.Name).Str("op", event.Op.String()).Msg("inbox activity")

			if event.Op&fsnotify.Create == fsnotify.Create {
				// Best-effort: watch newly created top-level directories too,
				// so activity inside a fresh artist folder is also observed.
				_ = fw.Add(event.Name)
			}

			if debounceTimer == nil {
				debounceTimer = time.NewTimer(debounce)
			} else {
				if !debounceTimer.Stop() {
					select {
					case <-debounceTimer.C:
					default:
					}
				}
				debounceTimer.Reset(debounce)
			}
			debounceCh = debounceTimer.C

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("watcher error")

		case <-debounceCh:
			debounceCh = nil
			w.logger.Info().Msg("inbox activity settled, triggering pipeline run")
			w.trigger()
		}
	}
}
