// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package mediaservers fires the best-effort downstream refresh pokes that
// follow a successful import: an HTTP GET/POST against each configured
// media server's library-rescan endpoint, and a permission fix-up
// (chmod-only, no chown per the redesigned ownership model) over the whole
// library tree (SPEC_FULL.md §4.8).
package mediaservers

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/oxbow-labs/ingestord/internal/config"
)

// pokeTimeout bounds one target's refresh request; a slow or unreachable
// media server must never stall the pass waiting on it.
const pokeTimeout = 10 * time.Second

// dirMode/fileMode are applied to everything moved into the library so a
// media server running as a different user can always read it.
const (
	dirMode  = 0o755
	fileMode = 0o644
)

// Notifier pokes every configured media server after a successful import.
type Notifier struct {
	targets []config.MediaServerTarget
	http    *resty.Client
	logger  zerolog.Logger
}

// New returns a Notifier for the given targets.
func New(targets []config.MediaServerTarget, logger zerolog.Logger) *Notifier {
	return &Notifier{
		targets: targets,
		http:    resty.New().SetTimeout(pokeTimeout),
		logger:  logger.With().Str("component", "mediaservers").Logger(),
	}
}

// NotifyAll fires every target concurrently and waits for all of them; a
// single unreachable target is logged and otherwise ignored, since a stale
// library view on one media server must never block the pipeline.
func (n *Notifier) NotifyAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, target := range n.targets {
		wg.Add(1)
		go func(t config.MediaServerTarget) {
			defer wg.Done()
			n.notify(ctx, t)
		}(target)
	}
	wg.Wait()
}

func (n *Notifier) notify(ctx context.Context, target config.MediaServerTarget) {
	reqCtx, cancel := context.WithTimeout(ctx, pokeTimeout)
	defer cancel()

	req := n.http.R().SetContext(reqCtx)

	method := target.Method
	if method == "" {
		method = "GET"
	}

	resp, err := req.Execute(method, target.URL)
	logEvent := n.logger.Info()
	if err != nil || resp.IsError() {
		logEvent = n.logger.Warn()
	}
	logEvent.
		Str("target", target.Name).
		Str("method", method).
		Err(err).
		Msg("media server refresh poke")
}

// FixPermissions walks root recursively, chmod'ing directories to dirMode
// and regular files to fileMode. It never changes ownership: the redesigned
// model leaves uid/gid to whatever the cataloguer process already set,
// since a chown here would require privileges this daemon doesn't need
// otherwise.
func FixPermissions(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return os.Chmod(path, dirMode)
		}
		return os.Chmod(path, fileMode)
	})
}
