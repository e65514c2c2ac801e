// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package pipeline

import (
	"errors"

	"github.com/oxbow-labs/ingestord/internal/lockfile"
	"github.com/oxbow-labs/ingestord/internal/staging"
)

// ErrLockHeld is returned by Run when another live process already holds
// the pipeline run lock. Callers translate this into exit code 1.
var ErrLockHeld = lockfile.ErrHeld

// ErrStagingFull is returned internally when a move hits ENOSPC on the
// staging tmpfs; Run always recovers from it by draining and retrying
// once, so it should never escape Run itself.
var ErrStagingFull = staging.ErrFull

// isLockHeld reports whether err indicates the run lock is held by a live
// process.
func isLockHeld(err error) bool {
	return errors.Is(err, ErrLockHeld)
}
