// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package daemon supervises the long-lived actors of a running process:
// the health/metrics server, the pipeline scheduler, any ancillary
// schedulers, and the inbox watcher. Config loading and logger setup are
// the composition root's job (cmd/daemon), not this package's.
package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// WaitForShutdown returns a context cancelled on SIGINT or SIGTERM.
func WaitForShutdown() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return ctx
}
