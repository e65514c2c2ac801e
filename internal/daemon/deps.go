// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Deps contains the dependencies required by the daemon Manager. The
// composition root (cmd/daemon) builds one of these and hands it to
// NewManager; Manager owns nothing the composition root didn't inject.
type Deps struct {
	// Logger is the base structured logger for the daemon.
	Logger zerolog.Logger

	// HealthHandler serves /healthz and /metrics (internal/healthsrv.NewMux).
	HealthHandler http.Handler

	// HealthAddr is the address the health/metrics server listens on.
	HealthAddr string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Validate checks that Deps carries what Manager needs to start.
func (d *Deps) Validate() error {
	if d.Logger.GetLevel() == zerolog.Disabled {
		return ErrMissingLogger
	}
	if d.HealthHandler == nil {
		return ErrMissingHealthHandler
	}
	return nil
}
