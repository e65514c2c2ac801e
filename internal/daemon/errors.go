// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import "errors"

var (
	// ErrMissingLogger is returned when a Deps is built without a logger.
	ErrMissingLogger = errors.New("logger is required")

	// ErrMissingHealthHandler is returned when a Deps is built without a
	// health/metrics HTTP handler.
	ErrMissingHealthHandler = errors.New("health handler is required")

	// ErrMissingManager is returned when a daemon App is created without a manager.
	ErrMissingManager = errors.New("manager is required")

	// ErrMissingPipelineScheduler is returned when a daemon App is created
	// without the pipeline's own scheduler; it is the one actor SIGHUP wakes.
	ErrMissingPipelineScheduler = errors.New("pipeline scheduler is required")

	// ErrManagerNotStarted is returned when trying to shut down a manager
	// that hasn't started.
	ErrManagerNotStarted = errors.New("manager not started")
)
