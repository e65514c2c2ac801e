// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package healthsrv exposes the daemon's operational HTTP surface: a
// liveness check and the Prometheus exposition endpoint. It is
// deliberately minimal — this is not the excluded UI/API surface, just
// `GET /healthz` and `GET /metrics` bound to a loopback address
// (SPEC_FULL.md §6.1).
package healthsrv

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Status is the coarse health verdict a Checker returns.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult is one checker's verdict.
type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Response is the body of GET /healthz.
type Response struct {
	Status    Status                 `json:"status"`
	Version   string                 `json:"version,omitempty"`
	Uptime    int64                  `json:"uptime"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// Checker is one liveness dimension the daemon reports on: the run-lock
// subsystem, staging tmpfs reachability, and so on.
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// Manager aggregates registered Checkers into one liveness response.
type Manager struct {
	version   string
	startTime time.Time

	mu       sync.RWMutex
	checkers []Checker
}

// NewManager returns a Manager stamped with version, used to report uptime
// relative to process start.
func NewManager(version string) *Manager {
	return &Manager{version: version, startTime: time.Now()}
}

// RegisterChecker adds a checker to the set consulted on each /healthz
// request.
func (m *Manager) RegisterChecker(c Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers = append(m.checkers, c)
}

// Health runs every registered checker and aggregates the worst status.
func (m *Manager) Health(ctx context.Context) Response {
	m.mu.RLock()
	checkers := append([]Checker(nil), m.checkers...)
	m.mu.RUnlock()

	resp := Response{
		Status:    StatusHealthy,
		Version:   m.version,
		Uptime:    int64(time.Since(m.startTime).Seconds()),
		Timestamp: time.Now(),
		Checks:    make(map[string]CheckResult, len(checkers)),
	}

	for _, c := range checkers {
		res := c.Check(ctx)
		resp.Checks[c.Name()] = res
		switch res.Status {
		case StatusUnhealthy:
			resp.Status = StatusUnhealthy
		case StatusDegraded:
			if resp.Status != StatusUnhealthy {
				resp.Status = StatusDegraded
			}
		}
	}

	return resp
}

// ServeHealthz is the GET /healthz handler. It always answers 200 — this
// is a liveness check, not a readiness gate — with the aggregated status
// in the body for an operator or scrape target to inspect.
func (m *Manager) ServeHealthz(logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := m.Health(r.Context())

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Error().Err(err).Msg("failed to encode health response")
		}
	}
}

// NewMux returns the daemon's ambient HTTP surface: exactly GET /healthz
// and GET /metrics.
func NewMux(m *Manager, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", m.ServeHealthz(logger))
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	return r
}
