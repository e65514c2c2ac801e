// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package catalog wraps the external cataloguer binary (a beets-like CLI)
// that owns the actual library import: tagging, renaming into the library
// tree, and duplicate-aware merges. The pipeline controller never touches
// the library layout itself — it only invokes this subprocess and
// interprets its exit code (SPEC_FULL.md §4.7, §9).
package catalog

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/rs/zerolog"

	"github.com/oxbow-labs/ingestord/internal/resilience"
)

// importTimeout bounds each single cataloguer invocation (import, update or
// move).
const importTimeout = 5 * time.Minute

// Result captures one subprocess invocation's outcome.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Cataloguer invokes the external cataloguer binary, guarded by a circuit
// breaker so a binary that is crashing on every call stops being retried
// against every remaining artist in the pass.
type Cataloguer struct {
	bin     string
	logger  zerolog.Logger
	breaker *resilience.CircuitBreaker
}

// New returns a Cataloguer invoking bin (e.g. "beet"), with its own circuit
// breaker instance.
func New(bin string, logger zerolog.Logger) *Cataloguer {
	return &Cataloguer{
		bin:     bin,
		logger:  logger.With().Str("component", "catalog").Logger(),
		breaker: resilience.NewCircuitBreaker("cataloguer", 3, 30*time.Second),
	}
}

// Import runs `<bin> import -q <albumFolder>`, importing the given staged
// folder into the library (the pipeline's drain passes the whole staging
// root).
func (c *Cataloguer) Import(ctx context.Context, albumFolder string) (Result, error) {
	return c.run(ctx, "import", "-q", albumFolder)
}

// Update runs `<bin> update -q`, refreshing already-imported metadata
// (re-fetching from MusicBrainz/Discogs per the configured schedule).
func (c *Cataloguer) Update(ctx context.Context) (Result, error) {
	return c.run(ctx, "update", "-q")
}

// MoveRecent runs `<bin> move -q added:<since>..` to relocate items
// imported since the given date into their final library layout, used after
// every staging drain and by the periodic regen job.
func (c *Cataloguer) MoveRecent(ctx context.Context, since time.Time) (Result, error) {
	query := fmt.Sprintf("added:%s..", since.Format("2006-01-02"))
	return c.run(ctx, "move", "-q", query)
}

func (c *Cataloguer) run(ctx context.Context, args ...string) (Result, error) {
	var res Result

	err := c.breaker.Execute(func() error {
		runCtx, cancel := context.WithTimeout(ctx, importTimeout)
		defer cancel()

		cmd := exec.CommandContext(runCtx, c.bin, args...)
		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		runErr := cmd.Run()
		res = Result{Stdout: stdout.String(), Stderr: stderr.String()}
		if cmd.ProcessState != nil {
			res.ExitCode = cmd.ProcessState.ExitCode()
		}

		if runErr != nil {
			c.logger.Error().
				Strs("args", args).
				Int("exit_code", res.ExitCode).
				Str("stderr", truncate(res.Stderr, 2000)).
				Err(runErr).
				Msg("cataloguer invocation failed")
			return fmt.Errorf("catalog: %s %v: %w", c.bin, args, runErr)
		}

		c.logger.Debug().Strs("args", args).Msg("cataloguer invocation succeeded")
		return nil
	})

	return res, err
}

// State returns the cataloguer circuit breaker's current state, for health
// reporting.
func (c *Cataloguer) State() string {
	return c.breaker.State()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "...(truncated)"
}
