// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package probes implements the pipeline's Safety Probes: stateless
// predicates that tell the controller whether an artist folder is still
// being written to by an external downloader, queried against the
// downloaders' HTTP APIs and the filesystem itself.
package probes

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/oxbow-labs/ingestord/internal/config"
)

// retryDelays mirrors the backoff schedule of the daemon this probe layer
// replaces: up to three retries after the first attempt, resty backing off
// from 2s toward an 8s cap, before the probe gives up and the caller
// applies its own busy/idle fallback.
var retryDelays = []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}

// client wraps one resty.Client with the singleflight group that coalesces
// concurrent callers of the same underlying query within a pass, and a rate
// limiter that paces retries so a flapping probe target can't be hammered by
// every artist in a large pass hitting its backoff window at once.
type client struct {
	http    *resty.Client
	group   singleflight.Group
	limiter *rate.Limiter
}

func newClient(cfg config.Probe) *client {
	r := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("X-API-Key", cfg.APIKey).
		SetRetryCount(len(retryDelays)).
		SetRetryWaitTime(retryDelays[0]).
		SetRetryMaxWaitTime(retryDelays[len(retryDelays)-1])
	return &client{
		http:    r,
		limiter: rate.NewLimiter(rate.Every(time.Second), 4),
	}
}

// throttle blocks until the limiter admits one more outbound request,
// bounding how fast this probe can fire against its target regardless of how
// many artists the controller is checking in the current pass.
func (c *client) throttle(ctx context.Context) error {
	return c.limiter.Wait(ctx)
}

// coalesce runs fn at most once per key for the duration of any overlapping
// callers, so a burst of is_artist_busy checks across many artists in one
// pipeline pass issues one HTTP call rather than N.
func (c *client) coalesce(_ context.Context, key string, fn func() (interface{}, error)) (interface{}, error) {
	v, err, _ := c.group.Do(key, fn)
	return v, err
}
