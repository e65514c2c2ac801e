// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package probes

import (
	"context"
	"strings"

	"github.com/oxbow-labs/ingestord/internal/config"
	"github.com/oxbow-labs/ingestord/internal/log"
)

var newsgroupActiveStatuses = map[string]struct{}{
	"Downloading": {}, "Verifying": {}, "Repairing": {}, "Extracting": {}, "Moving": {}, "Running": {},
}

type newsgroupSlot struct {
	Status   string `json:"status"`
	Storage  string `json:"storage"`
	Filename string `json:"filename"`
}

type newsgroupQueue struct {
	Slots []newsgroupSlot `json:"slots"`
}

type newsgroupResponse struct {
	Queue newsgroupQueue `json:"queue"`
}

// NewsgroupProbe queries the newsgroup downloader's job queue.
type NewsgroupProbe struct {
	client *client
	apiKey string
}

// NewNewsgroupProbe builds a probe against the newsgroup daemon described by cfg.
func NewNewsgroupProbe(cfg config.Probe) *NewsgroupProbe {
	return &NewsgroupProbe{client: newClient(cfg), apiKey: cfg.APIKey}
}

// IsArtistBusy reports whether folderName is a case-insensitive component of
// any active job's storage path or filename. Paused, Failed, and Completed
// jobs never block. On probe failure it fails open (busy=false): the
// newsgroup queue's errors are noisier than the transfer list's and a false
// "idle" here is caught downstream by the settle timer (§4.1, §7).
func (p *NewsgroupProbe) IsArtistBusy(ctx context.Context, folderName string) bool {
	v, err := p.client.coalesce(ctx, "newsgroup:queue", func() (interface{}, error) {
		if throttleErr := p.client.throttle(ctx); throttleErr != nil {
			return nil, throttleErr
		}

		var resp newsgroupResponse
		r, reqErr := p.client.http.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"mode":   "queue",
				"output": "json",
				"apikey": p.apiKey,
			}).
			SetResult(&resp).
			Get("/api")
		if reqErr != nil {
			return nil, reqErr
		}
		if r.IsError() {
			return nil, &probeHTTPError{probe: "newsgroup", status: r.StatusCode()}
		}
		return resp.Queue.Slots, nil
	})
	if err != nil {
		log.L().Warn().Err(err).Str("artist", folderName).Msg("newsgroup probe unreachable, assuming idle")
		return false
	}

	slots := v.([]newsgroupSlot)
	artistLower := strings.ToLower(folderName)

	for _, job := range slots {
		if _, active := newsgroupActiveStatuses[job.Status]; !active {
			continue
		}
		if job.Storage != "" && pathComponentMatches(job.Storage, artistLower) {
			return true
		}
		if strings.Contains(strings.ToLower(job.Filename), artistLower) {
			return true
		}
	}
	return false
}

func pathComponentMatches(storagePath, artistLower string) bool {
	for _, part := range strings.FieldsFunc(storagePath, func(r rune) bool { return r == '/' || r == '\\' }) {
		if strings.ToLower(part) == artistLower {
			return true
		}
	}
	return false
}
