// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package probes

import (
	"context"
	"fmt"
	"strings"

	"github.com/oxbow-labs/ingestord/internal/config"
	"github.com/oxbow-labs/ingestord/internal/log"
)

var peerActiveStates = []string{"requested", "initializing", "inprogress", "in-progress", "queued"}
var peerTerminalStates = []string{"completed"}

type peerTransferFile struct {
	State    string `json:"state"`
	Filename string `json:"filename"`
}

type peerTransferDirectory struct {
	Files []peerTransferFile `json:"files"`
}

type peerTransferUser struct {
	Username    string                  `json:"username"`
	Directories []peerTransferDirectory `json:"directories"`
}

// PeerTransferProbe queries the peer-to-peer downloader's transfer list.
type PeerTransferProbe struct {
	client *client
}

// NewPeerTransferProbe builds a probe against the peer-to-peer daemon described
// by cfg.
func NewPeerTransferProbe(cfg config.Probe) *PeerTransferProbe {
	return &PeerTransferProbe{client: newClient(cfg)}
}

// ActiveFiles returns every filename currently reported in a non-terminal
// transfer state. On total request failure it returns an error; callers must
// treat that conservatively as "busy" (§4.1), since racing a download in
// progress risks moving a partial file.
func (p *PeerTransferProbe) ActiveFiles(ctx context.Context) ([]string, error) {
	v, err := p.client.coalesce(ctx, "peer-transfer:active", func() (interface{}, error) {
		if throttleErr := p.client.throttle(ctx); throttleErr != nil {
			return nil, throttleErr
		}

		var users []peerTransferUser
		resp, reqErr := p.client.http.R().
			SetContext(ctx).
			SetResult(&users).
			Get("/api/v0/transfers/downloads")
		if reqErr != nil {
			return nil, reqErr
		}
		if resp.IsError() {
			return nil, &probeHTTPError{probe: "peer-transfer", status: resp.StatusCode()}
		}

		var active []string
		for _, u := range users {
			for _, dir := range u.Directories {
				for _, f := range dir.Files {
					state := strings.ToLower(f.State)
					if containsAny(state, peerTerminalStates) {
						continue
					}
					if containsAny(state, peerActiveStates) && f.Filename != "" {
						active = append(active, f.Filename)
					}
				}
			}
		}
		return active, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// IsArtistBusy reports whether folderName matches any currently active
// transfer's token set. On probe failure it fails closed (busy=true).
func (p *PeerTransferProbe) IsArtistBusy(ctx context.Context, folderName string) bool {
	active, err := p.ActiveFiles(ctx)
	if err != nil {
		log.L().Warn().Err(err).Str("artist", folderName).Msg("peer transfer probe unreachable, assuming busy")
		return true
	}
	if len(active) == 0 {
		return false
	}

	folderTokens := Tokenize(folderName)
	for _, path := range active {
		if TokensMatch(Tokenize(path), folderTokens) {
			return true
		}
	}
	return false
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

type probeHTTPError struct {
	probe  string
	status int
}

func (e *probeHTTPError) Error() string {
	return fmt.Sprintf("probes: %s returned HTTP %d", e.probe, e.status)
}
