// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package dedup

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/oxbow-labs/ingestord/internal/log"
)

// acoustIDRecording is one scored recording match from an AcoustID lookup.
type acoustIDRecording struct {
	Score      float64 `json:"score"`
	Recordings []struct {
		ID string `json:"id"`
	} `json:"recordings"`
}

type acoustIDResponse struct {
	Status  string              `json:"status"`
	Results []acoustIDRecording `json:"results"`
}

// RecordingConfirmer queries AcoustID for a fingerprint's MusicBrainz
// recording ID, used to resolve borderline tier-2 fingerprint matches: if
// every candidate in a cluster resolves to the same recording ID, the match
// is confirmed; if they resolve to different recordings, it was a false
// positive and only the first candidate is kept (tier2 rejects the rest).
type RecordingConfirmer struct {
	client   *resty.Client
	apiKey   string
	minScore float64
}

// NewRecordingConfirmer builds a confirmer against the public AcoustID
// lookup API.
func NewRecordingConfirmer(apiKey string, minScore float64) *RecordingConfirmer {
	return &RecordingConfirmer{
		client:   resty.New().SetBaseURL("https://api.acoustid.org/v2").SetTimeout(10 * time.Second),
		apiKey:   apiKey,
		minScore: minScore,
	}
}

// recordingID looks up the best-scoring MusicBrainz recording ID for a raw
// chromaprint fingerprint, encoded as the compact base64 form AcoustID
// expects. Returns "" if no match clears minScore.
func (c *RecordingConfirmer) recordingID(ctx context.Context, fingerprint, durationSeconds string) (string, error) {
	var resp acoustIDResponse
	_, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"client":      c.apiKey,
			"meta":        "recordings",
			"fingerprint": fingerprint,
			"duration":    durationSeconds,
		}).
		SetResult(&resp).
		Get("/lookup")
	if err != nil {
		return "", err
	}

	var best string
	var bestScore float64
	for _, r := range resp.Results {
		if r.Score <= bestScore || r.Score < c.minScore || len(r.Recordings) == 0 {
			continue
		}
		best = r.Recordings[0].ID
		bestScore = r.Score
	}
	return best, nil
}

// Confirm narrows candidates (paths sharing a tier-2 fingerprint cluster) to
// its first element if AcoustID resolves them to different MusicBrainz
// recordings (false positive: tier2 keeps that first candidate and rejects
// the others). Candidates that all resolve to the same recording, or that
// can't be resolved at all, are returned unchanged so the fingerprint
// similarity verdict stands.
func (c *RecordingConfirmer) Confirm(ctx context.Context, candidates []string, fingerprints map[string][]int64) []string {
	seen := make(map[string]struct{})
	resolvedAny := false

	for _, path := range candidates {
		vals, ok := fingerprints[path]
		if !ok {
			continue
		}
		id, err := c.recordingID(ctx, encodeFingerprint(vals), "0")
		if err != nil || id == "" {
			log.L().Debug().Err(err).Str("path", path).Msg("acoustid lookup inconclusive")
			continue
		}
		resolvedAny = true
		seen[id] = struct{}{}
	}

	if !resolvedAny || len(seen) <= 1 {
		return candidates
	}
	// Different recordings resolved: false positive, keep only the first;
	// tier2 rejects the rest.
	return candidates[:1]
}

func encodeFingerprint(vals []int64) string {
	var sb strings.Builder
	for _, v := range vals {
		sb.WriteString(strconv.FormatInt(v, 10))
		sb.WriteByte(',')
	}
	return sb.String()
}
