// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package dedup implements the pipeline's three-tier pre-import
// deduplicator: tag-based title grouping, chromaprint fingerprint
// similarity, and an optional MusicBrainz recording-ID confirmation for
// borderline fingerprint matches. It operates on one staged album group at
// a time; the caller (the pipeline controller) is responsible for walking
// the staging tree and moving Rejections to quarantine.
package dedup

import "context"

// Options configures a Deduplicator's thresholds and external tool paths.
type Options struct {
	FpcalcPath         string
	FfprobePath        string
	FingerprintWindow  int
	SimilarityThresh   float64
	UseMusicBrainz     bool
	AcoustIDAPIKey     string
	RecordingIDMinConf float64
}

// Deduplicator runs the three-tier pass over one album's files.
type Deduplicator struct {
	fp         *Fingerprinter
	threshold  float64
	confirmer  *RecordingConfirmer
	ffprobeBin string
}

// New builds a Deduplicator from opts.
func New(opts Options) *Deduplicator {
	d := &Deduplicator{
		fp:         NewFingerprinter(opts.FpcalcPath, opts.FingerprintWindow),
		threshold:  opts.SimilarityThresh,
		ffprobeBin: opts.FfprobePath,
	}
	if opts.UseMusicBrainz {
		d.confirmer = NewRecordingConfirmer(opts.AcoustIDAPIKey, opts.RecordingIDMinConf)
	}
	return d
}

// Dedup runs tier 1 then, on its survivors, tier 2 (optionally refined by
// tier 3) over files, which must all belong to the same staged album.
// Returns the files to keep and the losers with their rejection reasons.
func (d *Deduplicator) Dedup(ctx context.Context, files []string) (keepers []string, rejected []Rejection) {
	if len(files) <= 1 {
		return files, nil
	}

	survivors, t1Rejected := tier1(files, d.ffprobeBin)
	rejected = append(rejected, t1Rejected...)

	if len(survivors) <= 1 {
		return survivors, rejected
	}

	var confirm func([]string, map[string][]int64) []string
	if d.confirmer != nil {
		confirm = func(cluster []string, fingerprints map[string][]int64) []string {
			return d.confirmer.Confirm(ctx, cluster, fingerprints)
		}
	}

	finalSurvivors, t2Rejected := tier2(survivors, d.fp, d.threshold, confirm, d.ffprobeBin)
	rejected = append(rejected, t2Rejected...)

	return finalSurvivors, rejected
}
