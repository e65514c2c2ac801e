// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package dedup

import (
	"bufio"
	"context"
	"fmt"
	"math/bits"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const fpcalcTimeout = 30 * time.Second

// Fingerprinter runs the external chromaprint tool to compute raw audio
// fingerprints, used by tier 2 to catch duplicates tier 1's tag comparison
// missed (bad or missing tags).
type Fingerprinter struct {
	binPath string
	window  int // number of leading fingerprint words compared
}

// NewFingerprinter returns a Fingerprinter invoking binPath (e.g. "fpcalc"),
// comparing the first window 32-bit words of each pair (default 120, ≈30s
// of audio).
func NewFingerprinter(binPath string, window int) *Fingerprinter {
	if window <= 0 {
		window = 120
	}
	return &Fingerprinter{binPath: binPath, window: window}
}

// Fingerprint runs fpcalc -raw against path and returns the raw comma
// separated integer fingerprint. Returns an error if the tool fails, times
// out, or produces no FINGERPRINT= line.
func (fp *Fingerprinter) Fingerprint(path string) ([]int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), fpcalcTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, fp.binPath, "-raw", path)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("dedup: fpcalc failed for %s: %w", path, err)
	}

	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "FINGERPRINT=") {
			continue
		}
		raw := strings.TrimPrefix(line, "FINGERPRINT=")
		return parseFingerprint(raw)
	}
	return nil, fmt.Errorf("dedup: no fingerprint in fpcalc output for %s", path)
}

func parseFingerprint(raw string) ([]int64, error) {
	parts := strings.Split(raw, ",")
	vals := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("dedup: invalid fingerprint value %q: %w", p, err)
		}
		vals = append(vals, v)
	}
	return vals, nil
}

// Similarity computes the bit-level Hamming similarity between two raw
// chromaprint fingerprints, comparing at most window words from each:
// 1 - popcount(a^b) / (32*N). Returns 0.0 if either fingerprint is empty.
func (fp *Fingerprinter) Similarity(a, b []int64) float64 {
	length := min(len(a), len(b))
	length = min(length, fp.window)
	if length == 0 {
		return 0.0
	}

	var matchingBits int
	for i := 0; i < length; i++ {
		xor := uint32(a[i]) ^ uint32(b[i])
		matchingBits += 32 - bits.OnesCount32(xor)
	}
	return float64(matchingBits) / float64(length*32)
}

// tier2 fingerprints every file and clusters pairs whose similarity meets
// threshold, keeping the highest quality file in each cluster. confirm, if
// non-nil, is given a cluster of >1 candidate paths and may shrink it to a
// single element (tier 3); that element is then kept and the cluster's other
// candidates are rejected in its favour.
func tier2(files []string, fp *Fingerprinter, threshold float64, confirm func([]string, map[string][]int64) []string, ffprobeBin string) (keepers []string, rejected []Rejection) {
	if len(files) <= 1 {
		return files, nil
	}

	fingerprints := make(map[string][]int64)
	for _, f := range files {
		if vals, err := fp.Fingerprint(f); err == nil {
			fingerprints[f] = vals
		}
	}
	if len(fingerprints) == 0 {
		return files, nil
	}

	fpFiles := make([]string, 0, len(fingerprints))
	for _, f := range files {
		if _, ok := fingerprints[f]; ok {
			fpFiles = append(fpFiles, f)
		}
	}

	processed := make(map[string]bool)

	for i, f1 := range fpFiles {
		if processed[f1] {
			continue
		}
		cluster := []string{f1}
		for _, f2 := range fpFiles[i+1:] {
			if processed[f2] {
				continue
			}
			if fp.Similarity(fingerprints[f1], fingerprints[f2]) >= threshold {
				cluster = append(cluster, f2)
				processed[f2] = true
			}
		}
		processed[f1] = true

		if len(cluster) == 1 {
			keepers = append(keepers, f1)
			continue
		}

		candidates := cluster
		if confirm != nil {
			cluster = confirm(cluster, fingerprints)
		}
		if len(cluster) == 1 {
			keepers = append(keepers, cluster[0])
			for _, other := range candidates[1:] {
				rejected = append(rejected, Rejection{Rejected: other, Kept: cluster[0],
					Reason: "fp-dedup: recording IDs differ, kept first candidate"})
			}
			continue
		}

		winner := highestQuality(cluster, ffprobeBin)
		keepers = append(keepers, winner)
		for _, loser := range cluster {
			if loser == winner {
				continue
			}
			sim := fp.Similarity(fingerprints[winner], fingerprints[loser])
			rejected = append(rejected, Rejection{
				Rejected: loser,
				Kept:     winner,
				Reason: fmt.Sprintf("fp-dedup: similarity=%.3f kept %s over %s",
					sim, QualityLabel(winner), QualityLabel(loser)),
			})
		}
	}

	for _, f := range files {
		if _, hasFp := fingerprints[f]; !hasFp {
			keepers = append(keepers, f)
		}
	}

	return keepers, rejected
}
