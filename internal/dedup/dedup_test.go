// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package dedup

import (
	"context"
	"testing"
)

func TestDedupSingleFileIsAlwaysKept(t *testing.T) {
	d := New(Options{})
	keepers, rejected := d.Dedup(context.Background(), []string{"solo.flac"})
	if len(keepers) != 1 || len(rejected) != 0 {
		t.Fatalf("Dedup() on a single file = keepers %v rejected %v, want the file kept untouched", keepers, rejected)
	}
}

func TestDedupEmptyInput(t *testing.T) {
	d := New(Options{})
	keepers, rejected := d.Dedup(context.Background(), nil)
	if len(keepers) != 0 || len(rejected) != 0 {
		t.Fatalf("Dedup() on empty input = keepers %v rejected %v, want both empty", keepers, rejected)
	}
}

func TestDedupTier1CatchesTaggedDuplicateWithoutFingerprinting(t *testing.T) {
	dir := t.TempDir()
	a := writeNamedFile(t, dir, "Yesterday.flac")
	b := writeNamedFile(t, dir, "Yesterday.mp3")

	d := New(Options{
		FpcalcPath:       "/definitely/not/installed/fpcalc",
		FfprobePath:      "/definitely/not/installed/ffprobe",
		SimilarityThresh: 0.85,
	})
	keepers, rejected := d.Dedup(context.Background(), []string{a, b})

	if len(keepers) != 1 || keepers[0] != a {
		t.Fatalf("Dedup() keepers = %v, want only the flac kept", keepers)
	}
	if len(rejected) != 1 || rejected[0].Rejected != b {
		t.Fatalf("Dedup() rejected = %+v, want the mp3 rejected", rejected)
	}
}

func TestDedupDistinctTitlesBothSurviveWithoutFpcalc(t *testing.T) {
	dir := t.TempDir()
	a := writeNamedFile(t, dir, "Yesterday.flac")
	b := writeNamedFile(t, dir, "Let It Be.flac")

	d := New(Options{
		FpcalcPath:       "/definitely/not/installed/fpcalc",
		SimilarityThresh: 0.85,
	})
	keepers, _ := d.Dedup(context.Background(), []string{a, b})
	if len(keepers) != 2 {
		t.Fatalf("Dedup() keepers = %v, want both distinct titles kept (fpcalc failures never reject)", keepers)
	}
}
