// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package dedup

import (
	"os"
	"path/filepath"
	"testing"
)

func writeNamedFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("not real audio data"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTier1KeepsHighestQualityDuplicate(t *testing.T) {
	dir := t.TempDir()
	flac := writeNamedFile(t, dir, "Yesterday.flac")
	mp3 := writeNamedFile(t, dir, "Yesterday.mp3")

	keepers, rejected := tier1([]string{flac, mp3}, "/nonexistent/ffprobe")

	if len(keepers) != 1 || keepers[0] != flac {
		t.Fatalf("tier1() keepers = %v, want [%s]", keepers, flac)
	}
	if len(rejected) != 1 || rejected[0].Rejected != mp3 || rejected[0].Kept != flac {
		t.Fatalf("tier1() rejected = %+v, want mp3 rejected in favor of flac", rejected)
	}
}

func TestTier1DistinctTitlesBothKept(t *testing.T) {
	dir := t.TempDir()
	a := writeNamedFile(t, dir, "Yesterday.flac")
	b := writeNamedFile(t, dir, "Let It Be.flac")

	keepers, rejected := tier1([]string{a, b}, "/nonexistent/ffprobe")

	if len(keepers) != 2 {
		t.Fatalf("tier1() keepers = %v, want both files kept", keepers)
	}
	if len(rejected) != 0 {
		t.Fatalf("tier1() rejected = %+v, want none", rejected)
	}
}

func TestTier1NormalizesVersionSuffixesAsDuplicates(t *testing.T) {
	dir := t.TempDir()
	orig := writeNamedFile(t, dir, "Hey Jude.flac")
	live := writeNamedFile(t, dir, "Hey Jude (Live).mp3")

	keepers, rejected := tier1([]string{orig, live}, "/nonexistent/ffprobe")

	if len(keepers) != 1 {
		t.Fatalf("tier1() keepers = %v, want one survivor (same normalized title)", keepers)
	}
	if len(rejected) != 1 {
		t.Fatalf("tier1() rejected = %+v, want one rejection", rejected)
	}
}
