// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package dedup

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/dhowden/tag"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var versionSuffix = regexp.MustCompile(
	`(?i)\s*[-–(]\s*(feat\.?|ft\.?|featuring|remaster(?:ed)?|` +
		`bonus track|live|demo|acoustic|radio edit|single version|` +
		`explicit|clean|album version)\b.*$`,
)

var nonAlphaNum = regexp.MustCompile(`[^a-z0-9]`)

var stripDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeTitle strips diacritics, lowercases, removes common
// version/credit suffixes ("- remastered", "(feat. x)", "(live)", …), and
// drops all remaining non-alphanumeric characters, so the same recording
// tagged slightly differently across releases compares equal.
func NormalizeTitle(s string) string {
	if s == "" {
		return ""
	}
	ascii, _, err := transform.String(stripDiacritics, s)
	if err != nil {
		ascii = s
	}
	lowered := strings.ToLower(ascii)
	trimmed := versionSuffix.ReplaceAllString(lowered, "")
	return nonAlphaNum.ReplaceAllString(trimmed, "")
}

// Title reads the title tag from path, falling back to the filename stem
// when the tag is absent or the file can't be parsed.
func Title(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return stem(path)
	}
	defer f.Close()

	m, tagErr := tag.ReadFrom(f)
	if tagErr != nil {
		return stem(path)
	}
	if title := strings.TrimSpace(m.Title()); title != "" {
		return title
	}
	return stem(path)
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
