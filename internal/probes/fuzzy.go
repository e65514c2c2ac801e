// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package probes

import (
	"regexp"
	"strings"
)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "with": {}, "from": {}, "this": {}, "that": {},
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

var allDigits = regexp.MustCompile(`^[0-9]+$`)

// Tokenize lowercases text, replaces runs of non-alphanumeric characters with
// spaces, and drops purely-numeric tokens (track numbers, years) and the
// stopword set. Numeric tokens are excluded because they caused false-positive
// busy matches between unrelated transfers that happened to share a track
// number or release year.
func Tokenize(text string) []string {
	lowered := strings.ToLower(text)
	normalized := nonAlnum.ReplaceAllString(lowered, " ")

	var tokens []string
	for _, t := range strings.Fields(normalized) {
		if allDigits.MatchString(t) {
			continue
		}
		if _, stop := stopwords[t]; stop {
			continue
		}
		tokens = append(tokens, t)
	}
	return tokens
}

// TokensMatch reports whether a and b share at least one token.
func TokensMatch(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, t := range a {
		set[t] = struct{}{}
	}
	for _, t := range b {
		if _, ok := set[t]; ok {
			return true
		}
	}
	return false
}
