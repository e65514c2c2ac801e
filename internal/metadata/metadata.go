// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metadata extracts the album-artist/album grouping key the
// Pipeline Controller uses to decide which staging folder a file belongs
// in, preferring tag data and falling back to directory structure when tags
// are missing or the file is unreadable.
package metadata

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
)

// forbiddenPathComponents never qualify as a directory-fallback albumartist
// or album: they're pipeline root directory names, and a loose file sitting
// directly under one of them would otherwise be (mis)grouped under that
// root's own name.
var forbiddenPathComponents = map[string]struct{}{
	"inbox": {}, "pre-library": {}, "music": {}, "library": {}, "data": {}, "app": {}, "": {},
}

// Group is the (albumartist, album) key files are grouped by before a
// staging move.
type Group struct {
	AlbumArtist string
	Album       string
}

// LoadBasicTags returns the albumartist/album grouping key for path. Tag
// values are preferred; a missing or unreadable tag falls back to directory
// names so that bad files still group with their siblings rather than all
// landing under the same Unknown/Unknown Album bucket.
func LoadBasicTags(path string) Group {
	f, err := os.Open(path)
	if err != nil {
		return pathFallback(path)
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return pathFallback(path)
	}

	albumArtist := strings.TrimSpace(m.AlbumArtist())
	if albumArtist == "" {
		albumArtist = strings.TrimSpace(m.Artist())
	}
	album := strings.TrimSpace(m.Album())

	if albumArtist == "" {
		albumArtist = albumArtistPathFallback(path)
	}
	if album == "" {
		album = filepath.Base(filepath.Dir(path))
	}

	return Group{AlbumArtist: albumArtist, Album: album}
}

// pathFallback is used when the file can't be opened or its tags can't be
// parsed at all.
func pathFallback(path string) Group {
	return Group{
		AlbumArtist: albumArtistPathFallback(path),
		Album:       filepath.Base(filepath.Dir(path)),
	}
}

// albumArtistPathFallback mirrors the grandparent-directory heuristic: for
// path/Artist/Album/track.flac, the grandparent is "Artist". But for a loose
// file directly under the inbox root (path/Artist/track.flac), the
// grandparent is the inbox root itself, which must not become the
// albumartist — the immediate parent (the artist folder) is used instead.
func albumArtistPathFallback(path string) string {
	parent := filepath.Dir(path)
	grandparent := filepath.Base(filepath.Dir(parent))

	if _, forbidden := forbiddenPathComponents[strings.ToLower(grandparent)]; forbidden {
		return filepath.Base(parent)
	}
	return grandparent
}

// GroupFilesByAlbum partitions files into groups keyed by their
// albumartist/album tag pair.
func GroupFilesByAlbum(files []string) map[Group][]string {
	groups := make(map[Group][]string)
	for _, f := range files {
		key := LoadBasicTags(f)
		groups[key] = append(groups[key], f)
	}
	return groups
}
