// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey string

const (
	runIDKey  ctxKey = "run_id"
	artistKey ctxKey = "artist"
	chunkKey  ctxKey = "chunk"
)

// ContextWithRunID stores the current pipeline pass's run ID in the context.
func ContextWithRunID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, runIDKey, id)
}

// ContextWithArtist stores the artist folder name currently being processed.
func ContextWithArtist(ctx context.Context, artist string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, artistKey, artist)
}

// ContextWithChunk stores the current chunk index being processed.
func ContextWithChunk(ctx context.Context, chunk int) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, chunkKey, chunk)
}

// RunIDFromContext extracts the run ID from context if present.
func RunIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(runIDKey).(string); ok {
		return v
	}
	return ""
}

// ArtistFromContext extracts the artist name from context if present.
func ArtistFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(artistKey).(string); ok {
		return v
	}
	return ""
}

// WithContext enriches the supplied logger with correlation fields from context.
func WithContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	if ctx == nil {
		return logger
	}
	builder := logger.With()
	added := false
	if rid := RunIDFromContext(ctx); rid != "" {
		builder = builder.Str(FieldRunID, rid)
		added = true
	}
	if artist := ArtistFromContext(ctx); artist != "" {
		builder = builder.Str(FieldArtist, artist)
		added = true
	}
	if chunk, ok := ctx.Value(chunkKey).(int); ok {
		builder = builder.Int(FieldChunk, chunk)
		added = true
	}
	if !added {
		return logger
	}
	return builder.Logger()
}

// FromContext returns a logger enriched from ctx, or the base logger if ctx carries nothing.
func FromContext(ctx context.Context) zerolog.Logger {
	return WithContext(ctx, logger())
}
