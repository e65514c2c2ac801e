// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestContextWithRunID(t *testing.T) {
	tests := []struct {
		name  string
		ctx   context.Context
		runID string
		want  string
	}{
		{name: "nil context", ctx: nil, runID: "run-123", want: "run-123"},
		{name: "background context", ctx: context.Background(), runID: "run-456", want: "run-456"},
		{name: "empty run ID", ctx: context.Background(), runID: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := ContextWithRunID(tt.ctx, tt.runID)
			if got := RunIDFromContext(ctx); got != tt.want {
				t.Errorf("RunIDFromContext() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestArtistFromContextEmpty(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		want string
	}{
		{name: "nil context", ctx: nil, want: ""},
		{name: "context without artist", ctx: context.Background(), want: ""},
		{name: "context with wrong type", ctx: context.WithValue(context.Background(), artistKey, 123), want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ArtistFromContext(tt.ctx); got != tt.want {
				t.Errorf("ArtistFromContext() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWithContext_EnrichesFields(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Output: &buf})

	ctx := ContextWithRunID(context.Background(), "run-1")
	ctx = ContextWithArtist(ctx, "Foo Fighters")
	ctx = ContextWithChunk(ctx, 2)

	logger := WithContext(ctx, WithComponent("pipeline"))
	logger.Info().Msg("processing")

	var decoded map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded[FieldRunID] != "run-1" {
		t.Errorf("run_id = %v, want run-1", decoded[FieldRunID])
	}
	if decoded[FieldArtist] != "Foo Fighters" {
		t.Errorf("artist = %v, want Foo Fighters", decoded[FieldArtist])
	}
	if decoded[FieldChunk] != float64(2) {
		t.Errorf("chunk = %v, want 2", decoded[FieldChunk])
	}
}

func TestWithContext_EmptyContextReturnsOriginal(t *testing.T) {
	base := WithComponent("test")
	got := WithContext(context.Background(), base)
	if got.GetLevel() != base.GetLevel() {
		t.Error("logger level should be preserved when context carries nothing")
	}
}

func TestFromContext(t *testing.T) {
	Configure(Config{})
	ctx := ContextWithRunID(context.Background(), "run-9")
	logger := FromContext(ctx)
	if logger.GetLevel() > 5 {
		t.Error("expected a usable logger from FromContext")
	}
}
