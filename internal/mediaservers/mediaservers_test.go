// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package mediaservers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"github.com/oxbow-labs/ingestord/internal/config"
)

func TestNotifyAllHitsEveryTarget(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	targets := []config.MediaServerTarget{
		{Name: "a", URL: srv.URL, Method: "GET"},
		{Name: "b", URL: srv.URL, Method: "POST"},
	}
	n := New(targets, zerolog.Nop())
	n.NotifyAll(context.Background())

	if got := atomic.LoadInt32(&hits); got != 2 {
		t.Errorf("hits = %d, want 2", got)
	}
}

func TestNotifyAllToleratesUnreachableTarget(t *testing.T) {
	targets := []config.MediaServerTarget{
		{Name: "dead", URL: "http://127.0.0.1:1", Method: "GET"},
	}
	n := New(targets, zerolog.Nop())
	n.NotifyAll(context.Background())
}

func TestFixPermissionsChmodsFilesAndDirs(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "Artist", "Album")
	if err := os.MkdirAll(sub, 0o700); err != nil {
		t.Fatal(err)
	}
	file := filepath.Join(sub, "track.flac")
	if err := os.WriteFile(file, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := FixPermissions(root); err != nil {
		t.Fatalf("FixPermissions() error = %v", err)
	}

	fi, err := os.Stat(file)
	if err != nil {
		t.Fatal(err)
	}
	if fi.Mode().Perm() != fileMode {
		t.Errorf("file mode = %v, want %v", fi.Mode().Perm(), os.FileMode(fileMode))
	}

	di, err := os.Stat(sub)
	if err != nil {
		t.Fatal(err)
	}
	if di.Mode().Perm() != dirMode {
		t.Errorf("dir mode = %v, want %v", di.Mode().Perm(), os.FileMode(dirMode))
	}
}
