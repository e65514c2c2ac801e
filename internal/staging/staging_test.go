// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package staging

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMoveGroup(t *testing.T) {
	inbox := t.TempDir()
	stageRoot := t.TempDir()
	mgr := New(stageRoot)

	f1 := filepath.Join(inbox, "01.flac")
	f2 := filepath.Join(inbox, "02.flac")
	if err := os.WriteFile(f1, []byte("a"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(f2, []byte("b"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := mgr.MoveGroup("Boards of Canada", "Geogaddi", []string{f1, f2}); err != nil {
		t.Fatalf("MoveGroup() error = %v", err)
	}

	dst := filepath.Join(stageRoot, "Boards of Canada", "Geogaddi")
	for _, name := range []string{"01.flac", "02.flac"} {
		if _, err := os.Stat(filepath.Join(dst, name)); err != nil {
			t.Errorf("expected %s staged: %v", name, err)
		}
	}
	if _, err := os.Stat(f1); !os.IsNotExist(err) {
		t.Error("expected source file removed after move")
	}
}

func TestMoveGroup_CollisionRenames(t *testing.T) {
	inbox := t.TempDir()
	stageRoot := t.TempDir()
	mgr := New(stageRoot)

	dst, err := mgr.EnsureAlbumFolder("Artist", "Album")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dst, "01.flac"), []byte("existing"), 0o600); err != nil {
		t.Fatal(err)
	}

	src := filepath.Join(inbox, "01.flac")
	if err := os.WriteFile(src, []byte("new"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := mgr.MoveGroup("Artist", "Album", []string{src}); err != nil {
		t.Fatalf("MoveGroup() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dst, "01_1.flac")); err != nil {
		t.Errorf("expected colliding file renamed to 01_1.flac: %v", err)
	}
}

func TestMoveGroup_SkipsDisappearedFile(t *testing.T) {
	stageRoot := t.TempDir()
	mgr := New(stageRoot)

	if err := mgr.MoveGroup("Artist", "Album", []string{filepath.Join(t.TempDir(), "gone.flac")}); err != nil {
		t.Fatalf("expected disappeared file to be skipped, got error: %v", err)
	}
}

func TestClear_SkipsFailedImports(t *testing.T) {
	stageRoot := t.TempDir()
	mgr := New(stageRoot)

	if err := os.MkdirAll(filepath.Join(stageRoot, "failed_imports"), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(stageRoot, "SomeArtist"), 0o750); err != nil {
		t.Fatal(err)
	}

	cleared, failed, err := mgr.Clear(filepath.Join(stageRoot, "failed_imports"))
	if err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if cleared != 1 || failed != 0 {
		t.Errorf("Clear() = (%d, %d), want (1, 0)", cleared, failed)
	}
	if _, err := os.Stat(filepath.Join(stageRoot, "failed_imports")); err != nil {
		t.Error("expected failed_imports preserved")
	}
	if _, err := os.Stat(filepath.Join(stageRoot, "SomeArtist")); !os.IsNotExist(err) {
		t.Error("expected SomeArtist removed")
	}
}

func TestClear_MissingRootIsNoop(t *testing.T) {
	mgr := New(filepath.Join(t.TempDir(), "does-not-exist"))
	cleared, failed, err := mgr.Clear("failed_imports")
	if err != nil || cleared != 0 || failed != 0 {
		t.Errorf("Clear() on missing root = (%d, %d, %v), want (0, 0, nil)", cleared, failed, err)
	}
}

func TestUsagePct_ReturnsBoundedValue(t *testing.T) {
	mgr := New(t.TempDir())
	pct := mgr.UsagePct()
	if pct < 0 || pct > 100 {
		t.Errorf("UsagePct() = %v, want in [0, 100]", pct)
	}
}

func TestUsagePct_MissingRootReturnsZero(t *testing.T) {
	mgr := New(filepath.Join(t.TempDir(), "missing"))
	if pct := mgr.UsagePct(); pct != 0.0 {
		t.Errorf("UsagePct() on missing root = %v, want 0.0", pct)
	}
}
