package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/tatianab/dungeon-crawler/internal/config"
	"github.com/tatianab/dungeon-crawler/internal/engine"
)

func TestNewOffline(t *testing.T) {
	cfg := &config.Config{
		Offline:     true,
		ArchivePath: filepath.Join(t.TempDir(), "archive.db"),
		ImageAPIKey: "img",
		DiceSeed:    7,
	}
	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if _, ok := a.Narrator.(*engine.Scripted); !ok {
		t.Errorf("expected the scripted narrator, got %T", a.Narrator)
	}
	if a.Archive == nil {
		t.Fatalf("expected an open archive")
	}
	runs, err := a.ListRuns(context.Background(), 0)
	if err != nil || len(runs) != 0 {
		t.Errorf("expected an empty archive, got %v %v", runs, err)
	}

	ctrl, err := a.NewController()
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	if got := ctrl.Store().Snapshot().Credentials.ImageKey; got != "img" {
		t.Errorf("image key not applied, got %q", got)
	}
	if err := ctrl.StartGame(context.Background(), "The Artist"); err != nil {
		t.Fatalf("StartGame: %v", err)
	}
}

func TestArchiveOptional(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{Offline: true, ArchivePath: filepath.Join(blocker, "archive.db")}
	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()
	if a.Archive != nil || a.recorder() != nil {
		t.Errorf("expected the archive to be disabled")
	}
	if runs, err := a.ListRuns(context.Background(), 5); err != nil || len(runs) != 0 {
		t.Errorf("disabled archive should list nothing, got %v %v", runs, err)
	}
}

func TestNewBadDungeon(t *testing.T) {
	cfg := &config.Config{Offline: true, DungeonFile: filepath.Join(t.TempDir(), "none.yaml")}
	if _, err := New(context.Background(), cfg); err == nil {
		t.Fatal("expected an error for a missing dungeon file")
	}
}
