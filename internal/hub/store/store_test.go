package store

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/tilepad/hub/internal/hub/model"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tilepad.sqlite")
	st, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestOpenAppliesMigrationsOnce(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tilepad.sqlite")

	st, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("first Open() error = %v", err)
	}
	st.Close()

	// Reopening an already-migrated file must not fail or reapply.
	st2, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("second Open() error = %v", err)
	}
	defer st2.Close()

	if _, err := st2.GetSettings(ctx); err != nil {
		t.Errorf("GetSettings() after reopen error = %v", err)
	}
}

func TestProfileFolderTileRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := openTest(t)

	profile := model.Profile{ID: "p1", Name: "Main", Default: true, Active: true}
	if err := st.CreateProfile(ctx, profile); err != nil {
		t.Fatalf("CreateProfile() error = %v", err)
	}

	folder := model.Folder{ID: "f1", ProfileID: "p1", Name: "Home", Default: true}
	if err := st.CreateFolder(ctx, folder); err != nil {
		t.Fatalf("CreateFolder() error = %v", err)
	}

	tile := model.Tile{
		ID: "t1", FolderID: "f1", PluginID: "com.example.counter", ActionID: "increment",
		Row: 0, Column: 1, Properties: json.RawMessage(`{"step":1}`),
	}
	if err := st.CreateTile(ctx, tile); err != nil {
		t.Fatalf("CreateTile() error = %v", err)
	}

	got, err := st.GetTile(ctx, "t1")
	if err != nil {
		t.Fatalf("GetTile() error = %v", err)
	}
	if got.PluginID != tile.PluginID || got.ActionID != tile.ActionID {
		t.Errorf("GetTile() = %+v, want plugin/action %q/%q", got, tile.PluginID, tile.ActionID)
	}

	rows, err := st.ListTilesByFolder(ctx, "f1")
	if err != nil {
		t.Fatalf("ListTilesByFolder() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("ListTilesByFolder() returned %d tiles, want 1", len(rows))
	}
}

func TestGetTileUnknownIsNotFound(t *testing.T) {
	st := openTest(t)
	if _, err := st.GetTile(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetTile() error = %v, want ErrNotFound", err)
	}
}

func TestDefaultFolderScopedToProfile(t *testing.T) {
	ctx := context.Background()
	st := openTest(t)

	st.CreateProfile(ctx, model.Profile{ID: "p1", Name: "A", Default: true})
	st.CreateProfile(ctx, model.Profile{ID: "p2", Name: "B"})
	st.CreateFolder(ctx, model.Folder{ID: "f1", ProfileID: "p1", Name: "Home", Default: true})
	st.CreateFolder(ctx, model.Folder{ID: "f2", ProfileID: "p2", Name: "Home", Default: true})

	got, err := st.DefaultFolder(ctx, "p2")
	if err != nil {
		t.Fatalf("DefaultFolder() error = %v", err)
	}
	if got.ID != "f2" {
		t.Errorf("DefaultFolder(p2) = %q, want f2", got.ID)
	}
}

func TestSetDefaultProfileIsExclusive(t *testing.T) {
	ctx := context.Background()
	st := openTest(t)

	st.CreateProfile(ctx, model.Profile{ID: "p1", Name: "A", Default: true})
	st.CreateProfile(ctx, model.Profile{ID: "p2", Name: "B"})

	if err := st.SetDefaultProfile(ctx, "p2"); err != nil {
		t.Fatalf("SetDefaultProfile() error = %v", err)
	}

	p1, _ := st.GetProfile(ctx, "p1")
	p2, _ := st.GetProfile(ctx, "p2")
	if p1.Default {
		t.Error("p1 should no longer be default")
	}
	if !p2.Default {
		t.Error("p2 should now be default")
	}
}

func TestGetSettingsSeedsDefaultsOnFirstRead(t *testing.T) {
	st := openTest(t)
	settings, err := st.GetSettings(context.Background())
	if err != nil {
		t.Fatalf("GetSettings() error = %v", err)
	}
	if settings.Port != 8532 {
		t.Errorf("default Port = %d, want 8532", settings.Port)
	}
	if settings.DeveloperMode {
		t.Error("default DeveloperMode should be false")
	}
}

func TestUpdateTilePreservesIdentity(t *testing.T) {
	ctx := context.Background()
	st := openTest(t)
	st.CreateProfile(ctx, model.Profile{ID: "p1", Name: "A", Default: true})
	st.CreateFolder(ctx, model.Folder{ID: "f1", ProfileID: "p1", Name: "Home", Default: true})
	st.CreateTile(ctx, model.Tile{ID: "t1", FolderID: "f1", PluginID: "pl", ActionID: "act"})

	tile, _ := st.GetTile(ctx, "t1")
	tile.Config.Label.Label = "Go"
	tile.Config.UserFlags.Label = true
	if err := st.UpdateTile(ctx, tile); err != nil {
		t.Fatalf("UpdateTile() error = %v", err)
	}

	got, _ := st.GetTile(ctx, "t1")
	if got.Config.Label.Label != "Go" {
		t.Errorf("Config.Label.Label = %q, want Go", got.Config.Label.Label)
	}
	if got.FolderID != "f1" || got.PluginID != "pl" {
		t.Errorf("UpdateTile() must not change identity fields, got %+v", got)
	}
}
