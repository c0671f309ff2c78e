package tiles

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/tilepad/hub/internal/hub/model"
	"github.com/tilepad/hub/internal/hub/store"
)

type fakeRefresher struct {
	calls []string
}

func (f *fakeRefresher) BackgroundUpdateFolder(ctx context.Context, folderID string) {
	f.calls = append(f.calls, folderID)
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "tilepad.sqlite"))
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func seedTile(t *testing.T, st *store.Store, tile model.Tile) {
	t.Helper()
	ctx := context.Background()
	st.CreateProfile(ctx, model.Profile{ID: "p1", Name: "A", Default: true})
	st.CreateFolder(ctx, model.Folder{ID: tile.FolderID, ProfileID: "p1", Name: "Home", Default: true})
	if err := st.CreateTile(ctx, tile); err != nil {
		t.Fatalf("CreateTile() error = %v", err)
	}
}

func TestUpdateIconProgramIgnoredOnceUserSticky(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedTile(t, st, model.Tile{ID: "t1", FolderID: "f1", PluginID: "pl", ActionID: "act"})

	svc := New(st)
	refresher := &fakeRefresher{}
	svc.SetDevices(refresher)

	userIcon := model.TileIcon{Kind: model.IconKindUploaded, Value: "user.png"}
	if err := svc.UpdateIcon(ctx, "t1", "", userIcon, model.UpdateKindUser); err != nil {
		t.Fatalf("UpdateIcon(User) error = %v", err)
	}

	programIcon := model.TileIcon{Kind: model.IconKindPluginIcon, Value: "plugin-default"}
	if err := svc.UpdateIcon(ctx, "t1", "pl", programIcon, model.UpdateKindProgram); err != nil {
		t.Fatalf("UpdateIcon(Program) error = %v", err)
	}

	got, _ := st.GetTile(ctx, "t1")
	if got.Config.Icon != userIcon {
		t.Errorf("Program update overwrote sticky user icon: got %+v, want %+v", got.Config.Icon, userIcon)
	}
	if !got.Config.UserFlags.Icon {
		t.Error("UserFlags.Icon should remain true")
	}
}

func TestUpdateIconResetClearsStickyBit(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedTile(t, st, model.Tile{ID: "t1", FolderID: "f1", PluginID: "pl", ActionID: "act"})

	svc := New(st)
	svc.SetDevices(&fakeRefresher{})

	svc.UpdateIcon(ctx, "t1", "", model.TileIcon{Kind: model.IconKindUploaded, Value: "a.png"}, model.UpdateKindUser)
	if err := svc.UpdateIcon(ctx, "t1", "", model.TileIcon{}, model.UpdateKindReset); err != nil {
		t.Fatalf("UpdateIcon(Reset) error = %v", err)
	}

	got, _ := st.GetTile(ctx, "t1")
	if got.Config.UserFlags.Icon {
		t.Error("UserFlags.Icon should be false after Reset")
	}

	programIcon := model.TileIcon{Kind: model.IconKindPluginIcon, Value: "plugin-default"}
	if err := svc.UpdateIcon(ctx, "t1", "pl", programIcon, model.UpdateKindProgram); err != nil {
		t.Fatalf("UpdateIcon(Program) after reset error = %v", err)
	}
	got, _ = st.GetTile(ctx, "t1")
	if got.Config.Icon != programIcon {
		t.Errorf("Program update after Reset should apply, got %+v", got.Config.Icon)
	}
}

func TestUpdateLabelUserFlagTracksNonEmptyText(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedTile(t, st, model.Tile{ID: "t1", FolderID: "f1", PluginID: "pl", ActionID: "act"})

	svc := New(st)
	svc.SetDevices(&fakeRefresher{})

	if err := svc.UpdateLabel(ctx, "t1", "", model.TileLabel{Label: "Hello"}, model.UpdateKindUser); err != nil {
		t.Fatalf("UpdateLabel() error = %v", err)
	}
	got, _ := st.GetTile(ctx, "t1")
	if !got.Config.UserFlags.Label {
		t.Error("UserFlags.Label should be true for non-empty user label")
	}

	if err := svc.UpdateLabel(ctx, "t1", "", model.TileLabel{Label: ""}, model.UpdateKindUser); err != nil {
		t.Fatalf("UpdateLabel(empty) error = %v", err)
	}
	got, _ = st.GetTile(ctx, "t1")
	if got.Config.UserFlags.Label {
		t.Error("UserFlags.Label should be false once the user clears the label")
	}
}

func TestUpdatePropertiesPartialMergesTopLevelKeys(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedTile(t, st, model.Tile{
		ID: "t1", FolderID: "f1", PluginID: "pl", ActionID: "act",
		Properties: json.RawMessage(`{"a":1,"b":2}`),
	})

	svc := New(st)
	svc.SetDevices(&fakeRefresher{})

	if err := svc.UpdateProperties(ctx, "t1", "pl", json.RawMessage(`{"b":3,"c":4}`), true); err != nil {
		t.Fatalf("UpdateProperties(partial) error = %v", err)
	}

	got, _ := st.GetTile(ctx, "t1")
	var props map[string]int
	json.Unmarshal(got.Properties, &props)
	want := map[string]int{"a": 1, "b": 3, "c": 4}
	for k, v := range want {
		if props[k] != v {
			t.Errorf("properties[%q] = %d, want %d", k, props[k], v)
		}
	}
}

func TestUpdatePropertiesForbidsOtherPlugins(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedTile(t, st, model.Tile{ID: "t1", FolderID: "f1", PluginID: "pl", ActionID: "act"})

	svc := New(st)
	svc.SetDevices(&fakeRefresher{})

	err := svc.UpdateProperties(ctx, "t1", "someone-else", json.RawMessage(`{}`), true)
	if err != ErrForbidden {
		t.Errorf("UpdateProperties() error = %v, want ErrForbidden", err)
	}
}

func TestMutationsRefreshOwningFolder(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedTile(t, st, model.Tile{ID: "t1", FolderID: "f1", PluginID: "pl", ActionID: "act"})

	svc := New(st)
	refresher := &fakeRefresher{}
	svc.SetDevices(refresher)

	svc.UpdateLabel(ctx, "t1", "", model.TileLabel{Label: "x"}, model.UpdateKindUser)

	if len(refresher.calls) != 1 || refresher.calls[0] != "f1" {
		t.Errorf("BackgroundUpdateFolder calls = %v, want [f1]", refresher.calls)
	}
}

func TestVisibleTilesOrderedByRowThenColumn(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	st.CreateProfile(ctx, model.Profile{ID: "p1", Name: "A", Default: true})
	st.CreateFolder(ctx, model.Folder{ID: "f1", ProfileID: "p1", Name: "Home", Default: true})
	st.CreateTile(ctx, model.Tile{ID: "t2", FolderID: "f1", PluginID: "pl", ActionID: "a", Row: 1, Column: 0})
	st.CreateTile(ctx, model.Tile{ID: "t1", FolderID: "f1", PluginID: "pl", ActionID: "a", Row: 0, Column: 1})
	st.CreateTile(ctx, model.Tile{ID: "t0", FolderID: "f1", PluginID: "pl", ActionID: "a", Row: 0, Column: 0})

	svc := New(st)
	views, err := svc.VisibleTiles(ctx, "f1")
	if err != nil {
		t.Fatalf("VisibleTiles() error = %v", err)
	}
	if len(views) != 3 {
		t.Fatalf("VisibleTiles() returned %d tiles, want 3", len(views))
	}
	wantOrder := []string{"t0", "t1", "t2"}
	for i, id := range wantOrder {
		if views[i].ID != id {
			t.Errorf("views[%d].ID = %q, want %q", i, views[i].ID, id)
		}
	}
}

func TestVisibleTilesForPluginScansAcrossFolders(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	st.CreateProfile(ctx, model.Profile{ID: "p1", Name: "A", Default: true})
	st.CreateFolder(ctx, model.Folder{ID: "f1", ProfileID: "p1", Name: "Home", Default: true})
	st.CreateFolder(ctx, model.Folder{ID: "f2", ProfileID: "p1", Name: "Other"})
	st.CreateTile(ctx, model.Tile{ID: "t1", FolderID: "f1", PluginID: "pl.a", ActionID: "x"})
	st.CreateTile(ctx, model.Tile{ID: "t2", FolderID: "f2", PluginID: "pl.a", ActionID: "y"})
	st.CreateTile(ctx, model.Tile{ID: "t3", FolderID: "f1", PluginID: "pl.b", ActionID: "z"})

	svc := New(st)
	views, err := svc.VisibleTilesForPlugin(ctx, "pl.a")
	if err != nil {
		t.Fatalf("VisibleTilesForPlugin() error = %v", err)
	}
	if len(views) != 2 {
		t.Errorf("VisibleTilesForPlugin() returned %d tiles, want 2", len(views))
	}
}
