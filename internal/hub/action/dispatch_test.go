package action

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/tilepad/hub/internal/hub/eventbus"
	"github.com/tilepad/hub/internal/hub/model"
	"github.com/tilepad/hub/internal/hub/platform"
	"github.com/tilepad/hub/internal/hub/protocol"
	"github.com/tilepad/hub/internal/hub/store"
)

type fakePlugins struct {
	sent map[string]any
}

func (f *fakePlugins) Send(pluginID string, frame any) bool {
	if f.sent == nil {
		f.sent = map[string]any{}
	}
	f.sent[pluginID] = frame
	return true
}

type fakeDevices struct {
	sent map[string]any
}

func (f *fakeDevices) SendToDevice(deviceID string, frame any) bool {
	if f.sent == nil {
		f.sent = map[string]any{}
	}
	f.sent[deviceID] = frame
	return true
}

type fakeTiles struct {
	byFolder map[string][]protocol.TileView
}

func (f *fakeTiles) VisibleTiles(ctx context.Context, folderID string) ([]protocol.TileView, error) {
	return f.byFolder[folderID], nil
}

type fakePlatform struct {
	lastHotkeyModifiers []string
	lastHotkeyKeys      []string
	typed               []string
	lastURL             string
}

func (p *fakePlatform) OpenWebsite(url string) error { p.lastURL = url; return nil }
func (p *fakePlatform) OpenPath(string) error        { return nil }
func (p *fakePlatform) OpenFolder(string) error       { return nil }
func (p *fakePlatform) CloseProcess(string) error     { return nil }
func (p *fakePlatform) TypeText(text string) error    { p.typed = append(p.typed, text); return nil }
func (p *fakePlatform) Multimedia(platform.MultimediaAction) error { return nil }
func (p *fakePlatform) Hotkey(modifiers, keys []string) error {
	p.lastHotkeyModifiers = modifiers
	p.lastHotkeyKeys = keys
	return nil
}
func (p *fakePlatform) WriteClipboard(string) error { return nil }

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "tilepad.sqlite"))
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestHandleTilePressedDropsStalePress(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	st.CreateProfile(ctx, model.Profile{ID: "p1", Name: "A", Default: true})
	st.CreateFolder(ctx, model.Folder{ID: "f1", ProfileID: "p1", Name: "Home", Default: true})
	st.CreateFolder(ctx, model.Folder{ID: "f2", ProfileID: "p1", Name: "Other"})
	st.CreateDevice(ctx, model.Device{ID: "d1", Name: "dev", AccessToken: "tok", ProfileID: "p1", FolderID: "f2"})
	st.CreateTile(ctx, model.Tile{ID: "t1", FolderID: "f1", PluginID: "pl.counter", ActionID: "inc"})

	plugins := &fakePlugins{}
	d := New(st, plugins, &fakeDevices{}, &fakeTiles{}, &fakePlatform{}, eventbus.New(func(eventbus.Event) error { return nil }))

	if err := d.HandleTilePressed(ctx, "d1", "t1"); err != nil {
		t.Fatalf("HandleTilePressed() error = %v", err)
	}
	if len(plugins.sent) != 0 {
		t.Errorf("stale press should be dropped, but plugin received %v", plugins.sent)
	}
}

func TestHandleTilePressedForwardsToPlugin(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	st.CreateProfile(ctx, model.Profile{ID: "p1", Name: "A", Default: true})
	st.CreateFolder(ctx, model.Folder{ID: "f1", ProfileID: "p1", Name: "Home", Default: true})
	st.CreateDevice(ctx, model.Device{ID: "d1", Name: "dev", AccessToken: "tok", ProfileID: "p1", FolderID: "f1"})
	st.CreateTile(ctx, model.Tile{
		ID: "t1", FolderID: "f1", PluginID: "pl.counter", ActionID: "inc",
		Properties: json.RawMessage(`{"step":1}`),
	})

	plugins := &fakePlugins{}
	d := New(st, plugins, &fakeDevices{}, &fakeTiles{}, &fakePlatform{}, eventbus.New(func(eventbus.Event) error { return nil }))

	if err := d.HandleTilePressed(ctx, "d1", "t1"); err != nil {
		t.Fatalf("HandleTilePressed() error = %v", err)
	}

	frame, ok := plugins.sent["pl.counter"]
	if !ok {
		t.Fatal("plugin pl.counter did not receive a frame")
	}
	m := frame.(map[string]any)
	if m["type"] != protocol.PluginOutTileClicked {
		t.Errorf("frame type = %v, want %q", m["type"], protocol.PluginOutTileClicked)
	}
}

func TestHandleTilePressedUnknownTile(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	st.CreateProfile(ctx, model.Profile{ID: "p1", Name: "A", Default: true})
	st.CreateFolder(ctx, model.Folder{ID: "f1", ProfileID: "p1", Name: "Home", Default: true})
	st.CreateDevice(ctx, model.Device{ID: "d1", Name: "dev", AccessToken: "tok", ProfileID: "p1", FolderID: "f1"})

	d := New(st, &fakePlugins{}, &fakeDevices{}, &fakeTiles{}, &fakePlatform{}, eventbus.New(func(eventbus.Event) error { return nil }))

	if err := d.HandleTilePressed(ctx, "d1", "missing"); err != ErrUnknownTile {
		t.Errorf("HandleTilePressed() error = %v, want ErrUnknownTile", err)
	}
}

func TestSwitchFolderPushesToActingDeviceOnly(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	st.CreateProfile(ctx, model.Profile{ID: "p1", Name: "A", Default: true})
	st.CreateFolder(ctx, model.Folder{ID: "f1", ProfileID: "p1", Name: "Home", Default: true})
	st.CreateFolder(ctx, model.Folder{ID: "f2", ProfileID: "p1", Name: "Target"})
	st.CreateDevice(ctx, model.Device{ID: "d1", Name: "dev", AccessToken: "tok", ProfileID: "p1", FolderID: "f1"})
	st.CreateTile(ctx, model.Tile{
		ID: "t1", FolderID: "f1", PluginID: "com.tilepad.system.navigation", ActionID: "switch_folder",
		Properties: json.RawMessage(`{"folder":"f2"}`),
	})

	devices := &fakeDevices{}
	tiles := &fakeTiles{byFolder: map[string][]protocol.TileView{"f2": {{ID: "x"}}}}
	d := New(st, &fakePlugins{}, devices, tiles, &fakePlatform{}, eventbus.New(func(eventbus.Event) error { return nil }))

	if err := d.HandleTilePressed(ctx, "d1", "t1"); err != nil {
		t.Fatalf("HandleTilePressed() error = %v", err)
	}

	dev, _ := st.GetDevice(ctx, "d1")
	if dev.FolderID != "f2" {
		t.Errorf("device FolderID = %q, want f2", dev.FolderID)
	}
	if _, ok := devices.sent["d1"]; !ok {
		t.Error("acting device did not receive a Tiles refresh")
	}
	if len(devices.sent) != 1 {
		t.Errorf("only the acting device should receive a push, got %v", devices.sent)
	}
}

func TestSwitchFolderRejectsCrossProfileTarget(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	st.CreateProfile(ctx, model.Profile{ID: "p1", Name: "A", Default: true})
	st.CreateProfile(ctx, model.Profile{ID: "p2", Name: "B"})
	st.CreateFolder(ctx, model.Folder{ID: "f1", ProfileID: "p1", Name: "Home", Default: true})
	st.CreateFolder(ctx, model.Folder{ID: "f2", ProfileID: "p2", Name: "Other", Default: true})
	st.CreateDevice(ctx, model.Device{ID: "d1", Name: "dev", AccessToken: "tok", ProfileID: "p1", FolderID: "f1"})
	st.CreateTile(ctx, model.Tile{
		ID: "t1", FolderID: "f1", PluginID: "com.tilepad.system.navigation", ActionID: "switch_folder",
		Properties: json.RawMessage(`{"folder":"f2"}`),
	})

	devices := &fakeDevices{}
	d := New(st, &fakePlugins{}, devices, &fakeTiles{}, &fakePlatform{}, eventbus.New(func(eventbus.Event) error { return nil }))

	if err := d.HandleTilePressed(ctx, "d1", "t1"); err != nil {
		t.Fatalf("HandleTilePressed() error = %v", err)
	}

	dev, _ := st.GetDevice(ctx, "d1")
	if dev.FolderID != "f1" {
		t.Errorf("device should stay in f1 when target folder is in a different profile, got %q", dev.FolderID)
	}
}

func TestSwitchProfileMovesDeviceToDefaultFolder(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	st.CreateProfile(ctx, model.Profile{ID: "p1", Name: "A", Default: true})
	st.CreateProfile(ctx, model.Profile{ID: "p2", Name: "B"})
	st.CreateFolder(ctx, model.Folder{ID: "f1", ProfileID: "p1", Name: "Home", Default: true})
	st.CreateFolder(ctx, model.Folder{ID: "f2", ProfileID: "p2", Name: "Home", Default: true})
	st.CreateDevice(ctx, model.Device{ID: "d1", Name: "dev", AccessToken: "tok", ProfileID: "p1", FolderID: "f1"})
	st.CreateTile(ctx, model.Tile{
		ID: "t1", FolderID: "f1", PluginID: "com.tilepad.system.navigation", ActionID: "switch_profile",
		Properties: json.RawMessage(`{"profile":"p2"}`),
	})

	devices := &fakeDevices{}
	d := New(st, &fakePlugins{}, devices, &fakeTiles{}, &fakePlatform{}, eventbus.New(func(eventbus.Event) error { return nil }))

	if err := d.HandleTilePressed(ctx, "d1", "t1"); err != nil {
		t.Fatalf("HandleTilePressed() error = %v", err)
	}

	dev, _ := st.GetDevice(ctx, "d1")
	if dev.ProfileID != "p2" || dev.FolderID != "f2" {
		t.Errorf("device = %+v, want profile p2 / folder f2", dev)
	}
}

func TestSystemWebsiteCallsPlatform(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	st.CreateProfile(ctx, model.Profile{ID: "p1", Name: "A", Default: true})
	st.CreateFolder(ctx, model.Folder{ID: "f1", ProfileID: "p1", Name: "Home", Default: true})
	st.CreateDevice(ctx, model.Device{ID: "d1", Name: "dev", AccessToken: "tok", ProfileID: "p1", FolderID: "f1"})
	st.CreateTile(ctx, model.Tile{
		ID: "t1", FolderID: "f1", PluginID: "com.tilepad.system", ActionID: "website",
		Properties: json.RawMessage(`{"url":"https://example.com"}`),
	})

	plat := &fakePlatform{}
	d := New(st, &fakePlugins{}, &fakeDevices{}, &fakeTiles{}, plat, eventbus.New(func(eventbus.Event) error { return nil }))

	if err := d.HandleTilePressed(ctx, "d1", "t1"); err != nil {
		t.Fatalf("HandleTilePressed() error = %v", err)
	}
	if plat.lastURL != "https://example.com" {
		t.Errorf("platform.OpenWebsite url = %q, want https://example.com", plat.lastURL)
	}
}

func TestSystemTextBatchesOnNewlines(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	st.CreateProfile(ctx, model.Profile{ID: "p1", Name: "A", Default: true})
	st.CreateFolder(ctx, model.Folder{ID: "f1", ProfileID: "p1", Name: "Home", Default: true})
	st.CreateDevice(ctx, model.Device{ID: "d1", Name: "dev", AccessToken: "tok", ProfileID: "p1", FolderID: "f1"})
	st.CreateTile(ctx, model.Tile{
		ID: "t1", FolderID: "f1", PluginID: "com.tilepad.system", ActionID: "text",
		Properties: json.RawMessage(`{"text":"line one\nline two"}`),
	})

	plat := &fakePlatform{}
	d := New(st, &fakePlugins{}, &fakeDevices{}, &fakeTiles{}, plat, eventbus.New(func(eventbus.Event) error { return nil }))

	if err := d.HandleTilePressed(ctx, "d1", "t1"); err != nil {
		t.Fatalf("HandleTilePressed() error = %v", err)
	}
	if len(plat.typed) != 2 || plat.typed[0] != "line one" || plat.typed[1] != "line two" {
		t.Errorf("typed batches = %v, want [line one, line two]", plat.typed)
	}
	if len(plat.lastHotkeyKeys) != 1 || plat.lastHotkeyKeys[0] != "Enter" {
		t.Errorf("hotkey keys = %v, want [Enter] for the newline flush", plat.lastHotkeyKeys)
	}
}

func TestSystemHotkeyForwardsModifiersAndKeys(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	st.CreateProfile(ctx, model.Profile{ID: "p1", Name: "A", Default: true})
	st.CreateFolder(ctx, model.Folder{ID: "f1", ProfileID: "p1", Name: "Home", Default: true})
	st.CreateDevice(ctx, model.Device{ID: "d1", Name: "dev", AccessToken: "tok", ProfileID: "p1", FolderID: "f1"})
	st.CreateTile(ctx, model.Tile{
		ID: "t1", FolderID: "f1", PluginID: "com.tilepad.system", ActionID: "hotkey",
		Properties: json.RawMessage(`{"modifiers":["Ctrl","Shift"],"keys":["S"]}`),
	})

	plat := &fakePlatform{}
	d := New(st, &fakePlugins{}, &fakeDevices{}, &fakeTiles{}, plat, eventbus.New(func(eventbus.Event) error { return nil }))

	if err := d.HandleTilePressed(ctx, "d1", "t1"); err != nil {
		t.Fatalf("HandleTilePressed() error = %v", err)
	}
	if len(plat.lastHotkeyModifiers) != 2 || plat.lastHotkeyKeys[0] != "S" {
		t.Errorf("hotkey modifiers/keys = %v/%v", plat.lastHotkeyModifiers, plat.lastHotkeyKeys)
	}
}
