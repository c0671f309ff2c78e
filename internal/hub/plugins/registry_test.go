package plugins

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/tilepad/hub/internal/hub/eventbus"
	"github.com/tilepad/hub/internal/hub/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "tilepad.sqlite"))
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func writeManifest(t *testing.T, dir, id string) {
	t.Helper()
	pluginDir := filepath.Join(dir, id)
	if err := os.MkdirAll(pluginDir, 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	manifest := `{
		"plugin": {"id": "` + id + `", "name": "Test Plugin", "version": "1.0.0"},
		"category": {"label": "Test"},
		"actions": {"run": {"label": "Run"}}
	}`
	if err := os.WriteFile(filepath.Join(pluginDir, "manifest.json"), []byte(manifest), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func TestLoadManifestsFindsValidPlugins(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "com.example.counter")

	r := New(newTestStore(t), eventbus.New(func(eventbus.Event) error { return nil }))
	r.LoadManifests(dir, t.TempDir())

	p, ok := r.Get("com.example.counter")
	if !ok {
		t.Fatal("expected com.example.counter to be loaded")
	}
	if p.Status != StatusStopped {
		t.Errorf("freshly loaded plugin status = %q, want Stopped", p.Status)
	}
}

func TestLoadManifestsSkipsInvalidID(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "1invalid")

	r := New(newTestStore(t), eventbus.New(func(eventbus.Event) error { return nil }))
	r.LoadManifests(dir, t.TempDir())

	if _, ok := r.Get("1invalid"); ok {
		t.Error("a plugin id starting with a digit should fail validation and be skipped")
	}
}

func TestRegisterUnknownPluginIsIgnored(t *testing.T) {
	r := New(newTestStore(t), eventbus.New(func(eventbus.Event) error { return nil }))
	if ok := r.Register("sess-1", "no.such.plugin"); ok {
		t.Error("Register() for an unknown plugin id should return false")
	}
}

func TestSetPropertiesPartialMerge(t *testing.T) {
	ctx := context.Background()
	r := New(newTestStore(t), eventbus.New(func(eventbus.Event) error { return nil }))

	if err := r.SetProperties(ctx, "pl.a", json.RawMessage(`{"x":1,"y":2}`), false); err != nil {
		t.Fatalf("SetProperties(full) error = %v", err)
	}
	if err := r.SetProperties(ctx, "pl.a", json.RawMessage(`{"y":3,"z":4}`), true); err != nil {
		t.Fatalf("SetProperties(partial) error = %v", err)
	}

	got, err := r.GetProperties(ctx, "pl.a")
	if err != nil {
		t.Fatalf("GetProperties() error = %v", err)
	}
	var m map[string]int
	json.Unmarshal(got, &m)
	want := map[string]int{"x": 1, "y": 3, "z": 4}
	for k, v := range want {
		if m[k] != v {
			t.Errorf("properties[%q] = %d, want %d", k, m[k], v)
		}
	}
}
