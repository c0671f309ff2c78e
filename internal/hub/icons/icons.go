// Package icons tracks loaded icon packs and uploaded-icon reference
// state used by the tile service's icon-change cleanup rule. Grounded
// on original_source/src-tauri/src/icons/* (pack load/unload eventing)
// and §4.4's "Uploaded icon cleanup" rule.
package icons

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/tilepad/hub/internal/hub/eventbus"
	"github.com/tilepad/hub/internal/hub/model"
)

// TileLister is the subset of the tile store needed to check whether
// an uploaded icon is still referenced.
type TileLister interface {
	AllTiles(ctx context.Context) ([]model.Tile, error)
}

// Manager tracks loaded icon packs and performs best-effort cleanup of
// orphaned uploaded icon files.
type Manager struct {
	mu    sync.Mutex
	packs map[string]bool // pack_id -> loaded

	bus   eventbus.Emitter
	tiles TileLister
}

// New constructs an icon pack manager.
func New(bus eventbus.Emitter, tiles TileLister) *Manager {
	return &Manager{packs: make(map[string]bool), bus: bus, tiles: tiles}
}

// LoadPack marks a pack id as loaded and emits icon_pack:loaded.
func (m *Manager) LoadPack(packID string) {
	m.mu.Lock()
	m.packs[packID] = true
	m.mu.Unlock()
	m.bus.Emit(eventbus.TopicIconPackLoaded, packID)
}

// UnloadPack marks a pack id as unloaded and emits icon_pack:unloaded.
func (m *Manager) UnloadPack(packID string) {
	m.mu.Lock()
	delete(m.packs, packID)
	m.mu.Unlock()
	m.bus.Emit(eventbus.TopicIconPackUnloaded, packID)
}

// Loaded reports whether a pack id is currently loaded.
func (m *Manager) Loaded(packID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.packs[packID]
}

// IsUploadedIconReferenced scans every tile for a reference to path.
// Full-table scan is acceptable: this only runs on icon change, not on
// the hot path, matching the "best-effort, failure logged" tolerance
// §4.4 allows for this cleanup.
func (m *Manager) IsUploadedIconReferenced(ctx context.Context, path string) (bool, error) {
	allTiles, err := m.tiles.AllTiles(ctx)
	if err != nil {
		return false, err
	}
	for _, t := range allTiles {
		if t.Config.Icon.Kind == model.IconKindUploaded && t.Config.Icon.Value == path {
			return true, nil
		}
	}
	return false, nil
}

// ScheduleDelete removes an orphaned uploaded icon file, best-effort.
func (m *Manager) ScheduleDelete(path string) {
	go func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			slog.Warn("[Icons] failed to delete orphaned uploaded icon", "path", path, "error", err)
		}
	}()
}
