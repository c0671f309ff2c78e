// Package tiles is the single point of truth for tile mutation.
// Grounded on original_source/src-tauri/src/tile/mod.rs and
// database/entity/tile.rs's sticky-bit update_label/update_icon logic.
package tiles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tilepad/hub/internal/hub/model"
	"github.com/tilepad/hub/internal/hub/protocol"
	"github.com/tilepad/hub/internal/hub/store"
)

var (
	ErrForbidden    = errors.New("tiles: forbidden")
	ErrUnknownTile  = errors.New("tiles: unknown tile")
)

// FolderRefresher is the device registry's folder-broadcast hook,
// declared locally to avoid tiles <-> devices import cycle.
type FolderRefresher interface {
	BackgroundUpdateFolder(ctx context.Context, folderID string)
}

// IconReferenceChecker reports whether an uploaded icon path is still
// referenced by any tile, used to schedule orphaned uploads for
// deletion.
type IconReferenceChecker interface {
	IsUploadedIconReferenced(ctx context.Context, path string) (bool, error)
	ScheduleDelete(path string)
}

// Service is the tile CRUD authority.
type Service struct {
	store   *store.Store
	devices FolderRefresher
	icons   IconReferenceChecker
}

// New constructs a tile service. devices/icons may be set after
// construction via SetDevices/SetIcons to break the startup
// initialization cycle (the device registry needs a TileLister, which
// this Service satisfies, before this Service has a FolderRefresher).
func New(st *store.Store) *Service {
	return &Service{store: st}
}

// SetDevices wires the folder-refresh broadcaster.
func (s *Service) SetDevices(d FolderRefresher) { s.devices = d }

// SetIcons wires the uploaded-icon reference checker.
func (s *Service) SetIcons(i IconReferenceChecker) { s.icons = i }

func authorize(tile model.Tile, requestingPluginID string) error {
	if requestingPluginID != "" && requestingPluginID != tile.PluginID {
		return ErrForbidden
	}
	return nil
}

// GetProperties returns a tile's opaque properties, authorized against
// the requesting plugin if present.
func (s *Service) GetProperties(ctx context.Context, tileID, requestingPluginID string) (json.RawMessage, error) {
	tile, err := s.store.GetTile(ctx, tileID)
	if err != nil {
		return nil, translateNotFound(err)
	}
	if err := authorize(tile, requestingPluginID); err != nil {
		return nil, err
	}
	return tile.Properties, nil
}

// UpdateProperties merges or replaces a tile's properties.
func (s *Service) UpdateProperties(ctx context.Context, tileID, requestingPluginID string, properties json.RawMessage, partial bool) error {
	tile, err := s.store.GetTile(ctx, tileID)
	if err != nil {
		return translateNotFound(err)
	}
	if err := authorize(tile, requestingPluginID); err != nil {
		return err
	}

	if partial {
		merged, err := mergeTopLevel(tile.Properties, properties)
		if err != nil {
			return fmt.Errorf("tiles: merge properties: %w", err)
		}
		tile.Properties = merged
	} else {
		tile.Properties = properties
	}

	if err := s.store.UpdateTile(ctx, tile); err != nil {
		return err
	}
	s.refresh(ctx, tile.FolderID)
	return nil
}

// UpdateIcon applies the sticky-bit rule to a tile's icon.
//
//	Program: ignored if user_flags.icon is already true.
//	User:    applied; user_flags.icon becomes true.
//	Reset:   applied; user_flags.icon becomes false.
func (s *Service) UpdateIcon(ctx context.Context, tileID, requestingPluginID string, icon model.TileIcon, kind model.UpdateKind) error {
	tile, err := s.store.GetTile(ctx, tileID)
	if err != nil {
		return translateNotFound(err)
	}
	if err := authorize(tile, requestingPluginID); err != nil {
		return err
	}

	if kind == model.UpdateKindProgram && tile.Config.UserFlags.Icon {
		return nil // silently ignored per the sticky-bit table
	}

	previous := tile.Config.Icon
	tile.Config.Icon = icon
	switch kind {
	case model.UpdateKindUser:
		tile.Config.UserFlags.Icon = true
	case model.UpdateKindReset:
		tile.Config.UserFlags.Icon = false
	}

	if err := s.store.UpdateTile(ctx, tile); err != nil {
		return err
	}
	s.refresh(ctx, tile.FolderID)
	s.cleanupOrphanedIcon(ctx, previous)
	return nil
}

// UpdateLabel applies the sticky-bit rule to a tile's label. The
// user-flag is true only when the resulting label text is non-empty.
func (s *Service) UpdateLabel(ctx context.Context, tileID, requestingPluginID string, label model.TileLabel, kind model.UpdateKind) error {
	tile, err := s.store.GetTile(ctx, tileID)
	if err != nil {
		return translateNotFound(err)
	}
	if err := authorize(tile, requestingPluginID); err != nil {
		return err
	}

	if kind == model.UpdateKindProgram && tile.Config.UserFlags.Label {
		return nil
	}

	tile.Config.Label = label
	switch kind {
	case model.UpdateKindUser:
		tile.Config.UserFlags.Label = label.Label != ""
	case model.UpdateKindReset:
		tile.Config.UserFlags.Label = false
	}

	if err := s.store.UpdateTile(ctx, tile); err != nil {
		return err
	}
	s.refresh(ctx, tile.FolderID)
	return nil
}

// UpdateIconOptions has no sticky-bit gating at all.
func (s *Service) UpdateIconOptions(ctx context.Context, tileID, requestingPluginID string, options model.TileIconOptions) error {
	tile, err := s.store.GetTile(ctx, tileID)
	if err != nil {
		return translateNotFound(err)
	}
	if err := authorize(tile, requestingPluginID); err != nil {
		return err
	}
	tile.Config.IconOptions = options
	if err := s.store.UpdateTile(ctx, tile); err != nil {
		return err
	}
	s.refresh(ctx, tile.FolderID)
	return nil
}

// Delete removes a tile and refreshes the folder's subscribed devices.
func (s *Service) Delete(ctx context.Context, tileID string) error {
	tile, err := s.store.GetTile(ctx, tileID)
	if err != nil {
		return translateNotFound(err)
	}
	if err := s.store.DeleteTile(ctx, tileID); err != nil {
		return err
	}
	s.refresh(ctx, tile.FolderID)
	return nil
}

// VisibleTiles satisfies devices.TileLister: tiles in a folder,
// (row, column) order, shaped for the device wire protocol.
func (s *Service) VisibleTiles(ctx context.Context, folderID string) ([]protocol.TileView, error) {
	rows, err := s.store.ListTilesByFolder(ctx, folderID)
	if err != nil {
		return nil, err
	}
	out := make([]protocol.TileView, len(rows))
	for i, t := range rows {
		cfg, err := json.Marshal(t.Config)
		if err != nil {
			return nil, err
		}
		out[i] = protocol.TileView{
			ID: t.ID, PluginID: t.PluginID, ActionID: t.ActionID,
			Row: t.Row, Column: t.Column, Config: cfg, Properties: t.Properties,
		}
	}
	return out, nil
}

// VisibleTilesForPlugin returns every tile across every folder owned
// by a plugin, answering the plugin protocol's GetVisibleTiles.
func (s *Service) VisibleTilesForPlugin(ctx context.Context, pluginID string) ([]protocol.TileView, error) {
	all, err := s.store.AllTiles(ctx)
	if err != nil {
		return nil, err
	}
	var out []protocol.TileView
	for _, t := range all {
		if t.PluginID != pluginID {
			continue
		}
		cfg, err := json.Marshal(t.Config)
		if err != nil {
			return nil, err
		}
		out = append(out, protocol.TileView{
			ID: t.ID, PluginID: t.PluginID, ActionID: t.ActionID,
			Row: t.Row, Column: t.Column, Config: cfg, Properties: t.Properties,
		})
	}
	return out, nil
}

func (s *Service) refresh(ctx context.Context, folderID string) {
	if s.devices != nil {
		s.devices.BackgroundUpdateFolder(ctx, folderID)
	}
}

func (s *Service) cleanupOrphanedIcon(ctx context.Context, previous model.TileIcon) {
	if previous.Kind != model.IconKindUploaded || previous.Value == "" || s.icons == nil {
		return
	}
	referenced, err := s.icons.IsUploadedIconReferenced(ctx, previous.Value)
	if err != nil {
		slog.Warn("[Tiles] failed to check uploaded icon reference", "path", previous.Value, "error", err)
		return
	}
	if !referenced {
		s.icons.ScheduleDelete(previous.Value)
	}
}

func translateNotFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrUnknownTile
	}
	return err
}

func mergeTopLevel(base, patch json.RawMessage) (json.RawMessage, error) {
	var baseMap map[string]json.RawMessage
	if len(base) > 0 {
		if err := json.Unmarshal(base, &baseMap); err != nil {
			return nil, err
		}
	}
	if baseMap == nil {
		baseMap = map[string]json.RawMessage{}
	}
	var patchMap map[string]json.RawMessage
	if len(patch) > 0 {
		if err := json.Unmarshal(patch, &patchMap); err != nil {
			return nil, err
		}
	}
	for k, v := range patchMap {
		baseMap[k] = v
	}
	return json.Marshal(baseMap)
}
