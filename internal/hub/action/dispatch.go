// Package action resolves a device tile-press to either a built-in
// internal action or the owning plugin session. Grounded on
// original_source/src-tauri/src/plugin/internal/actions.rs (dispatch
// by plugin_id prefix) and device/session.rs's TileClicked handling.
package action

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/tilepad/hub/internal/hub/eventbus"
	"github.com/tilepad/hub/internal/hub/model"
	"github.com/tilepad/hub/internal/hub/platform"
	"github.com/tilepad/hub/internal/hub/protocol"
	"github.com/tilepad/hub/internal/hub/store"
)

// internalPrefix is the reserved namespace for built-in actions.
const internalPrefix = "com.tilepad.system"

// ErrUnknownTile is returned when a press names a tile no store row backs.
var ErrUnknownTile = errors.New("action: unknown tile")

// PluginSender delivers a frame to a plugin's live session.
type PluginSender interface {
	Send(pluginID string, frame any) bool
}

// DeviceSender delivers a frame to a device's live session.
type DeviceSender interface {
	SendToDevice(deviceID string, frame any) bool
}

// TileLister resolves the tiles currently visible in a folder, shaped
// for the device wire protocol.
type TileLister interface {
	VisibleTiles(ctx context.Context, folderID string) ([]protocol.TileView, error)
}

// Dispatcher routes TilePressed frames.
type Dispatcher struct {
	store    *store.Store
	plugins  PluginSender
	devices  DeviceSender
	tiles    TileLister
	platform platform.Platform
	bus      eventbus.Emitter
}

// New constructs a dispatcher.
func New(st *store.Store, plugins PluginSender, devices DeviceSender, tiles TileLister, plat platform.Platform, bus eventbus.Emitter) *Dispatcher {
	return &Dispatcher{store: st, plugins: plugins, devices: devices, tiles: tiles, platform: plat, bus: bus}
}

// HandleTilePressed implements §4.6: resolve the device's current
// folder, look up the tile, and route to the internal table or the
// owning plugin session.
func (d *Dispatcher) HandleTilePressed(ctx context.Context, deviceID, tileID string) error {
	device, err := d.store.GetDevice(ctx, deviceID)
	if err != nil {
		return err
	}

	tile, err := d.store.GetTile(ctx, tileID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			slog.Warn("[Action] tile press for unknown tile, dropped", "tile_id", tileID)
			return ErrUnknownTile
		}
		return err
	}

	if tile.FolderID != device.FolderID {
		// Stale press from a device that has since switched folders.
		slog.Debug("[Action] dropped stale tile press", "device_id", deviceID, "tile_id", tileID)
		return nil
	}

	if strings.HasPrefix(tile.PluginID, internalPrefix) {
		return d.dispatchInternal(ctx, device, tile)
	}

	ctxTuple := protocol.InspectorContext{
		DeviceID: deviceID, PluginID: tile.PluginID, ActionID: tile.ActionID,
		TileID: tile.ID, ProfileID: device.ProfileID, FolderID: tile.FolderID,
	}
	frame := protocol.Frame(protocol.PluginOutTileClicked, protocol.PluginTileClicked{
		Ctx: ctxTuple, Properties: tile.Properties,
	})
	if !d.plugins.Send(tile.PluginID, frame) {
		slog.Warn("[Action] dropped tile press, plugin not registered", "plugin_id", tile.PluginID)
	}
	return nil
}

func (d *Dispatcher) dispatchInternal(ctx context.Context, device model.Device, tile model.Tile) error {
	switch tile.PluginID {
	case internalPrefix + ".navigation":
		return d.dispatchNavigation(ctx, device, tile)
	case internalPrefix:
		return d.dispatchSystem(ctx, tile)
	default:
		slog.Warn("[Action] unknown internal plugin id, dropped", "plugin_id", tile.PluginID)
		return nil
	}
}

type folderProps struct {
	Folder string `json:"folder"`
}

type profileProps struct {
	Profile string `json:"profile"`
}

func (d *Dispatcher) dispatchNavigation(ctx context.Context, device model.Device, tile model.Tile) error {
	switch tile.ActionID {
	case "switch_folder":
		var props folderProps
		if err := json.Unmarshal(tile.Properties, &props); err != nil || props.Folder == "" {
			slog.Warn("[Action] switch_folder missing folder property", "tile_id", tile.ID)
			return nil
		}
		target, err := d.store.GetFolder(ctx, props.Folder)
		if err != nil || target.ProfileID != device.ProfileID {
			slog.Warn("[Action] switch_folder target invalid", "tile_id", tile.ID, "folder_id", props.Folder)
			return nil
		}
		if err := d.store.SetDeviceFolder(ctx, device.ID, target.ID); err != nil {
			return err
		}
		d.pushFolder(ctx, device.ID, target.ID)
		return nil

	case "switch_profile":
		var props profileProps
		if err := json.Unmarshal(tile.Properties, &props); err != nil || props.Profile == "" {
			slog.Warn("[Action] switch_profile missing profile property", "tile_id", tile.ID)
			return nil
		}
		profile, err := d.store.GetProfile(ctx, props.Profile)
		if err != nil {
			slog.Warn("[Action] switch_profile target invalid", "tile_id", tile.ID, "profile_id", props.Profile)
			return nil
		}
		defaultFolder, err := d.store.DefaultFolder(ctx, profile.ID)
		if err != nil {
			return err
		}
		if err := d.store.SetDeviceProfileAndFolder(ctx, device.ID, profile.ID, defaultFolder.ID); err != nil {
			return err
		}
		d.pushFolder(ctx, device.ID, defaultFolder.ID)
		return nil

	default:
		slog.Warn("[Action] unknown navigation action, dropped", "action_id", tile.ActionID)
		return nil
	}
}

// pushFolder sends a Tiles{} refresh to exactly the acting device's
// own session, not a folder-wide broadcast: only it just switched.
func (d *Dispatcher) pushFolder(ctx context.Context, deviceID, folderID string) {
	views, err := d.tiles.VisibleTiles(ctx, folderID)
	if err != nil {
		slog.Error("[Action] failed to load tiles for folder switch", "folder_id", folderID, "error", err)
		return
	}
	frame := protocol.Frame(protocol.DeviceOutTiles, protocol.Tiles{Folder: folderID, Tiles: views})
	d.devices.SendToDevice(deviceID, frame)
}
