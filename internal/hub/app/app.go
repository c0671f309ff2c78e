// Package app wires every hub component into one process and owns its
// startup/shutdown lifecycle. Grounded on
// internal/signaling/app/app.go's NewServer/Start/Close shape: build
// every dependency up front, wire the cross-cutting callbacks, then
// hand back a single handle the entrypoint drives.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/tilepad/hub/internal/hub/action"
	"github.com/tilepad/hub/internal/hub/config"
	"github.com/tilepad/hub/internal/hub/devices"
	"github.com/tilepad/hub/internal/hub/eventbus"
	"github.com/tilepad/hub/internal/hub/httpapi"
	"github.com/tilepad/hub/internal/hub/icons"
	"github.com/tilepad/hub/internal/hub/inspector"
	"github.com/tilepad/hub/internal/hub/model"
	"github.com/tilepad/hub/internal/hub/platform"
	"github.com/tilepad/hub/internal/hub/plugins"
	"github.com/tilepad/hub/internal/hub/store"
	"github.com/tilepad/hub/internal/hub/tiles"
)

// Hub is the fully wired control plane: one store, one event bus, and
// the device/plugin/tile/action/inspector services sitting on top of
// them, fronted by a single HTTP/WebSocket server.
type Hub struct {
	cfg *config.Config

	store     *store.Store
	bus       *eventbus.Bus
	devices   *devices.Registry
	plugins   *plugins.Registry
	tiles     *tiles.Service
	icons     *icons.Manager
	inspector *inspector.Bridge
	platform  platform.Platform
	action    *action.Dispatcher
	http      *httpapi.Server
}

// NewServer constructs the hub and every component it owns, but does
// not yet start listening — call Start for that.
func NewServer(ctx context.Context, cfg *config.Config) (*Hub, error) {
	st, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("app: open store: %w", err)
	}

	if err := seedDefaults(ctx, st); err != nil {
		st.Close()
		return nil, fmt.Errorf("app: seed defaults: %w", err)
	}

	bus := eventbus.New(func(eventbus.Event) error { return nil })

	tileSvc := tiles.New(st)
	pluginRegistry := plugins.New(st, bus)
	deviceRegistry := devices.New(st, bus, tileSvc)
	tileSvc.SetDevices(deviceRegistry)
	iconManager := icons.New(bus, st)
	tileSvc.SetIcons(iconManager)

	inspectorBridge := inspector.New(pluginRegistry, bus)
	plat := platform.New()
	dispatcher := action.New(st, pluginRegistry, deviceRegistry, tileSvc, plat, bus)

	httpServer := httpapi.New(cfg, st, deviceRegistry, pluginRegistry, tileSvc, iconManager, inspectorBridge, dispatcher)

	pluginRegistry.LoadManifests(cfg.CorePluginDir, cfg.UserPluginDir)

	return &Hub{
		cfg:       cfg,
		store:     st,
		bus:       bus,
		devices:   deviceRegistry,
		plugins:   pluginRegistry,
		tiles:     tileSvc,
		icons:     iconManager,
		inspector: inspectorBridge,
		platform:  plat,
		action:    dispatcher,
		http:      httpServer,
	}, nil
}

// Start begins listening for device and plugin WebSocket connections.
func (h *Hub) Start() error {
	slog.Info("[App] starting hub", "port", h.cfg.Port, "bind", h.cfg.BindAddr)
	return h.http.Start()
}

// Close shuts the listener down and releases the store handle.
func (h *Hub) Close() error {
	if h.http != nil {
		if err := h.http.Stop(); err != nil {
			slog.Warn("[App] error stopping http server", "error", err)
		}
	}
	if h.store != nil {
		return h.store.Close()
	}
	return nil
}

// seedDefaults ensures at least one profile and one folder exist so a
// newly approved device always has somewhere to land. A fresh data
// directory has neither.
func seedDefaults(ctx context.Context, st *store.Store) error {
	profile, err := st.DefaultProfile(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("look up default profile: %w", err)
		}
		profile = model.Profile{ID: uuid.NewString(), Name: "Default", Default: true, Active: true}
		if err := st.CreateProfile(ctx, profile); err != nil {
			return fmt.Errorf("create default profile: %w", err)
		}
		slog.Info("[App] created default profile", "profile_id", profile.ID)
	}

	if _, err := st.DefaultFolder(ctx, profile.ID); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("look up default folder: %w", err)
		}
		folder := model.Folder{ID: uuid.NewString(), ProfileID: profile.ID, Name: "Home", Default: true}
		if err := st.CreateFolder(ctx, folder); err != nil {
			return fmt.Errorf("create default folder: %w", err)
		}
		slog.Info("[App] created default folder", "folder_id", folder.ID, "profile_id", profile.ID)
	}

	return nil
}
