// Package httpapi is the hub's single listening surface: WebSocket
// upgrades for device and plugin sessions, static asset serving, and a
// handful of control endpoints. Grounded in shape on
// internal/ui/server/server.go (stdlib net/http.ServeMux, Start/Stop
// pair); the WebSocket upgrader comes from gorilla/websocket as used
// elsewhere in the pack (see DESIGN.md).
package httpapi

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tilepad/hub/internal/hub/action"
	"github.com/tilepad/hub/internal/hub/config"
	"github.com/tilepad/hub/internal/hub/devices"
	"github.com/tilepad/hub/internal/hub/icons"
	"github.com/tilepad/hub/internal/hub/inspector"
	"github.com/tilepad/hub/internal/hub/plugins"
	"github.com/tilepad/hub/internal/hub/store"
	"github.com/tilepad/hub/internal/hub/tiles"
)

// Server is the hub's HTTP/WebSocket listening surface.
type Server struct {
	cfg *config.Config

	store     *store.Store
	devices   *devices.Registry
	plugins   *plugins.Registry
	tiles     *tiles.Service
	icons     *icons.Manager
	inspector *inspector.Bridge
	action    *action.Dispatcher

	httpServer *http.Server
	upgrader   websocket.Upgrader
}

// New constructs the HTTP server and registers every route.
func New(cfg *config.Config, st *store.Store, dev *devices.Registry, plg *plugins.Registry, til *tiles.Service, icn *icons.Manager, insp *inspector.Bridge, disp *action.Dispatcher) *Server {
	s := &Server{
		cfg:       cfg,
		store:     st,
		devices:   dev,
		plugins:   plg,
		tiles:     til,
		icons:     icn,
		inspector: insp,
		action:    disp,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /devices/ws", s.handleDeviceWS)
	mux.HandleFunc("GET /plugins/ws", s.handlePluginWS)
	mux.HandleFunc("GET /plugins/{plugin_id}/assets/{path...}", s.handlePluginAsset)
	mux.HandleFunc("GET /icons/{pack_id}/assets/{path...}", s.handleIconAsset)
	mux.HandleFunc("GET /uploaded-icons/{path...}", s.handleUploadedIcon)
	mux.HandleFunc("GET /fonts/{family}", s.handleFont)
	mux.HandleFunc("GET /server/details", s.handleServerDetails)
	mux.HandleFunc("POST /dev/reload_plugins", s.handleReloadPlugins)

	addr := net.JoinHostPort(cfg.BindAddr, strconv.Itoa(cfg.Port))
	s.httpServer = &http.Server{Addr: addr, Handler: mux}
	return s
}

// Start begins listening for HTTP/WebSocket connections.
func (s *Server) Start() error {
	slog.Info("[HTTPAPI] starting server", "addr", s.httpServer.Addr)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("[HTTPAPI] server error", "error", err)
		}
	}()
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// isLoopback reports whether r's remote address is loopback, used by
// the plugins/ws and dev/reload_plugins endpoints per §6's access column.
func isLoopback(r *http.Request) bool {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
