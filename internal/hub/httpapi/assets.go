package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// inspectorBridgeScript is injected into every served plugin HTML
// document's <head>, mirroring inject_property_inspector's
// <script>/<style> splice. Kept minimal: it relays postMessage traffic
// between the embedded inspector pane and the plugin's own WebSocket
// session, which is out of this server's process.
const inspectorBridgeScript = `<script>
window.TilepadInspector = {
  send(message) { window.parent.postMessage({ tilepad: true, message }, "*"); },
  onMessage(handler) {
    window.addEventListener("message", (event) => {
      if (event.data && event.data.tilepad) handler(event.data.message);
    });
  },
};
</script>`

const inspectorBridgeStyle = `<style>
body { margin: 0; font-family: system-ui, sans-serif; }
</style>`

// handlePluginAsset serves a file from a plugin's directory, injecting
// the inspector bridge into HTML documents' <head>.
func (s *Server) handlePluginAsset(w http.ResponseWriter, r *http.Request) {
	pluginID := r.PathValue("plugin_id")
	relPath := r.PathValue("path")

	plugin, ok := s.plugins.Get(pluginID)
	if !ok {
		http.NotFound(w, r)
		return
	}

	fullPath, ok := safeJoin(plugin.Manifest.Dir, relPath)
	if !ok || !fileExists(fullPath) {
		http.NotFound(w, r)
		return
	}

	if !strings.HasSuffix(strings.ToLower(fullPath), ".html") {
		http.ServeFile(w, r, fullPath)
		return
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		slog.Error("[HTTPAPI] failed to read plugin asset", "path", fullPath, "error", err)
		http.Error(w, "read failed", http.StatusInternalServerError)
		return
	}
	injected := bytes.Replace(data, []byte("<head>"), []byte("<head>"+inspectorBridgeScript+inspectorBridgeStyle), 1)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(injected)
}

// handleIconAsset serves a file from a loaded icon pack's directory.
func (s *Server) handleIconAsset(w http.ResponseWriter, r *http.Request) {
	packID := r.PathValue("pack_id")
	relPath := r.PathValue("path")

	if !s.icons.Loaded(packID) {
		http.NotFound(w, r)
		return
	}

	fullPath, ok := safeJoin(filepath.Join(s.cfg.IconDir, packID), relPath)
	if !ok || !fileExists(fullPath) {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, fullPath)
}

// handleUploadedIcon serves a user-uploaded icon file.
func (s *Server) handleUploadedIcon(w http.ResponseWriter, r *http.Request) {
	relPath := r.PathValue("path")
	fullPath, ok := safeJoin(s.cfg.UploadedIconDir, relPath)
	if !ok || !fileExists(fullPath) {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, fullPath)
}

// handleFont serves a font file matching the family and bold/italic
// query parameters, e.g. /fonts/Inter?bold&italic.
func (s *Server) handleFont(w http.ResponseWriter, r *http.Request) {
	family := r.PathValue("family")
	_, bold := r.URL.Query()["bold"]
	_, italic := r.URL.Query()["italic"]

	name := family
	switch {
	case bold && italic:
		name += "-BoldItalic"
	case bold:
		name += "-Bold"
	case italic:
		name += "-Italic"
	default:
		name += "-Regular"
	}

	for _, ext := range []string{".ttf", ".otf"} {
		fullPath := filepath.Join(s.cfg.FontDir, name+ext)
		if fileExists(fullPath) {
			http.ServeFile(w, r, fullPath)
			return
		}
	}
	http.NotFound(w, r)
}

// handleServerDetails answers LAN discovery probes.
func (s *Server) handleServerDetails(w http.ResponseWriter, r *http.Request) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "tilepad"
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"identifier": "TILEPAD_CONTROLLER_SERVER",
		"hostname":   hostname,
	})
}

// handleReloadPlugins rescans the plugin directories. Requires
// developer_mode (Settings) and a loopback caller.
func (s *Server) handleReloadPlugins(w http.ResponseWriter, r *http.Request) {
	if !isLoopback(r) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		http.Error(w, "failed to read settings", http.StatusInternalServerError)
		return
	}
	if !settings.DeveloperMode {
		http.Error(w, "developer mode disabled", http.StatusForbidden)
		return
	}

	s.plugins.LoadManifests(s.cfg.CorePluginDir, s.cfg.UserPluginDir)
	w.WriteHeader(http.StatusNoContent)
}

// safeJoin joins base and rel, rejecting any result that escapes base
// via ".." traversal.
func safeJoin(base, rel string) (string, bool) {
	cleanRel := filepath.Clean("/" + rel)
	full := filepath.Join(base, cleanRel)
	if !strings.HasPrefix(full, filepath.Clean(base)+string(filepath.Separator)) && full != filepath.Clean(base) {
		return "", false
	}
	return full, true
}
