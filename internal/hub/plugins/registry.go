package plugins

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tilepad/hub/internal/hub/eventbus"
	"github.com/tilepad/hub/internal/hub/protocol"
	"github.com/tilepad/hub/internal/hub/store"
	"github.com/tilepad/hub/internal/hub/transport"
)

// Status mirrors the threshold-based liveness states the teacher's
// mediaclient pool assigns to a backend (mediaclient/pool.go); here it
// tracks a plugin's process/session liveness instead of gRPC health.
type Status string

const (
	StatusStopped Status = "Stopped"
	StatusRunning Status = "Running"
	StatusError   Status = "Error"
)

// Plugin is a loaded manifest plus its current liveness status.
type Plugin struct {
	Manifest Manifest
	Status   Status
}

var ErrUnknownPlugin = errors.New("plugins: unknown plugin")

// Registry tracks loaded plugin manifests and live plugin sessions.
type Registry struct {
	mu sync.Mutex

	byID          map[string]*Plugin            // plugin_id -> plugin
	sessionPlugin map[string]string              // session_id -> plugin_id, once registered
	pluginSession map[string]string              // plugin_id -> session_id
	sessions      map[string]*transport.Session // session_id -> session

	store *store.Store
	bus   eventbus.Emitter
}

// New constructs an empty plugin registry.
func New(st *store.Store, bus eventbus.Emitter) *Registry {
	return &Registry{
		byID:          make(map[string]*Plugin),
		sessionPlugin: make(map[string]string),
		pluginSession: make(map[string]string),
		sessions:      make(map[string]*transport.Session),
		store:         st,
		bus:           bus,
	}
}

// LoadManifests scans core and user plugin directories and replaces
// the registry's manifest set. Live sessions are left untouched.
func (r *Registry) LoadManifests(coreDir, userDir string) {
	manifests := append(LoadDir(coreDir), LoadDir(userDir)...)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID = make(map[string]*Plugin, len(manifests))
	for _, m := range manifests {
		status := StatusStopped
		if _, ok := r.pluginSession[m.Plugin.ID]; ok {
			status = StatusRunning
		}
		r.byID[m.Plugin.ID] = &Plugin{Manifest: m, Status: status}
	}
	slog.Info("[Plugins] loaded manifests", "count", len(r.byID))
}

// Get returns the loaded plugin for an id.
func (r *Registry) Get(pluginID string) (*Plugin, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[pluginID]
	return p, ok
}

// List returns every loaded plugin.
func (r *Registry) List() []*Plugin {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Plugin, 0, len(r.byID))
	for _, p := range r.byID {
		out = append(out, p)
	}
	return out
}

// AddSession registers a newly connected, unregistered plugin session.
func (r *Registry) AddSession(s *transport.Session) {
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
}

// RemoveSession tears down a plugin session: removed from both maps,
// per §4.3's state machine ("Registered --close--> removed").
func (r *Registry) RemoveSession(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
	pluginID, ok := r.sessionPlugin[sessionID]
	if !ok {
		return
	}
	delete(r.sessionPlugin, sessionID)
	if r.pluginSession[pluginID] == sessionID {
		delete(r.pluginSession, pluginID)
		if p, ok := r.byID[pluginID]; ok {
			p.Status = StatusStopped
		}
	}
}

// Register binds a session to a plugin_id. An unknown plugin_id is
// ignored with a debug log (session stays Connected, not an error). A
// second successful registration for the same plugin_id evicts the
// previous session.
func (r *Registry) Register(sessionID, pluginID string) bool {
	r.mu.Lock()
	plugin, known := r.byID[pluginID]
	if !known {
		r.mu.Unlock()
		slog.Debug("[Plugins] RegisterPlugin for unknown plugin id, ignored", "plugin_id", pluginID)
		return false
	}

	if oldSessionID, ok := r.pluginSession[pluginID]; ok && oldSessionID != sessionID {
		if oldSess, ok := r.sessions[oldSessionID]; ok {
			delete(r.sessionPlugin, oldSessionID)
			r.mu.Unlock()
			oldSess.Close()
			r.mu.Lock()
		}
	}

	if oldPluginID, ok := r.sessionPlugin[sessionID]; ok && oldPluginID != pluginID {
		if r.pluginSession[oldPluginID] == sessionID {
			delete(r.pluginSession, oldPluginID)
			if oldPlugin, ok := r.byID[oldPluginID]; ok {
				oldPlugin.Status = StatusStopped
			}
		}
	}

	r.sessionPlugin[sessionID] = pluginID
	r.pluginSession[pluginID] = sessionID
	plugin.Status = StatusRunning
	sess, sessOK := r.sessions[sessionID]
	r.mu.Unlock()

	if sessOK {
		sess.Send(protocol.Frame(protocol.PluginOutRegistered, protocol.Registered{PluginID: pluginID}))
	}
	return true
}

// PluginIDForSession returns the plugin id a session registered as, if any.
func (r *Registry) PluginIDForSession(sessionID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.sessionPlugin[sessionID]
	return id, ok
}

// SessionByPlugin returns the live session registered for a plugin id.
func (r *Registry) SessionByPlugin(pluginID string) (*transport.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sessionID, ok := r.pluginSession[pluginID]
	if !ok {
		return nil, false
	}
	s, ok := r.sessions[sessionID]
	return s, ok
}

// Send delivers frame to the live session registered for pluginID.
// Returns false (dropped, not an error) if no session is registered.
func (r *Registry) Send(pluginID string, frame any) bool {
	sess, ok := r.SessionByPlugin(pluginID)
	if !ok {
		return false
	}
	sess.Send(frame)
	return true
}

// GetProperties returns the opaque property object stored for a plugin.
func (r *Registry) GetProperties(ctx context.Context, pluginID string) (json.RawMessage, error) {
	return r.store.GetPluginProperties(ctx, pluginID)
}

// SetProperties upserts a plugin's property object; partial merges
// top-level keys, full replaces.
func (r *Registry) SetProperties(ctx context.Context, pluginID string, properties json.RawMessage, partial bool) error {
	if !partial {
		return r.store.SetPluginProperties(ctx, pluginID, properties)
	}

	current, err := r.store.GetPluginProperties(ctx, pluginID)
	if err != nil {
		return fmt.Errorf("plugins: read properties for partial update: %w", err)
	}
	merged, err := mergeTopLevel(current, properties)
	if err != nil {
		return fmt.Errorf("plugins: merge properties: %w", err)
	}
	return r.store.SetPluginProperties(ctx, pluginID, merged)
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
