// Package inspector routes messages among the UI inspector pane, the
// owning plugin, and the tile identity context. Grounded on
// original_source/src-tauri/src/plugin/internal/actions.rs's ctx
// plumbing and utils/inspector.rs's bridge-script injection (the HTML
// injection itself lives in httpapi; this package is the message
// routing half of §4.5).
package inspector

import (
	"encoding/json"
	"log/slog"

	"github.com/tilepad/hub/internal/hub/eventbus"
	"github.com/tilepad/hub/internal/hub/protocol"
)

// PluginSender looks up the live session registered for a plugin id.
type PluginSender interface {
	Send(pluginID string, frame any) bool
}

// Bridge implements §4.5's three routing rules.
type Bridge struct {
	plugins PluginSender
	bus     eventbus.Emitter
}

// New constructs an inspector bridge.
func New(plugins PluginSender, bus eventbus.Emitter) *Bridge {
	return &Bridge{plugins: plugins, bus: bus}
}

// SendToPlugin routes a UI-originated message to the plugin session
// registered for ctx.PluginID. Dropped with a warning (not an error to
// the caller) if no session is registered — the plugin may be stopped.
func (b *Bridge) SendToPlugin(ctx protocol.InspectorContext, body json.RawMessage) {
	frame := protocol.Frame(protocol.PluginOutRecvFromInspector, protocol.RecvFromInspector{Ctx: ctx, Message: body})
	if !b.plugins.Send(ctx.PluginID, frame) {
		slog.Warn("[Inspector] dropped UI message, plugin not registered", "plugin_id", ctx.PluginID)
	}
}

// RecvFromPlugin is called when a plugin sends SendToInspector; it is
// republished on the event bus for the UI to match against ctx.
func (b *Bridge) RecvFromPlugin(ctx protocol.InspectorContext, body json.RawMessage) {
	b.bus.Emit(eventbus.TopicPluginRecvMessage, protocol.RecvFromInspector{Ctx: ctx, Message: body})
}

// Open fans out OpenInspector to the owning plugin (best-effort) so it
// can track which tile currently has an open inspector.
func (b *Bridge) Open(ctx protocol.InspectorContext) {
	frame := protocol.Frame(protocol.PluginOutInspectorOpen, protocol.InspectorOpen{Ctx: ctx})
	b.plugins.Send(ctx.PluginID, frame)
	b.bus.Emit(eventbus.TopicPluginInspectorOpen, ctx)
}

// Close fans out CloseInspector to the owning plugin (best-effort).
func (b *Bridge) Close(ctx protocol.InspectorContext) {
	frame := protocol.Frame(protocol.PluginOutInspectorClose, protocol.InspectorClose{Ctx: ctx})
	b.plugins.Send(ctx.PluginID, frame)
	b.bus.Emit(eventbus.TopicPluginInspectorClose, ctx)
}
