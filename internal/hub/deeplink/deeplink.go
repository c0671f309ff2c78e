// Package deeplink parses the tilepad://deep-link/{plugin_id}/...
// URL scheme and forwards it to the named plugin session. Supplements
// spec.md's one-line mention with the scheme detail from
// original_source.
package deeplink

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/tilepad/hub/internal/hub/protocol"
)

// PluginSender delivers a frame to a plugin's live session.
type PluginSender interface {
	Send(pluginID string, frame any) bool
}

// Dispatch parses raw and, if it names a known plugin id as its first
// path segment, forwards DeepLink{ctx} to that plugin. Malformed or
// unrecognized links are dropped with a warning, mirroring the
// tolerant-routing rule used elsewhere for inspector/UI fan-out.
func Dispatch(plugins PluginSender, raw string) {
	u, err := url.Parse(raw)
	if err != nil {
		slog.Warn("[DeepLink] failed to parse deep link", "url", raw, "error", err)
		return
	}

	pluginID, path := splitPluginID(u)
	if pluginID == "" {
		slog.Warn("[DeepLink] deep link missing plugin id segment", "url", raw)
		return
	}

	ctx := protocol.InspectorContext{PluginID: pluginID}
	frame := protocol.Frame(protocol.PluginOutDeepLink, protocol.DeepLink{
		Ctx: ctx, URL: raw, Host: u.Host, Path: path, Query: u.RawQuery, Fragment: u.Fragment,
	})
	if !plugins.Send(pluginID, frame) {
		slog.Warn("[DeepLink] dropped, plugin not registered", "plugin_id", pluginID)
	}
}

// splitPluginID extracts {plugin_id} from tilepad://deep-link/{plugin_id}/...
func splitPluginID(u *url.URL) (pluginID, rest string) {
	path := strings.TrimPrefix(u.Path, "/")
	if u.Host != "deep-link" {
		return "", ""
	}
	parts := strings.SplitN(path, "/", 2)
	if len(parts) == 0 || parts[0] == "" {
		return "", ""
	}
	pluginID = parts[0]
	if len(parts) > 1 {
		rest = "/" + parts[1]
	}
	return pluginID, rest
}
