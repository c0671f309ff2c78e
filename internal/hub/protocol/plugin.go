package protocol

import "encoding/json"

// Plugin protocol discriminants, inbound (plugin -> hub).
const (
	PluginInRegisterPlugin     = "RegisterPlugin"
	PluginInGetProperties      = "GetProperties"
	PluginInSetProperties      = "SetProperties"
	PluginInSendToInspector    = "SendToInspector"
	PluginInOpenUrl            = "OpenUrl"
	PluginInGetTileProperties  = "GetTileProperties"
	PluginInSetTileProperties  = "SetTileProperties"
	PluginInSetTileIcon        = "SetTileIcon"
	PluginInSetTileLabel       = "SetTileLabel"
	PluginInGetVisibleTiles    = "GetVisibleTiles"
)

// Plugin protocol discriminants, outbound (hub -> plugin).
const (
	PluginOutRegistered         = "Registered"
	PluginOutProperties         = "Properties"
	PluginOutTileClicked        = "TileClicked"
	PluginOutRecvFromInspector  = "RecvFromInspector"
	PluginOutInspectorOpen      = "InspectorOpen"
	PluginOutInspectorClose     = "InspectorClose"
	PluginOutDeepLink           = "DeepLink"
	PluginOutTileProperties     = "TileProperties"
	PluginOutVisibleTiles       = "VisibleTiles"
)

// RegisterPlugin binds a plugin session to a manifest id.
type RegisterPlugin struct {
	PluginID string `json:"plugin_id"`
}

// SetProperties upserts the plugin's own opaque property object.
type SetProperties struct {
	Properties json.RawMessage `json:"properties"`
	Partial    bool            `json:"partial"`
}

// SendToInspector forwards a plugin-authored message to the open
// inspector for ctx.
type SendToInspector struct {
	Ctx     InspectorContext `json:"ctx"`
	Message json.RawMessage  `json:"message"`
}

// OpenUrl carries a URL from a plugin. The hub routes it through
// deeplink.Dispatch: a tilepad://deep-link/{plugin_id}/... URL is
// forwarded to that plugin as DeepLink, and any other URL is dropped
// with a warning. The URL is not opened in a browser.
type OpenUrl struct {
	URL string `json:"url"`
}

// GetTileProperties requests a tile's properties on behalf of the
// plugin that owns it.
type GetTileProperties struct {
	TileID string `json:"tile_id"`
}

// SetTileProperties mutates a tile's properties; partial merges
// top-level keys, full replaces.
type SetTileProperties struct {
	TileID     string          `json:"tile_id"`
	Properties json.RawMessage `json:"properties"`
	Partial    bool            `json:"partial"`
}

// SetTileIcon sets a tile's icon with Program-kind (plugin-authored,
// non-sticky) semantics; the plugin protocol has no way to express
// User/Reset kind — those are hub/UI-only operations.
type SetTileIcon struct {
	TileID string          `json:"tile_id"`
	Icon   json.RawMessage `json:"icon"`
}

// SetTileLabel sets a tile's label with Program-kind semantics.
type SetTileLabel struct {
	TileID string          `json:"tile_id"`
	Label  string          `json:"label"`
}

// Registered confirms a successful RegisterPlugin.
type Registered struct {
	PluginID string `json:"plugin_id"`
}

// Properties replies to GetProperties.
type Properties struct {
	Properties json.RawMessage `json:"properties"`
}

// PluginTileClicked notifies a plugin that one of its tiles was
// pressed on a device.
type PluginTileClicked struct {
	Ctx        InspectorContext `json:"ctx"`
	Properties json.RawMessage  `json:"properties"`
}

// RecvFromInspector forwards a UI-authored inspector message to the
// owning plugin.
type RecvFromInspector struct {
	Ctx     InspectorContext `json:"ctx"`
	Message json.RawMessage  `json:"message"`
}

// InspectorOpen/InspectorClose notify the plugin that the UI opened or
// closed the inspector pane for ctx.
type InspectorOpen struct {
	Ctx InspectorContext `json:"ctx"`
}

type InspectorClose struct {
	Ctx InspectorContext `json:"ctx"`
}

// DeepLink forwards a parsed tilepad:// deep-link to the named plugin.
type DeepLink struct {
	Ctx      InspectorContext `json:"ctx"`
	URL      string           `json:"url"`
	Host     string           `json:"host"`
	Path     string           `json:"path"`
	Query    string           `json:"query"`
	Fragment string           `json:"fragment"`
}

// TileProperties replies to GetTileProperties.
type TileProperties struct {
	TileID     string          `json:"tile_id"`
	Properties json.RawMessage `json:"properties"`
}

// VisibleTiles replies to GetVisibleTiles with every tile currently
// owned by the plugin across all folders.
type VisibleTiles struct {
	Tiles []TileView `json:"tiles"`
}
