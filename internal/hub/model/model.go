// Package model defines the hub's persisted entities.
package model

import "encoding/json"

// Profile is a top-level grouping of folders.
type Profile struct {
	ID      string          `db:"id" goqu:"skipupdate" json:"id"`
	Name    string          `db:"name" json:"name"`
	Default bool            `db:"is_default" json:"default"`
	Active  bool            `db:"active" json:"active"`
	Order   int             `db:"order_index" json:"order"`
	Config  json.RawMessage `db:"config" json:"config"`
}

// Folder belongs to exactly one Profile.
type Folder struct {
	ID        string          `db:"id" goqu:"skipupdate" json:"id"`
	ProfileID string          `db:"profile_id" json:"profile_id"`
	Name      string          `db:"name" json:"name"`
	Default   bool            `db:"is_default" json:"default"`
	Order     int             `db:"order_index" json:"order"`
	Config    json.RawMessage `db:"config" json:"config"`
}

// Device is a remote controller bound to a profile/folder.
type Device struct {
	ID              string `db:"id" goqu:"skipupdate" json:"id"`
	Name            string `db:"name" json:"name"`
	AccessToken     string `db:"access_token" json:"-"`
	ProfileID       string `db:"profile_id" json:"profile_id"`
	FolderID        string `db:"folder_id" json:"folder_id"`
	Order           int    `db:"order_index" json:"order"`
	CreatedAt       int64  `db:"created_at" json:"created_at"`
	LastConnectedAt int64  `db:"last_connected_at" json:"last_connected_at"`
}

// LabelAlign is the text alignment of a tile label.
type LabelAlign string

const (
	LabelAlignBottom LabelAlign = "Bottom"
	LabelAlignMiddle LabelAlign = "Middle"
	LabelAlignTop    LabelAlign = "Top"
)

// TileLabel is the user-visible caption on a tile.
type TileLabel struct {
	Enabled  bool       `json:"enabled"`
	Label    string     `json:"label"`
	FontSize int        `json:"font_size"`
	Color    string     `json:"color"`
	Align    LabelAlign `json:"align"`
	Outline  bool       `json:"outline"`
	Bold     bool       `json:"bold"`
	Italic   bool       `json:"italic"`
}

// IconKind distinguishes where a tile icon came from.
type IconKind string

const (
	IconKindNone       IconKind = "None"
	IconKindPluginIcon IconKind = "PluginIcon"
	IconKindIconPack   IconKind = "IconPack"
	IconKindUploaded   IconKind = "Uploaded"
)

// TileIcon identifies the icon currently shown on a tile.
type TileIcon struct {
	Kind  IconKind `json:"kind"`
	Value string   `json:"value,omitempty"`
}

// TileIconOptions are cosmetic icon rendering overrides, no sticky bit.
type TileIconOptions struct {
	IconPadding  int    `json:"icon_padding"`
	BackgroundColor string `json:"background_color"`
}

// UserFlags marks config fields as user-authored ("sticky"): do not
// overwrite from plugin-side updates once set.
type UserFlags struct {
	Icon  bool `json:"icon"`
	Label bool `json:"label"`
}

// TileConfig is the full per-tile presentation config.
type TileConfig struct {
	Icon        TileIcon        `json:"icon"`
	IconOptions TileIconOptions `json:"icon_options"`
	Label       TileLabel       `json:"label"`
	UserFlags   UserFlags       `json:"user_flags"`
}

// Tile is a single cell in a folder's grid, bound to one plugin action.
type Tile struct {
	ID         string          `db:"id" goqu:"skipupdate" json:"id"`
	FolderID   string          `db:"folder_id" json:"folder_id"`
	PluginID   string          `db:"plugin_id" json:"plugin_id"`
	ActionID   string          `db:"action_id" json:"action_id"`
	Row        int             `db:"row" json:"row"`
	Column     int             `db:"column" json:"column"`
	Order      int             `db:"order_index" json:"order"`
	Config     TileConfig      `db:"config" json:"config"`
	Properties json.RawMessage `db:"properties" json:"properties"`
}

// UpdateKind selects sticky-bit semantics for a tile config mutation.
type UpdateKind string

const (
	UpdateKindUser    UpdateKind = "User"
	UpdateKindProgram UpdateKind = "Program"
	UpdateKindReset   UpdateKind = "Reset"
)

// DeviceRequest is a transient pending-approval record.
type DeviceRequest struct {
	ID          string `json:"id"`
	SessionID   string `json:"session_id"`
	SocketAddr  string `json:"socket_addr"`
	DeviceName  string `json:"device_name"`
}

// PluginProperties is an opaque per-plugin JSON blob.
type PluginProperties struct {
	PluginID   string          `db:"plugin_id" goqu:"skipupdate" json:"plugin_id"`
	Properties json.RawMessage `db:"properties" json:"properties"`
}

// Settings is the singleton settings row (id always 1).
type Settings struct {
	ID                 int    `db:"id" json:"-"`
	Language           string `db:"language" json:"language"`
	DeviceName         string `db:"device_name" json:"device_name"`
	DeveloperMode      bool   `db:"developer_mode" json:"developer_mode"`
	Port               int    `db:"port" json:"port"`
	StartAutomatically bool   `db:"start_automatically" json:"start_automatically"`
	MinimizeTray       bool   `db:"minimize_tray" json:"minimize_tray"`
	StartMinimized     bool   `db:"start_minimized" json:"start_minimized"`
}

// DefaultSettings mirrors the original source's SettingsConfig defaults.
func DefaultSettings(hostname string) Settings {
	return Settings{
		ID:                 1,
		Language:           "en",
		DeviceName:         hostname,
		DeveloperMode:      false,
		Port:               8532,
		StartAutomatically: false,
		MinimizeTray:       false,
		StartMinimized:     true,
	}
}
