package protocol

import "encoding/json"

// Device protocol discriminants, inbound (device -> hub).
const (
	DeviceInRequestApproval  = "RequestApproval"
	DeviceInAuthenticate     = "Authenticate"
	DeviceInRequestTiles     = "RequestTiles"
	DeviceInTileClicked      = "TileClicked"
	DeviceInRecvFromDisplay  = "RecvFromDisplay"
)

// Device protocol discriminants, outbound (hub -> device).
const (
	DeviceOutDeclined            = "Declined"
	DeviceOutApproved            = "Approved"
	DeviceOutRevoked              = "Revoked"
	DeviceOutAuthenticated        = "Authenticated"
	DeviceOutInvalidAccessToken   = "InvalidAccessToken"
	DeviceOutTiles                = "Tiles"
	DeviceOutRecvFromPlugin       = "RecvFromPlugin"
)

// RequestApproval is sent by an unauthenticated device session asking
// to be approved.
type RequestApproval struct {
	Name string `json:"name"`
}

// Authenticate carries the device's previously issued access token.
type Authenticate struct {
	AccessToken string `json:"access_token"`
}

// TileClicked reports a device-side tile press.
type TileClicked struct {
	TileID string `json:"tile_id"`
}

// RecvFromDisplay forwards an inspector-context-addressed message
// originating from the device's own display surface.
type RecvFromDisplay struct {
	Ctx     InspectorContext `json:"ctx"`
	Message json.RawMessage  `json:"message"`
}

// Approved is the terminal success reply to RequestApproval.
type Approved struct {
	DeviceID    string `json:"device_id"`
	AccessToken string `json:"access_token"`
}

// Authenticated confirms a successful Authenticate.
type Authenticated struct {
	DeviceID string `json:"device_id"`
}

// TileView is one tile as rendered to a device.
type TileView struct {
	ID         string          `json:"id"`
	PluginID   string          `json:"plugin_id"`
	ActionID   string          `json:"action_id"`
	Row        int             `json:"row"`
	Column     int             `json:"column"`
	Config     json.RawMessage `json:"config"`
	Properties json.RawMessage `json:"properties"`
}

// Tiles is pushed to a device whenever its viewed folder's contents
// change, listing tiles in (row, column) order.
type Tiles struct {
	Folder string     `json:"folder"`
	Tiles  []TileView `json:"tiles"`
}

// RecvFromPlugin forwards a plugin-originated inspector message to the
// device that opened the inspector.
type RecvFromPlugin struct {
	Ctx     InspectorContext `json:"ctx"`
	Message json.RawMessage  `json:"message"`
}
