// Package protocol defines the hub's two wire-protocol tagged unions
// (device and plugin) and the inspector context tuple that round-trips
// between UI, plugin, and hub. Grounded on original_source's
// device/protocol.rs and plugin/protocol.rs, expanded to the full
// message table; modeled as raw-JSON envelopes per §9's "dynamic
// message unions" guidance so unknown discriminants are logged and
// dropped rather than fatal.
package protocol

import "encoding/json"

// Envelope is the shape every inbound/outbound frame shares: a type
// discriminant plus an opaque body. Decoding into envelope first lets
// callers dispatch on Type before unmarshaling the rest.
type Envelope struct {
	Type string          `json:"type"`
	Body json.RawMessage `json:"-"`
}

// rawEnvelope captures the type field while keeping the whole object
// available for a second unmarshal pass into a concrete payload.
type rawEnvelope struct {
	Type string `json:"type"`
}

// DecodeType extracts just the type discriminant from a raw frame.
func DecodeType(data []byte) (string, error) {
	var r rawEnvelope
	if err := json.Unmarshal(data, &r); err != nil {
		return "", err
	}
	return r.Type, nil
}

// InspectorContext is the tuple that travels unmodified between UI,
// plugin, and hub, identifying which tile instance an inspector
// exchange concerns.
type InspectorContext struct {
	DeviceID  string `json:"device_id"`
	PluginID  string `json:"plugin_id"`
	ActionID  string `json:"action_id"`
	TileID    string `json:"tile_id"`
	ProfileID string `json:"profile_id"`
	FolderID  string `json:"folder_id"`
}

// Encode marshals a typed payload with its discriminant injected as
// the "type" field, matching how the rest of the wire protocol is
// shaped (a flat JSON object, not a nested envelope).
func Encode(msgType string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	typeJSON, err := json.Marshal(msgType)
	if err != nil {
		return nil, err
	}
	m["type"] = typeJSON
	return json.Marshal(m)
}

// Frame splices a "type" discriminant alongside payload's own fields
// into one flat object, the shape every outbound message takes on the
// wire. Sessions marshal the returned value directly.
func Frame(msgType string, payload any) map[string]any {
	out := map[string]any{"type": msgType}
	data, err := json.Marshal(payload)
	if err != nil {
		return out
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return out
	}
	for k, v := range m {
		out[k] = v
	}
	return out
}
