package protocol

import (
	"encoding/json"
	"testing"
)

func TestDecodeTypeExtractsDiscriminant(t *testing.T) {
	raw := []byte(`{"type":"TileClicked","tile_id":"t1"}`)
	got, err := DecodeType(raw)
	if err != nil {
		t.Fatalf("DecodeType() error = %v", err)
	}
	if got != "TileClicked" {
		t.Errorf("DecodeType() = %q, want TileClicked", got)
	}
}

func TestDecodeTypeRejectsMalformedJSON(t *testing.T) {
	if _, err := DecodeType([]byte(`not json`)); err == nil {
		t.Error("DecodeType() should error on malformed JSON")
	}
}

func TestFrameSplicesTypeAlongsidePayloadFields(t *testing.T) {
	frame := Frame(DeviceOutTiles, Tiles{Folder: "f1", Tiles: []TileView{{ID: "t1"}}})

	if frame["type"] != DeviceOutTiles {
		t.Errorf("frame[type] = %v, want %q", frame["type"], DeviceOutTiles)
	}
	if frame["folder"] != "f1" {
		t.Errorf("frame[folder] = %v, want f1", frame["folder"])
	}

	data, err := json.Marshal(frame)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var round map[string]any
	if err := json.Unmarshal(data, &round); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if round["type"] != string(DeviceOutTiles) {
		t.Errorf("round-tripped type = %v, want %q", round["type"], DeviceOutTiles)
	}
}

func TestEncodeInjectsTypeField(t *testing.T) {
	data, err := Encode(PluginOutRegistered, Registered{PluginID: "pl.a"})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if m["type"] != PluginOutRegistered {
		t.Errorf("m[type] = %v, want %q", m["type"], PluginOutRegistered)
	}
	if m["plugin_id"] != "pl.a" {
		t.Errorf("m[plugin_id] = %v, want pl.a", m["plugin_id"])
	}
}
