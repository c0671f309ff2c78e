package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/doug-martin/goqu/v9"
)

// GetPluginProperties returns the opaque properties object for a
// plugin, or an empty object if none has been set.
func (s *Store) GetPluginProperties(ctx context.Context, pluginID string) (json.RawMessage, error) {
	var row struct {
		Properties string `db:"properties"`
	}
	found, err := s.g.From("plugin_properties").Where(goqu.C("plugin_id").Eq(pluginID)).ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("store: get plugin properties: %w", err)
	}
	if !found {
		return json.RawMessage("{}"), nil
	}
	return json.RawMessage(row.Properties), nil
}

// SetPluginProperties upserts the full properties object for a plugin
// id, replacing any prior value. This mirrors the original source's
// INSERT ... ON CONFLICT DO UPDATE upsert.
func (s *Store) SetPluginProperties(ctx context.Context, pluginID string, properties json.RawMessage) error {
	ds := s.g.Insert("plugin_properties").
		Rows(goqu.Record{"plugin_id": pluginID, "properties": string(orEmptyJSON(properties))}).
		OnConflict(goqu.DoUpdate("plugin_id", goqu.Record{"properties": string(orEmptyJSON(properties))}))
	if _, err := ds.Executor().ExecContext(ctx); err != nil {
		return fmt.Errorf("store: upsert plugin properties: %w", err)
	}
	return nil
}
