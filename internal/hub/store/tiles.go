package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/tilepad/hub/internal/hub/model"
)

type tileRow struct {
	ID         string `db:"id"`
	FolderID   string `db:"folder_id"`
	PluginID   string `db:"plugin_id"`
	ActionID   string `db:"action_id"`
	Row        int    `db:"row"`
	Column     int    `db:"column"`
	Order      int    `db:"order_index"`
	Config     string `db:"config"`
	Properties string `db:"properties"`
}

func (r tileRow) toModel() (model.Tile, error) {
	t := model.Tile{
		ID: r.ID, FolderID: r.FolderID, PluginID: r.PluginID, ActionID: r.ActionID,
		Row: r.Row, Column: r.Column, Order: r.Order, Properties: json.RawMessage(r.Properties),
	}
	if err := json.Unmarshal([]byte(r.Config), &t.Config); err != nil {
		return model.Tile{}, fmt.Errorf("store: decode tile config: %w", err)
	}
	return t, nil
}

func tileRowFromModel(t model.Tile) (goqu.Record, error) {
	cfg, err := json.Marshal(t.Config)
	if err != nil {
		return nil, fmt.Errorf("store: encode tile config: %w", err)
	}
	return goqu.Record{
		"id": t.ID, "folder_id": t.FolderID, "plugin_id": t.PluginID, "action_id": t.ActionID,
		"row": t.Row, "column": t.Column, "order_index": t.Order,
		"config": string(cfg), "properties": string(orEmptyJSON(t.Properties)),
	}, nil
}

// GetTile returns a tile by id.
func (s *Store) GetTile(ctx context.Context, id string) (model.Tile, error) {
	var row tileRow
	found, err := s.g.From("tiles").Where(goqu.C("id").Eq(id)).ScanStructContext(ctx, &row)
	if err != nil {
		return model.Tile{}, fmt.Errorf("store: get tile: %w", err)
	}
	if !found {
		return model.Tile{}, ErrNotFound
	}
	return row.toModel()
}

// ListTilesByFolder returns every tile in a folder, ordered by
// (row, column) — the authoritative grid order; order_index is
// preserved on the row but never consulted here.
func (s *Store) ListTilesByFolder(ctx context.Context, folderID string) ([]model.Tile, error) {
	var rows []tileRow
	err := s.g.From("tiles").
		Where(goqu.C("folder_id").Eq(folderID)).
		Order(goqu.C("row").Asc(), goqu.C("column").Asc()).
		ScanStructsContext(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("store: list tiles: %w", err)
	}
	out := make([]model.Tile, 0, len(rows))
	for _, r := range rows {
		t, err := r.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// AllTiles returns every tile across every folder, used by the icon
// manager's orphaned-upload reference check.
func (s *Store) AllTiles(ctx context.Context) ([]model.Tile, error) {
	var rows []tileRow
	if err := s.g.From("tiles").ScanStructsContext(ctx, &rows); err != nil {
		return nil, fmt.Errorf("store: list all tiles: %w", err)
	}
	out := make([]model.Tile, 0, len(rows))
	for _, r := range rows {
		t, err := r.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// CreateTile inserts a new tile row.
func (s *Store) CreateTile(ctx context.Context, t model.Tile) error {
	record, err := tileRowFromModel(t)
	if err != nil {
		return err
	}
	if _, err := s.g.Insert("tiles").Rows(record).Executor().ExecContext(ctx); err != nil {
		return fmt.Errorf("store: create tile: %w", err)
	}
	return nil
}

// UpdateTile replaces a tile's config and properties.
func (s *Store) UpdateTile(ctx context.Context, t model.Tile) error {
	cfg, err := json.Marshal(t.Config)
	if err != nil {
		return fmt.Errorf("store: encode tile config: %w", err)
	}
	_, err = s.g.Update("tiles").
		Where(goqu.C("id").Eq(t.ID)).
		Set(goqu.Record{"config": string(cfg), "properties": string(orEmptyJSON(t.Properties))}).
		Executor().ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("store: update tile: %w", err)
	}
	return nil
}

// DeleteTile removes a tile row.
func (s *Store) DeleteTile(ctx context.Context, id string) error {
	_, err := s.g.Delete("tiles").Where(goqu.C("id").Eq(id)).Executor().ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("store: delete tile: %w", err)
	}
	return nil
}
