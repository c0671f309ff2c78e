package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/tilepad/hub/internal/hub/model"
)

type folderRow struct {
	ID        string `db:"id"`
	ProfileID string `db:"profile_id"`
	Name      string `db:"name"`
	Default   bool   `db:"is_default"`
	Order     int    `db:"order_index"`
	Config    string `db:"config"`
}

func (r folderRow) toModel() model.Folder {
	return model.Folder{
		ID: r.ID, ProfileID: r.ProfileID, Name: r.Name, Default: r.Default,
		Order: r.Order, Config: json.RawMessage(r.Config),
	}
}

// GetFolder returns a single folder by id.
func (s *Store) GetFolder(ctx context.Context, id string) (model.Folder, error) {
	var row folderRow
	found, err := s.g.From("folders").Where(goqu.C("id").Eq(id)).ScanStructContext(ctx, &row)
	if err != nil {
		return model.Folder{}, fmt.Errorf("store: get folder: %w", err)
	}
	if !found {
		return model.Folder{}, ErrNotFound
	}
	return row.toModel(), nil
}

// DefaultFolder returns the default folder for a profile.
func (s *Store) DefaultFolder(ctx context.Context, profileID string) (model.Folder, error) {
	var row folderRow
	found, err := s.g.From("folders").
		Where(goqu.C("profile_id").Eq(profileID), goqu.C("is_default").Eq(true)).
		ScanStructContext(ctx, &row)
	if err != nil {
		return model.Folder{}, fmt.Errorf("store: default folder: %w", err)
	}
	if !found {
		return model.Folder{}, ErrNotFound
	}
	return row.toModel(), nil
}

// ListFoldersByProfile returns all folders owned by a profile, ordered.
func (s *Store) ListFoldersByProfile(ctx context.Context, profileID string) ([]model.Folder, error) {
	var rows []folderRow
	err := s.g.From("folders").
		Where(goqu.C("profile_id").Eq(profileID)).
		Order(goqu.C("order_index").Asc()).
		ScanStructsContext(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("store: list folders: %w", err)
	}
	out := make([]model.Folder, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

// CreateFolder inserts a new folder row.
func (s *Store) CreateFolder(ctx context.Context, f model.Folder) error {
	_, err := s.g.Insert("folders").Rows(goqu.Record{
		"id": f.ID, "profile_id": f.ProfileID, "name": f.Name, "is_default": f.Default,
		"order_index": f.Order, "config": string(orEmptyJSON(f.Config)),
	}).Executor().ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("store: create folder: %w", err)
	}
	return nil
}

// SetDefaultFolder atomically makes id the sole default folder within
// its profile via a CASE-WHEN UPDATE scoped to profile_id.
func (s *Store) SetDefaultFolder(ctx context.Context, profileID, id string) error {
	_, err := s.g.Update("folders").
		Where(goqu.C("profile_id").Eq(profileID)).
		Set(goqu.Record{"is_default": goqu.Case().When(goqu.C("id").Eq(id), true).Else(false)}).
		Executor().ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("store: set default folder: %w", err)
	}
	return nil
}

// DeleteFolder removes a non-default folder row.
func (s *Store) DeleteFolder(ctx context.Context, id string) error {
	f, err := s.GetFolder(ctx, id)
	if err != nil {
		return err
	}
	if f.Default {
		return errors.New("store: cannot delete default folder")
	}
	_, err = s.g.Delete("folders").Where(goqu.C("id").Eq(id)).Executor().ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("store: delete folder: %w", err)
	}
	return nil
}

// DevicesInFolder returns every device currently attached to a folder.
func (s *Store) DevicesInFolder(ctx context.Context, folderID string) ([]model.Device, error) {
	return s.ListDevicesByFolder(ctx, folderID)
}
