package store

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/tilepad/hub/internal/hub/model"
)

type deviceRow struct {
	ID              string `db:"id"`
	Name            string `db:"name"`
	AccessToken     string `db:"access_token"`
	ProfileID       string `db:"profile_id"`
	FolderID        string `db:"folder_id"`
	Order           int    `db:"order_index"`
	CreatedAt       int64  `db:"created_at"`
	LastConnectedAt int64  `db:"last_connected_at"`
}

func (r deviceRow) toModel() model.Device {
	return model.Device{
		ID: r.ID, Name: r.Name, AccessToken: r.AccessToken, ProfileID: r.ProfileID,
		FolderID: r.FolderID, Order: r.Order, CreatedAt: r.CreatedAt, LastConnectedAt: r.LastConnectedAt,
	}
}

// GetDevice returns a device by id.
func (s *Store) GetDevice(ctx context.Context, id string) (model.Device, error) {
	var row deviceRow
	found, err := s.g.From("devices").Where(goqu.C("id").Eq(id)).ScanStructContext(ctx, &row)
	if err != nil {
		return model.Device{}, fmt.Errorf("store: get device: %w", err)
	}
	if !found {
		return model.Device{}, ErrNotFound
	}
	return row.toModel(), nil
}

// GetDeviceByToken looks up a device by its access token.
func (s *Store) GetDeviceByToken(ctx context.Context, token string) (model.Device, error) {
	var row deviceRow
	found, err := s.g.From("devices").Where(goqu.C("access_token").Eq(token)).ScanStructContext(ctx, &row)
	if err != nil {
		return model.Device{}, fmt.Errorf("store: get device by token: %w", err)
	}
	if !found {
		return model.Device{}, ErrNotFound
	}
	return row.toModel(), nil
}

// ListDevicesByFolder returns every device currently attached to a folder.
func (s *Store) ListDevicesByFolder(ctx context.Context, folderID string) ([]model.Device, error) {
	var rows []deviceRow
	err := s.g.From("devices").Where(goqu.C("folder_id").Eq(folderID)).ScanStructsContext(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("store: list devices by folder: %w", err)
	}
	out := make([]model.Device, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

// ListDevicesByProfile returns every device attached to a profile.
func (s *Store) ListDevicesByProfile(ctx context.Context, profileID string) ([]model.Device, error) {
	var rows []deviceRow
	err := s.g.From("devices").Where(goqu.C("profile_id").Eq(profileID)).ScanStructsContext(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("store: list devices by profile: %w", err)
	}
	out := make([]model.Device, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

// CreateDevice inserts a new device row, minted at approval time.
func (s *Store) CreateDevice(ctx context.Context, d model.Device) error {
	_, err := s.g.Insert("devices").Rows(goqu.Record{
		"id": d.ID, "name": d.Name, "access_token": d.AccessToken,
		"profile_id": d.ProfileID, "folder_id": d.FolderID, "order_index": d.Order,
		"created_at": d.CreatedAt, "last_connected_at": d.LastConnectedAt,
	}).Executor().ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("store: create device: %w", err)
	}
	return nil
}

// TouchLastConnected updates a device's last_connected_at to now.
func (s *Store) TouchLastConnected(ctx context.Context, id string) error {
	_, err := s.g.Update("devices").
		Where(goqu.C("id").Eq(id)).
		Set(goqu.Record{"last_connected_at": time.Now().Unix()}).
		Executor().ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("store: touch last connected: %w", err)
	}
	return nil
}

// SetDeviceFolder moves a device to a folder within its current profile.
func (s *Store) SetDeviceFolder(ctx context.Context, id, folderID string) error {
	_, err := s.g.Update("devices").
		Where(goqu.C("id").Eq(id)).
		Set(goqu.Record{"folder_id": folderID}).
		Executor().ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("store: set device folder: %w", err)
	}
	return nil
}

// SetDeviceProfileAndFolder moves a device to a profile and its default folder.
func (s *Store) SetDeviceProfileAndFolder(ctx context.Context, id, profileID, folderID string) error {
	_, err := s.g.Update("devices").
		Where(goqu.C("id").Eq(id)).
		Set(goqu.Record{"profile_id": profileID, "folder_id": folderID}).
		Executor().ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("store: set device profile and folder: %w", err)
	}
	return nil
}

// RelocateDevicesFromFolder moves every device in fromFolder to
// toFolder; used when a folder is deleted.
func (s *Store) RelocateDevicesFromFolder(ctx context.Context, fromFolder, toFolder string) error {
	_, err := s.g.Update("devices").
		Where(goqu.C("folder_id").Eq(fromFolder)).
		Set(goqu.Record{"folder_id": toFolder}).
		Executor().ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("store: relocate devices from folder: %w", err)
	}
	return nil
}

// RelocateDevicesFromProfile moves every device in fromProfile to
// toProfile/toFolder; used when a profile is deleted.
func (s *Store) RelocateDevicesFromProfile(ctx context.Context, fromProfile, toProfile, toFolder string) error {
	_, err := s.g.Update("devices").
		Where(goqu.C("profile_id").Eq(fromProfile)).
		Set(goqu.Record{"profile_id": toProfile, "folder_id": toFolder}).
		Executor().ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("store: relocate devices from profile: %w", err)
	}
	return nil
}

// DeleteDevice removes a device row (used by revoke).
func (s *Store) DeleteDevice(ctx context.Context, id string) error {
	_, err := s.g.Delete("devices").Where(goqu.C("id").Eq(id)).Executor().ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("store: delete device: %w", err)
	}
	return nil
}
