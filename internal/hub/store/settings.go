package store

import (
	"context"
	"fmt"
	"os"

	"github.com/doug-martin/goqu/v9"
	"github.com/tilepad/hub/internal/hub/model"
)

type settingsRow struct {
	ID                 int    `db:"id"`
	Language           string `db:"language"`
	DeviceName         string `db:"device_name"`
	DeveloperMode      bool   `db:"developer_mode"`
	Port               int    `db:"port"`
	StartAutomatically bool   `db:"start_automatically"`
	MinimizeTray       bool   `db:"minimize_tray"`
	StartMinimized     bool   `db:"start_minimized"`
}

func (r settingsRow) toModel() model.Settings {
	return model.Settings{
		ID: r.ID, Language: r.Language, DeviceName: r.DeviceName, DeveloperMode: r.DeveloperMode,
		Port: r.Port, StartAutomatically: r.StartAutomatically, MinimizeTray: r.MinimizeTray,
		StartMinimized: r.StartMinimized,
	}
}

// GetSettings returns the singleton settings row, inserting defaults
// on first read if it does not yet exist.
func (s *Store) GetSettings(ctx context.Context) (model.Settings, error) {
	var row settingsRow
	found, err := s.g.From("settings").Where(goqu.C("id").Eq(1)).ScanStructContext(ctx, &row)
	if err != nil {
		return model.Settings{}, fmt.Errorf("store: get settings: %w", err)
	}
	if found {
		return row.toModel(), nil
	}

	hostname, _ := os.Hostname()
	defaults := model.DefaultSettings(hostname)
	if _, err := s.g.Insert("settings").Rows(goqu.Record{
		"id": defaults.ID, "language": defaults.Language, "device_name": defaults.DeviceName,
		"developer_mode": defaults.DeveloperMode, "port": defaults.Port,
		"start_automatically": defaults.StartAutomatically, "minimize_tray": defaults.MinimizeTray,
		"start_minimized": defaults.StartMinimized,
	}).Executor().ExecContext(ctx); err != nil {
		return model.Settings{}, fmt.Errorf("store: insert default settings: %w", err)
	}
	return defaults, nil
}

// UpdateSettings replaces the singleton settings row.
func (s *Store) UpdateSettings(ctx context.Context, set model.Settings) error {
	_, err := s.g.Update("settings").Where(goqu.C("id").Eq(1)).Set(goqu.Record{
		"language": set.Language, "device_name": set.DeviceName, "developer_mode": set.DeveloperMode,
		"port": set.Port, "start_automatically": set.StartAutomatically,
		"minimize_tray": set.MinimizeTray, "start_minimized": set.StartMinimized,
	}).Executor().ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("store: update settings: %w", err)
	}
	return nil
}
