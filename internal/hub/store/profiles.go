package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/tilepad/hub/internal/hub/model"
)

type profileRow struct {
	ID      string `db:"id"`
	Name    string `db:"name"`
	Default bool   `db:"is_default"`
	Active  bool   `db:"active"`
	Order   int    `db:"order_index"`
	Config  string `db:"config"`
}

func (r profileRow) toModel() model.Profile {
	return model.Profile{
		ID: r.ID, Name: r.Name, Default: r.Default, Active: r.Active,
		Order: r.Order, Config: json.RawMessage(r.Config),
	}
}

// GetProfile returns a single profile by id.
func (s *Store) GetProfile(ctx context.Context, id string) (model.Profile, error) {
	var row profileRow
	found, err := s.g.From("profiles").Where(goqu.C("id").Eq(id)).ScanStructContext(ctx, &row)
	if err != nil {
		return model.Profile{}, fmt.Errorf("store: get profile: %w", err)
	}
	if !found {
		return model.Profile{}, ErrNotFound
	}
	return row.toModel(), nil
}

// DefaultProfile returns the profile with default=true.
func (s *Store) DefaultProfile(ctx context.Context) (model.Profile, error) {
	var row profileRow
	found, err := s.g.From("profiles").Where(goqu.C("is_default").Eq(true)).ScanStructContext(ctx, &row)
	if err != nil {
		return model.Profile{}, fmt.Errorf("store: default profile: %w", err)
	}
	if !found {
		return model.Profile{}, ErrNotFound
	}
	return row.toModel(), nil
}

// ListProfiles returns all profiles ordered by order_index.
func (s *Store) ListProfiles(ctx context.Context) ([]model.Profile, error) {
	var rows []profileRow
	if err := s.g.From("profiles").Order(goqu.C("order_index").Asc()).ScanStructsContext(ctx, &rows); err != nil {
		return nil, fmt.Errorf("store: list profiles: %w", err)
	}
	out := make([]model.Profile, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

// CreateProfile inserts a new profile row.
func (s *Store) CreateProfile(ctx context.Context, p model.Profile) error {
	_, err := s.g.Insert("profiles").Rows(goqu.Record{
		"id": p.ID, "name": p.Name, "is_default": p.Default, "active": p.Active,
		"order_index": p.Order, "config": string(orEmptyJSON(p.Config)),
	}).Executor().ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("store: create profile: %w", err)
	}
	return nil
}

// SetDefaultProfile atomically clears every other profile's default
// flag and sets it on id, via a single CASE-WHEN UPDATE so there is
// never a window with zero or more than one default profile.
func (s *Store) SetDefaultProfile(ctx context.Context, id string) error {
	_, err := s.g.Update("profiles").
		Set(goqu.Record{"is_default": goqu.Case().When(goqu.C("id").Eq(id), true).Else(false)}).
		Executor().ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("store: set default profile: %w", err)
	}
	return nil
}

// DeleteProfile removes a non-default profile row. Callers are
// responsible for relocating owning devices first (cross-row
// sequencing is not guaranteed by the Store).
func (s *Store) DeleteProfile(ctx context.Context, id string) error {
	p, err := s.GetProfile(ctx, id)
	if err != nil {
		return err
	}
	if p.Default {
		return errors.New("store: cannot delete default profile")
	}
	_, err = s.g.Delete("profiles").Where(goqu.C("id").Eq(id)).Executor().ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("store: delete profile: %w", err)
	}
	return nil
}

func orEmptyJSON(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("{}")
	}
	return raw
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
