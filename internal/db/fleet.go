package db

import (
	"context"
	"database/sql"

	"fleetops/internal/dispatch"
	"fleetops/internal/model"
)

// ListActiveVehicles returns active vehicles, optionally scoped to one
// terminal, ordered by id for deterministic consumers.
func (s *Store) ListActiveVehicles(ctx context.Context, terminal string) ([]model.Vehicle, error) {
	query := `SELECT id, capacity, terminal, is_active FROM vehicles WHERE is_active = 1`
	args := []any{}
	if terminal != "" {
		query += ` AND terminal = ?`
		args = append(args, terminal)
	}
	query += ` ORDER BY id`

	rows, err := s.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	defer rows.Close()

	var vehicles []model.Vehicle
	for rows.Next() {
		var v model.Vehicle
		if err := rows.Scan(&v.ID, &v.Capacity, &v.Terminal, &v.IsActive); err != nil {
			return nil, err
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, rows.Err()
}

// ListActiveDrivers returns active drivers, optionally scoped to one terminal.
func (s *Store) ListActiveDrivers(ctx context.Context, terminal string) ([]model.Driver, error) {
	query := `SELECT id, name, terminal, is_active FROM drivers WHERE is_active = 1`
	args := []any{}
	if terminal != "" {
		query += ` AND terminal = ?`
		args = append(args, terminal)
	}
	query += ` ORDER BY id`

	rows, err := s.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	defer rows.Close()

	var drivers []model.Driver
	for rows.Next() {
		var d model.Driver
		var name sql.NullString
		if err := rows.Scan(&d.ID, &name, &d.Terminal, &d.IsActive); err != nil {
			return nil, err
		}
		if name.Valid {
			d.Name = name.String
		}
		drivers = append(drivers, d)
	}
	return drivers, rows.Err()
}

// GetRoute returns a route by id.
func (s *Store) GetRoute(ctx context.Context, id string) (*model.Route, error) {
	var r model.Route
	var name sql.NullString
	err := s.QueryRowContext(ctx,
		`SELECT id, name, terminal, duration_hours, fare, is_active FROM routes WHERE id = ?`, id,
	).Scan(&r.ID, &name, &r.Terminal, &r.DurationHours, &r.Fare, &r.IsActive)
	if err == sql.ErrNoRows {
		return nil, &dispatch.NotFoundError{Kind: "route", ID: id}
	}
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if name.Valid {
		r.Name = name.String
	}
	return &r, nil
}

// GetVehicle returns a vehicle by id.
func (s *Store) GetVehicle(ctx context.Context, id string) (*model.Vehicle, error) {
	var v model.Vehicle
	err := s.QueryRowContext(ctx,
		`SELECT id, capacity, terminal, is_active FROM vehicles WHERE id = ?`, id,
	).Scan(&v.ID, &v.Capacity, &v.Terminal, &v.IsActive)
	if err == sql.ErrNoRows {
		return nil, &dispatch.NotFoundError{Kind: "vehicle", ID: id}
	}
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return &v, nil
}
