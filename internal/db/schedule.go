package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"fleetops/internal/dispatch"
	"fleetops/internal/model"
)

const scheduleColumns = `id, operating_date, route_id, departure_time, vehicle_id, driver_id,
	customer_care_id, capacity, status, trip_materialized, generated_trip_id, created_at, updated_at`

// CreateSchedule inserts a new schedule under the conflict guard.
//
// The guard runs inside an immediate transaction: an in-transaction query
// names the colliding resource and blocking schedule for the caller, and the
// partial unique indexes are the authority if a concurrent writer slips past
// the query. Exactly one of N concurrent colliding writers commits.
func (s *Store) CreateSchedule(ctx context.Context, sc *model.Schedule) error {
	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return mapStoreErr(err)
	}
	defer tx.Rollback()

	if sc.IsActive() {
		if err := s.checkConflict(ctx, tx, sc); err != nil {
			return err
		}
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO schedules (
			id, operating_date, route_id, departure_time, vehicle_id, driver_id,
			customer_care_id, capacity, status, trip_materialized, generated_trip_id,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, NULL, ?, ?)`,
		sc.ID, sc.DateKey(), sc.RouteID, sc.DepartureTime, sc.VehicleID, sc.DriverID,
		nullable(sc.CustomerCareID), sc.Capacity, sc.Status, now, now,
	)
	if err != nil {
		if resource, ok := isUniqueViolation(err); ok {
			return s.conflictFor(ctx, sc, resource)
		}
		return mapStoreErr(err)
	}

	if err := tx.Commit(); err != nil {
		if resource, ok := isUniqueViolation(err); ok {
			return s.conflictFor(ctx, sc, resource)
		}
		return mapStoreErr(err)
	}

	sc.CreatedAt = now
	sc.UpdatedAt = now
	return nil
}

// UpdateSchedule rewrites an existing schedule under the same guard. The
// schedule must exist; materialization fields are owned by the synthesizer
// and are never written through this path.
func (s *Store) UpdateSchedule(ctx context.Context, sc *model.Schedule) error {
	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return mapStoreErr(err)
	}
	defer tx.Rollback()

	var createdAt time.Time
	var materialized bool
	var generatedTripID sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT created_at, trip_materialized, generated_trip_id FROM schedules WHERE id = ?`, sc.ID,
	).Scan(&createdAt, &materialized, &generatedTripID)
	if err == sql.ErrNoRows {
		return &dispatch.NotFoundError{Kind: "schedule", ID: sc.ID}
	}
	if err != nil {
		return mapStoreErr(err)
	}

	if sc.IsActive() {
		if err := s.checkConflict(ctx, tx, sc); err != nil {
			return err
		}
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx, `
		UPDATE schedules
		SET operating_date = ?, route_id = ?, departure_time = ?, vehicle_id = ?,
		    driver_id = ?, customer_care_id = ?, capacity = ?, status = ?, updated_at = ?
		WHERE id = ?`,
		sc.DateKey(), sc.RouteID, sc.DepartureTime, sc.VehicleID, sc.DriverID,
		nullable(sc.CustomerCareID), sc.Capacity, sc.Status, now, sc.ID,
	)
	if err != nil {
		if resource, ok := isUniqueViolation(err); ok {
			return s.conflictFor(ctx, sc, resource)
		}
		return mapStoreErr(err)
	}

	if err := tx.Commit(); err != nil {
		if resource, ok := isUniqueViolation(err); ok {
			return s.conflictFor(ctx, sc, resource)
		}
		return mapStoreErr(err)
	}

	sc.CreatedAt = createdAt
	sc.UpdatedAt = now
	sc.TripMaterialized = materialized
	if generatedTripID.Valid {
		sc.GeneratedTripID = generatedTripID.String
	}
	return nil
}

// checkConflict looks for an active schedule on the same date claiming the
// same vehicle or driver, excluding the record being written.
func (s *Store) checkConflict(ctx context.Context, tx *sql.Tx, sc *model.Schedule) error {
	var id, vehicleID, driverID string
	err := tx.QueryRowContext(ctx, `
		SELECT id, vehicle_id, driver_id FROM schedules
		WHERE operating_date = ?
		AND status IN ('planned', 'confirmed', 'in_progress')
		AND (vehicle_id = ? OR driver_id = ?)
		AND id != ?
		LIMIT 1`,
		sc.DateKey(), sc.VehicleID, sc.DriverID, sc.ID,
	).Scan(&id, &vehicleID, &driverID)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return mapStoreErr(err)
	}
	if vehicleID == sc.VehicleID {
		return &dispatch.ConflictError{Resource: "vehicle", ResourceID: sc.VehicleID, ScheduleID: id}
	}
	return &dispatch.ConflictError{Resource: "driver", ResourceID: sc.DriverID, ScheduleID: id}
}

// conflictFor builds a ConflictError after a unique-index violation by
// re-reading the winner. The race loser learns who blocked it.
func (s *Store) conflictFor(ctx context.Context, sc *model.Schedule, resource string) error {
	column := "vehicle_id"
	resourceID := sc.VehicleID
	if resource == "driver" {
		column = "driver_id"
		resourceID = sc.DriverID
	}
	var id string
	err := s.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT id FROM schedules
		WHERE operating_date = ? AND %s = ?
		AND status IN ('planned', 'confirmed', 'in_progress')
		AND id != ?
		LIMIT 1`, column),
		sc.DateKey(), resourceID, sc.ID,
	).Scan(&id)
	if err != nil {
		// The winner may already have moved on; still report the conflict.
		return &dispatch.ConflictError{Resource: resource, ResourceID: resourceID}
	}
	return &dispatch.ConflictError{Resource: resource, ResourceID: resourceID, ScheduleID: id}
}

// GetSchedule returns a schedule by id.
func (s *Store) GetSchedule(ctx context.Context, id string) (*model.Schedule, error) {
	row := s.QueryRowContext(ctx,
		`SELECT `+scheduleColumns+` FROM schedules WHERE id = ?`, id)
	sc, err := scanSchedule(row)
	if err == sql.ErrNoRows {
		return nil, &dispatch.NotFoundError{Kind: "schedule", ID: id}
	}
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return sc, nil
}

// ListSchedules returns schedules for an operating date, optionally filtered
// by status and vehicle, ordered by departure time.
func (s *Store) ListSchedules(ctx context.Context, date time.Time, status, vehicleID string) ([]model.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE operating_date = ?`
	args := []any{date.Format(dateLayout)}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	if vehicleID != "" {
		query += ` AND vehicle_id = ?`
		args = append(args, vehicleID)
	}
	query += ` ORDER BY departure_time, id`

	rows, err := s.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	defer rows.Close()

	var schedules []model.Schedule
	for rows.Next() {
		sc, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, *sc)
	}
	return schedules, rows.Err()
}

// BookedResources returns the vehicles and drivers already claimed by an
// active schedule on the date, mapped to the claiming schedule id.
func (s *Store) BookedResources(ctx context.Context, date time.Time) (vehicles, drivers map[string]string, err error) {
	rows, err := s.QueryContext(ctx, `
		SELECT id, vehicle_id, driver_id FROM schedules
		WHERE operating_date = ?
		AND status IN ('planned', 'confirmed', 'in_progress')`,
		date.Format(dateLayout),
	)
	if err != nil {
		return nil, nil, mapStoreErr(err)
	}
	defer rows.Close()

	vehicles = make(map[string]string)
	drivers = make(map[string]string)
	for rows.Next() {
		var id, vehicleID, driverID string
		if err := rows.Scan(&id, &vehicleID, &driverID); err != nil {
			return nil, nil, err
		}
		vehicles[vehicleID] = id
		drivers[driverID] = id
	}
	return vehicles, drivers, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row rowScanner) (*model.Schedule, error) {
	var sc model.Schedule
	var dateStr string
	var customerCareID, generatedTripID sql.NullString
	err := row.Scan(
		&sc.ID, &dateStr, &sc.RouteID, &sc.DepartureTime, &sc.VehicleID, &sc.DriverID,
		&customerCareID, &sc.Capacity, &sc.Status, &sc.TripMaterialized, &generatedTripID,
		&sc.CreatedAt, &sc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	sc.OperatingDate, err = time.Parse(dateLayout, dateStr)
	if err != nil {
		return nil, fmt.Errorf("parse operating date %q: %w", dateStr, err)
	}
	if customerCareID.Valid {
		sc.CustomerCareID = customerCareID.String
	}
	if generatedTripID.Valid {
		sc.GeneratedTripID = generatedTripID.String
	}
	return &sc, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
