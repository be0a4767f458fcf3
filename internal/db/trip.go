package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"fleetops/internal/model"
)

const tripColumns = `id, sequence_number, route_id, vehicle_id, driver_id, customer_care_id,
	scheduled_departure, scheduled_arrival, capacity, fare, source_schedule_id, created_at`

// ListSynthesizable returns the confirmed, not-yet-materialized schedules
// for an operating date, ordered by departure time.
func (s *Store) ListSynthesizable(ctx context.Context, date time.Time) ([]model.Schedule, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT `+scheduleColumns+` FROM schedules
		WHERE operating_date = ? AND status = 'confirmed' AND trip_materialized = 0
		ORDER BY departure_time, id`,
		date.Format(dateLayout),
	)
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

// MaterializeTrip inserts the trip, allocates its monthly sequence number and
// flips the source schedule to in_progress/materialized, all in one immediate
// transaction. Partial materialization is never observable: either the trip
// exists with a unique number and the schedule points at it, or nothing
// committed. The sequence counter is keyed by the departure's calendar month.
func (s *Store) MaterializeTrip(ctx context.Context, trip *model.Trip) error {
	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return mapStoreErr(err)
	}
	defer tx.Rollback()

	var status string
	var materialized bool
	err = tx.QueryRowContext(ctx,
		`SELECT status, trip_materialized FROM schedules WHERE id = ?`, trip.SourceScheduleID,
	).Scan(&status, &materialized)
	if err == sql.ErrNoRows {
		return fmt.Errorf("schedule %s vanished before materialization", trip.SourceScheduleID)
	}
	if err != nil {
		return mapStoreErr(err)
	}
	if materialized || status != model.StatusConfirmed {
		return fmt.Errorf("schedule %s is not synthesizable (status %s, materialized %t)",
			trip.SourceScheduleID, status, materialized)
	}

	month := trip.ScheduledDeparture.Format("2006-01")
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO trip_sequences (month, counter) VALUES (?, 1)
		ON CONFLICT(month) DO UPDATE SET counter = counter + 1`,
		month,
	); err != nil {
		return mapStoreErr(err)
	}

	var counter int
	if err := tx.QueryRowContext(ctx,
		`SELECT counter FROM trip_sequences WHERE month = ?`, month,
	).Scan(&counter); err != nil {
		return mapStoreErr(err)
	}
	trip.SequenceNumber = fmt.Sprintf("TRP-%s-%03d", trip.ScheduledDeparture.Format("20060102"), counter)

	now := time.Now()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO trips (
			id, sequence_number, route_id, vehicle_id, driver_id, customer_care_id,
			scheduled_departure, scheduled_arrival, capacity, fare, source_schedule_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		trip.ID, trip.SequenceNumber, trip.RouteID, trip.VehicleID, trip.DriverID,
		nullable(trip.CustomerCareID), trip.ScheduledDeparture, trip.ScheduledArrival,
		trip.Capacity, trip.Fare, trip.SourceScheduleID, now,
	); err != nil {
		return mapStoreErr(err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE schedules
		SET status = 'in_progress', trip_materialized = 1, generated_trip_id = ?, updated_at = ?
		WHERE id = ? AND status = 'confirmed' AND trip_materialized = 0`,
		trip.ID, now, trip.SourceScheduleID,
	)
	if err != nil {
		return mapStoreErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected != 1 {
		return fmt.Errorf("schedule %s changed during materialization", trip.SourceScheduleID)
	}

	if err := tx.Commit(); err != nil {
		return mapStoreErr(err)
	}

	trip.CreatedAt = now
	return nil
}

// ListTrips returns trips whose scheduled departure falls on the given
// calendar day, in departure order.
func (s *Store) ListTrips(ctx context.Context, date time.Time) ([]model.Trip, error) {
	startOfDay := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	endOfDay := startOfDay.Add(24 * time.Hour)

	rows, err := s.QueryContext(ctx, `
		SELECT `+tripColumns+` FROM trips
		WHERE scheduled_departure >= ? AND scheduled_departure < ?
		ORDER BY scheduled_departure, sequence_number`,
		startOfDay, endOfDay,
	)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	defer rows.Close()

	var trips []model.Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, *t)
	}
	return trips, rows.Err()
}

func scanTrip(row rowScanner) (*model.Trip, error) {
	var t model.Trip
	var customerCareID sql.NullString
	err := row.Scan(
		&t.ID, &t.SequenceNumber, &t.RouteID, &t.VehicleID, &t.DriverID, &customerCareID,
		&t.ScheduledDeparture, &t.ScheduledArrival, &t.Capacity, &t.Fare,
		&t.SourceScheduleID, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if customerCareID.Valid {
		t.CustomerCareID = customerCareID.String
	}
	return &t, nil
}
