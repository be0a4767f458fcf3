package db

import (
	"context"
	"fmt"
	"time"

	"fleetops/internal/config"
)

// SyncFleet applies fleet.yaml to the directory tables. It upserts vehicles,
// drivers and routes and marks entries that disappeared from the file
// inactive. Creation timestamps are preserved across syncs.
func (s *Store) SyncFleet(ctx context.Context, cfg *config.FleetConfig) error {
	if cfg == nil {
		return fmt.Errorf("fleet config is nil")
	}

	now := time.Now()

	seenVehicles := make(map[string]struct{})
	for _, v := range cfg.Vehicles {
		_, err := s.ExecContext(ctx, `
			INSERT INTO vehicles (id, capacity, terminal, is_active, created_at, updated_at)
			VALUES (?, ?, ?, ?, COALESCE((SELECT created_at FROM vehicles WHERE id = ?), ?), ?)
			ON CONFLICT(id) DO UPDATE SET
				capacity = excluded.capacity,
				terminal = excluded.terminal,
				is_active = excluded.is_active,
				updated_at = excluded.updated_at`,
			v.ID, v.Capacity, v.Terminal, boolToInt(v.IsActive), v.ID, now, now,
		)
		if err != nil {
			return fmt.Errorf("sync vehicle %s: %w", v.ID, err)
		}
		seenVehicles[v.ID] = struct{}{}
	}
	if err := s.deactivateMissing(ctx, "vehicles", seenVehicles, now); err != nil {
		return err
	}

	seenDrivers := make(map[string]struct{})
	for _, d := range cfg.Drivers {
		_, err := s.ExecContext(ctx, `
			INSERT INTO drivers (id, name, terminal, is_active, created_at, updated_at)
			VALUES (?, ?, ?, ?, COALESCE((SELECT created_at FROM drivers WHERE id = ?), ?), ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				terminal = excluded.terminal,
				is_active = excluded.is_active,
				updated_at = excluded.updated_at`,
			d.ID, d.Name, d.Terminal, boolToInt(d.IsActive), d.ID, now, now,
		)
		if err != nil {
			return fmt.Errorf("sync driver %s: %w", d.ID, err)
		}
		seenDrivers[d.ID] = struct{}{}
	}
	if err := s.deactivateMissing(ctx, "drivers", seenDrivers, now); err != nil {
		return err
	}

	seenRoutes := make(map[string]struct{})
	for _, r := range cfg.Routes {
		_, err := s.ExecContext(ctx, `
			INSERT INTO routes (id, name, terminal, duration_hours, fare, is_active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, COALESCE((SELECT created_at FROM routes WHERE id = ?), ?), ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				terminal = excluded.terminal,
				duration_hours = excluded.duration_hours,
				fare = excluded.fare,
				is_active = excluded.is_active,
				updated_at = excluded.updated_at`,
			r.ID, r.Name, r.Terminal, r.DurationHours, r.Fare, boolToInt(r.IsActive), r.ID, now, now,
		)
		if err != nil {
			return fmt.Errorf("sync route %s: %w", r.ID, err)
		}
		seenRoutes[r.ID] = struct{}{}
	}
	return s.deactivateMissing(ctx, "routes", seenRoutes, now)
}

func (s *Store) deactivateMissing(ctx context.Context, table string, seen map[string]struct{}, now time.Time) error {
	rows, err := s.QueryContext(ctx, fmt.Sprintf(`SELECT id FROM %s`, table))
	if err != nil {
		return err
	}
	defer rows.Close()

	var missing []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return err
		}
		if _, ok := seen[id]; !ok {
			missing = append(missing, id)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, id := range missing {
		if _, err := s.ExecContext(ctx,
			fmt.Sprintf(`UPDATE %s SET is_active = 0, updated_at = ? WHERE id = ?`, table), now, id,
		); err != nil {
			return fmt.Errorf("deactivate %s %s: %w", table, id, err)
		}
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
