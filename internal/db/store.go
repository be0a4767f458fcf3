// Package db implements the schedule and trip stores plus the directory
// reads on top of the SQLite layer.
package db

import (
	"errors"
	"strings"

	"github.com/mattn/go-sqlite3"

	"fleetops/internal/database"
	"fleetops/internal/dispatch"
)

const dateLayout = "2006-01-02"

// Store provides all persistence for the dispatch core.
type Store struct {
	*database.DB
}

// NewStore wraps an opened database.
func NewStore(d *database.DB) *Store {
	return &Store{DB: d}
}

// mapStoreErr translates driver errors into the dispatch taxonomy. Busy and
// locked databases are transient and safe to retry; everything else is not.
func mapStoreErr(err error) error {
	if err == nil {
		return nil
	}
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		if serr.Code == sqlite3.ErrBusy || serr.Code == sqlite3.ErrLocked {
			return &dispatch.TransientStoreError{Err: err}
		}
	}
	return err
}

// isUniqueViolation reports whether err is a unique-constraint failure and,
// when it comes from one of the schedule booking indexes, which resource
// column collided.
func isUniqueViolation(err error) (resource string, ok bool) {
	var serr sqlite3.Error
	if !errors.As(err, &serr) {
		return "", false
	}
	if serr.ExtendedCode != sqlite3.ErrConstraintUnique {
		return "", false
	}
	msg := serr.Error()
	switch {
	case strings.Contains(msg, "schedules.vehicle_id"):
		return "vehicle", true
	case strings.Contains(msg, "schedules.driver_id"):
		return "driver", true
	}
	return "", true
}
