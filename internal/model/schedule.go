package model

import "time"

// Schedule statuses. Planned, confirmed and in-progress schedules hold an
// exclusive claim on their vehicle and driver for the operating date;
// completed and cancelled release it.
const (
	StatusPlanned    = "planned"
	StatusConfirmed  = "confirmed"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// ActiveStatuses are the statuses that lock a vehicle/driver pair.
var ActiveStatuses = []string{StatusPlanned, StatusConfirmed, StatusInProgress}

// IsValidStatus reports whether s is a known schedule status.
func IsValidStatus(s string) bool {
	switch s {
	case StatusPlanned, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// IsActiveStatus reports whether s holds the resource lock.
func IsActiveStatus(s string) bool {
	switch s {
	case StatusPlanned, StatusConfirmed, StatusInProgress:
		return true
	}
	return false
}

// Schedule is one planned departure slot for an operating date.
type Schedule struct {
	ID               string    `json:"id"`
	OperatingDate    time.Time `json:"operating_date"` // date only; time-of-day is ignored
	RouteID          string    `json:"route_id"`
	DepartureTime    string    `json:"departure_time"` // "HH:MM", 24-hour
	VehicleID        string    `json:"vehicle_id"`
	DriverID         string    `json:"driver_id"`
	CustomerCareID   string    `json:"customer_care_id,omitempty"`
	Capacity         int       `json:"capacity"`
	Status           string    `json:"status"`
	TripMaterialized bool      `json:"trip_materialized"`
	GeneratedTripID  string    `json:"generated_trip_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// IsActive reports whether the schedule currently locks its resources.
func (s *Schedule) IsActive() bool {
	return IsActiveStatus(s.Status)
}

// DateKey returns the operating date in YYYY-MM-DD form, the key all
// conflict checks are scoped to.
func (s *Schedule) DateKey() string {
	return s.OperatingDate.Format("2006-01-02")
}
