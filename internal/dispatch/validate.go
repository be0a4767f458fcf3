package dispatch

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"fleetops/internal/model"
)

// departureTimeRe accepts 24-hour HH:MM, with an optional leading zero on
// single-digit hours.
var departureTimeRe = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):[0-5][0-9]$`)

func validateScheduleInput(in *ScheduleInput) error {
	if in.OperatingDate.IsZero() {
		return &ValidationError{Field: "operating_date", Reason: "required"}
	}
	if in.RouteID == "" {
		return &ValidationError{Field: "route_id", Reason: "required"}
	}
	if in.VehicleID == "" {
		return &ValidationError{Field: "vehicle_id", Reason: "required"}
	}
	if in.DriverID == "" {
		return &ValidationError{Field: "driver_id", Reason: "required"}
	}
	if !departureTimeRe.MatchString(in.DepartureTime) {
		return &ValidationError{Field: "departure_time", Reason: "must be HH:MM, 24-hour"}
	}
	if in.Capacity < 0 {
		return &ValidationError{Field: "capacity", Reason: "must be positive"}
	}
	if !model.IsValidStatus(in.Status) {
		return &ValidationError{Field: "status", Reason: "unknown status " + in.Status}
	}
	return nil
}

// combineDeparture turns an operating date plus "HH:MM" into an absolute
// timestamp in the operating timezone.
func combineDeparture(date time.Time, hhmm string, loc *time.Location) (time.Time, error) {
	parts := strings.SplitN(hhmm, ":", 2)
	if len(parts) != 2 {
		return time.Time{}, fmt.Errorf("malformed departure time %q", hhmm)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed departure hour %q", hhmm)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed departure minute %q", hhmm)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, loc), nil
}
