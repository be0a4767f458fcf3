package model

import "time"

// Trip is a materialized, timed departure derived from exactly one Schedule.
// Capacity and fare are snapshots taken at synthesis time; later edits to the
// vehicle or route must not alter an issued trip.
type Trip struct {
	ID                 string    `json:"id"`
	SequenceNumber     string    `json:"sequence_number"` // "TRP-YYYYMMDD-NNN"
	RouteID            string    `json:"route_id"`
	VehicleID          string    `json:"vehicle_id"`
	DriverID           string    `json:"driver_id"`
	CustomerCareID     string    `json:"customer_care_id,omitempty"`
	ScheduledDeparture time.Time `json:"scheduled_departure"`
	ScheduledArrival   time.Time `json:"scheduled_arrival"`
	Capacity           int       `json:"capacity"`
	Fare               int64     `json:"fare"`
	SourceScheduleID   string    `json:"source_schedule_id"`
	CreatedAt          time.Time `json:"created_at"`
}

// SynthesisOutcome is the per-schedule result of one synthesis batch.
type SynthesisOutcome struct {
	ScheduleID     string `json:"schedule_id"`
	TripID         string `json:"trip_id,omitempty"`
	SequenceNumber string `json:"sequence_number,omitempty"`
	Error          string `json:"error,omitempty"`
}

// SynthesisResult aggregates one SynthesizeTrips run.
type SynthesisResult struct {
	Date      string             `json:"date"`
	Generated int                `json:"generated"`
	Failed    int                `json:"failed"`
	Outcomes  []SynthesisOutcome `json:"outcomes"`
}
