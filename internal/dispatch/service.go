package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"fleetops/internal/events"
	"fleetops/internal/metrics"
	"fleetops/internal/model"
)

// ScheduleStore is the persistence surface the scheduler needs. The store is
// the sole authority on the no-double-booking invariant; the service never
// holds in-process locks.
type ScheduleStore interface {
	CreateSchedule(ctx context.Context, sc *model.Schedule) error
	UpdateSchedule(ctx context.Context, sc *model.Schedule) error
	GetSchedule(ctx context.Context, id string) (*model.Schedule, error)
	ListSchedules(ctx context.Context, date time.Time, status, vehicleID string) ([]model.Schedule, error)
	BookedResources(ctx context.Context, date time.Time) (vehicles, drivers map[string]string, err error)
	ListSynthesizable(ctx context.Context, date time.Time) ([]model.Schedule, error)
	MaterializeTrip(ctx context.Context, trip *model.Trip) error
}

// ResourceDirectory is the read-only view of vehicles and drivers. It is
// consumed, never mutated, by this core.
type ResourceDirectory interface {
	ListActiveVehicles(ctx context.Context, terminal string) ([]model.Vehicle, error)
	ListActiveDrivers(ctx context.Context, terminal string) ([]model.Driver, error)
	GetVehicle(ctx context.Context, id string) (*model.Vehicle, error)
}

// RouteDirectory is the read-only view of route metadata.
type RouteDirectory interface {
	GetRoute(ctx context.Context, id string) (*model.Route, error)
}

// EventPublisher fans domain events out to in-process subscribers.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// Service implements the dispatch scheduler operations.
type Service struct {
	store  ScheduleStore
	fleet  ResourceDirectory
	routes RouteDirectory
	bus    EventPublisher
	loc    *time.Location
	logger *zerolog.Logger
}

// NewService wires the scheduler. loc is the operating timezone used when
// combining an operating date with a departure time.
func NewService(store ScheduleStore, fleet ResourceDirectory, routes RouteDirectory, bus EventPublisher, loc *time.Location, logger *zerolog.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		store:  store,
		fleet:  fleet,
		routes: routes,
		bus:    bus,
		loc:    loc,
		logger: logger,
	}
}

// ScheduleInput carries the caller-supplied schedule fields. An empty ID
// means create; a set ID means update of an existing schedule.
type ScheduleInput struct {
	ID             string    `json:"id,omitempty"`
	OperatingDate  time.Time `json:"operating_date"`
	RouteID        string    `json:"route_id"`
	DepartureTime  string    `json:"departure_time"`
	VehicleID      string    `json:"vehicle_id"`
	DriverID       string    `json:"driver_id"`
	CustomerCareID string    `json:"customer_care_id,omitempty"`
	Capacity       int       `json:"capacity"`
	Status         string    `json:"status,omitempty"`
}

// UpsertSchedule validates the input and writes the schedule through the
// conflict guard. Capacity zero means "copy from the vehicle", the normal
// planner flow. A ConflictError names the colliding resource and the
// blocking schedule so the caller can re-rank and retry.
func (s *Service) UpsertSchedule(ctx context.Context, in ScheduleInput) (*model.Schedule, error) {
	if in.Status == "" {
		in.Status = model.StatusPlanned
	}
	if err := validateScheduleInput(&in); err != nil {
		return nil, err
	}

	capacity := in.Capacity
	if capacity == 0 {
		vehicle, err := s.fleet.GetVehicle(ctx, in.VehicleID)
		if err != nil {
			return nil, err
		}
		capacity = vehicle.Capacity
	}

	sc := &model.Schedule{
		ID:             in.ID,
		OperatingDate:  in.OperatingDate,
		RouteID:        in.RouteID,
		DepartureTime:  in.DepartureTime,
		VehicleID:      in.VehicleID,
		DriverID:       in.DriverID,
		CustomerCareID: in.CustomerCareID,
		Capacity:       capacity,
		Status:         in.Status,
	}

	isNew := sc.ID == ""
	var err error
	if isNew {
		sc.ID = uuid.NewString()
		err = s.store.CreateSchedule(ctx, sc)
	} else {
		err = s.store.UpdateSchedule(ctx, sc)
	}
	if err != nil {
		var ce *ConflictError
		if errors.As(err, &ce) {
			metrics.IncScheduleConflict(ce.Resource)
			_ = s.bus.PublishJSON(events.TypeScheduleConflict, map[string]string{
				"date":        sc.DateKey(),
				"resource":    ce.Resource,
				"resource_id": ce.ResourceID,
				"blocked_by":  ce.ScheduleID,
			})
			s.logger.Warn().
				Str("date", sc.DateKey()).
				Str("resource", ce.Resource).
				Str("resource_id", ce.ResourceID).
				Str("blocked_by", ce.ScheduleID).
				Msg("schedule rejected: resource already booked")
		}
		return nil, err
	}

	eventType := events.TypeScheduleUpdated
	if isNew {
		eventType = events.TypeScheduleCreated
		metrics.IncScheduleCreated(sc.Status)
	}
	_ = s.bus.PublishJSON(eventType, sc)

	s.logger.Info().
		Str("schedule_id", sc.ID).
		Str("date", sc.DateKey()).
		Str("vehicle_id", sc.VehicleID).
		Str("driver_id", sc.DriverID).
		Str("status", sc.Status).
		Bool("created", isNew).
		Msg("schedule saved")
	return sc, nil
}

// GetSchedule returns one schedule by id.
func (s *Service) GetSchedule(ctx context.Context, id string) (*model.Schedule, error) {
	return s.store.GetSchedule(ctx, id)
}

// ListSchedules returns schedules for a date with optional status and
// vehicle filters.
func (s *Service) ListSchedules(ctx context.Context, date time.Time, status, vehicleID string) ([]model.Schedule, error) {
	if status != "" && !model.IsValidStatus(status) {
		return nil, &ValidationError{Field: "status", Reason: "unknown status " + status}
	}
	return s.store.ListSchedules(ctx, date, status, vehicleID)
}
