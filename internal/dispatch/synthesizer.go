package dispatch

import (
	"context"
	"time"

	"github.com/google/uuid"

	"fleetops/internal/events"
	"fleetops/internal/metrics"
	"fleetops/internal/model"
)

// SynthesizeTrips turns a day's confirmed, not-yet-materialized schedules
// into trip records, exactly once each. One schedule failing does not abort
// the rest of the batch; every schedule gets its own outcome. Calling this
// twice for the same date generates nothing on the second run because
// materialized schedules no longer match the selection.
func (s *Service) SynthesizeTrips(ctx context.Context, date time.Time) (*model.SynthesisResult, error) {
	if date.IsZero() {
		return nil, &ValidationError{Field: "date", Reason: "required"}
	}

	schedules, err := s.store.ListSynthesizable(ctx, date)
	if err != nil {
		// Store unavailable aborts the whole batch; per-schedule failures
		// below do not.
		return nil, err
	}

	result := &model.SynthesisResult{Date: date.Format("2006-01-02")}
	if len(schedules) == 0 {
		s.logger.Info().Str("date", result.Date).Msg("no schedules to synthesize")
		return result, nil
	}

	for i := range schedules {
		sc := &schedules[i]
		outcome := s.synthesizeOne(ctx, sc)
		if outcome.Error == "" {
			result.Generated++
			metrics.IncTripsSynthesized()
		} else {
			result.Failed++
			metrics.IncSynthesisFailure()
			s.logger.Error().
				Str("schedule_id", sc.ID).
				Str("reason", outcome.Error).
				Msg("trip synthesis failed for schedule")
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	s.logger.Info().
		Str("date", result.Date).
		Int("generated", result.Generated).
		Int("failed", result.Failed).
		Msg("trip synthesis finished")
	return result, nil
}

// synthesizeOne materializes a single schedule. The capacity and fare on the
// trip are value copies; later vehicle or route edits must not reach an
// issued trip.
func (s *Service) synthesizeOne(ctx context.Context, sc *model.Schedule) model.SynthesisOutcome {
	outcome := model.SynthesisOutcome{ScheduleID: sc.ID}

	route, err := s.routes.GetRoute(ctx, sc.RouteID)
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}

	departure, err := combineDeparture(sc.OperatingDate, sc.DepartureTime, s.loc)
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}
	arrival := departure.Add(time.Duration(route.DurationHours * float64(time.Hour)))

	trip := &model.Trip{
		ID:                 uuid.NewString(),
		RouteID:            sc.RouteID,
		VehicleID:          sc.VehicleID,
		DriverID:           sc.DriverID,
		CustomerCareID:     sc.CustomerCareID,
		ScheduledDeparture: departure,
		ScheduledArrival:   arrival,
		Capacity:           sc.Capacity,
		Fare:               route.Fare,
		SourceScheduleID:   sc.ID,
	}

	if err := s.store.MaterializeTrip(ctx, trip); err != nil {
		outcome.Error = err.Error()
		return outcome
	}

	outcome.TripID = trip.ID
	outcome.SequenceNumber = trip.SequenceNumber
	_ = s.bus.PublishJSON(events.TypeTripSynthesized, trip)
	return outcome
}
