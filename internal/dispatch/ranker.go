package dispatch

import (
	"context"
	"sort"
	"time"

	"fleetops/internal/model"
)

// RankCandidates answers "which vehicles can I assign to this slot, best
// first". It is a pure advisory read: nothing is reserved, and a candidate
// can be taken between ranking and assignment — the conflict guard on
// upsert is the authority, not this ranking.
//
// Candidates are active vehicles of the terminal (all terminals when empty)
// with capacity >= requiredCapacity and no active schedule on the date.
// Score is capacity - requiredCapacity, ascending; ties break on vehicle id
// so identical inputs always rank identically.
func (s *Service) RankCandidates(ctx context.Context, terminal string, date time.Time, routeID string, requiredCapacity int) ([]model.Candidate, error) {
	if date.IsZero() {
		return nil, &ValidationError{Field: "date", Reason: "required"}
	}
	if requiredCapacity < 1 {
		return nil, &ValidationError{Field: "capacity", Reason: "must be positive"}
	}

	// Resolving the route up front surfaces a bad route id before the
	// planner picks a vehicle for it.
	if _, err := s.routes.GetRoute(ctx, routeID); err != nil {
		return nil, err
	}

	vehicles, err := s.fleet.ListActiveVehicles(ctx, terminal)
	if err != nil {
		return nil, err
	}

	bookedVehicles, _, err := s.store.BookedResources(ctx, date)
	if err != nil {
		return nil, err
	}

	candidates := make([]model.Candidate, 0, len(vehicles))
	for _, v := range vehicles {
		if v.Capacity < requiredCapacity {
			continue
		}
		if _, booked := bookedVehicles[v.ID]; booked {
			continue
		}
		candidates = append(candidates, model.Candidate{
			Vehicle: v,
			Score:   v.Capacity - requiredCapacity,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score < candidates[j].Score
		}
		return candidates[i].Vehicle.ID < candidates[j].Vehicle.ID
	})
	return candidates, nil
}
