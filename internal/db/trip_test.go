package db

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetops/internal/model"
)

func tripFor(sc *model.Schedule, departure time.Time) *model.Trip {
	return &model.Trip{
		ID:                 uuid.NewString(),
		RouteID:            sc.RouteID,
		VehicleID:          sc.VehicleID,
		DriverID:           sc.DriverID,
		ScheduledDeparture: departure,
		ScheduledArrival:   departure.Add(8 * time.Hour),
		Capacity:           sc.Capacity,
		Fare:               3500,
		SourceScheduleID:   sc.ID,
	}
}

func TestMaterializeTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sc := newSchedule(t, "2025-03-10", "V1", "D1", model.StatusConfirmed)
	require.NoError(t, store.CreateSchedule(ctx, sc))

	departure := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	trip := tripFor(sc, departure)
	require.NoError(t, store.MaterializeTrip(ctx, trip))
	assert.Equal(t, "TRP-20250310-001", trip.SequenceNumber)

	// The schedule flipped in the same transaction.
	got, err := store.GetSchedule(ctx, sc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, got.Status)
	assert.True(t, got.TripMaterialized)
	assert.Equal(t, trip.ID, got.GeneratedTripID)

	trips, err := store.ListTrips(ctx, departure)
	require.NoError(t, err)
	require.Len(t, trips, 1)
	assert.Equal(t, trip.ID, trips[0].ID)
	assert.Equal(t, 50, trips[0].Capacity)
	assert.Equal(t, int64(3500), trips[0].Fare)
	assert.True(t, trips[0].ScheduledDeparture.Equal(departure))
	assert.True(t, trips[0].ScheduledArrival.Equal(departure.Add(8*time.Hour)))
}

func TestMaterializeTripSequencePerMonth(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seq := func(t *testing.T, date string, departure time.Time, vehicle, driver string) string {
		t.Helper()
		sc := newSchedule(t, date, vehicle, driver, model.StatusConfirmed)
		require.NoError(t, store.CreateSchedule(ctx, sc))
		trip := tripFor(sc, departure)
		require.NoError(t, store.MaterializeTrip(ctx, trip))
		return trip.SequenceNumber
	}

	assert.Equal(t, "TRP-20250310-001",
		seq(t, "2025-03-10", time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC), "V1", "D1"))
	assert.Equal(t, "TRP-20250311-002",
		seq(t, "2025-03-11", time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC), "V1", "D1"))
	// A new month starts its own counter.
	assert.Equal(t, "TRP-20250401-001",
		seq(t, "2025-04-01", time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC), "V1", "D1"))
}

func TestMaterializeTripGuards(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	departure := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	t.Run("planned schedule rejected", func(t *testing.T) {
		sc := newSchedule(t, "2025-03-10", "V1", "D1", model.StatusPlanned)
		require.NoError(t, store.CreateSchedule(ctx, sc))
		err := store.MaterializeTrip(ctx, tripFor(sc, departure))
		assert.Error(t, err)
	})

	t.Run("second materialization rejected", func(t *testing.T) {
		sc := newSchedule(t, "2025-03-11", "V2", "D2", model.StatusConfirmed)
		require.NoError(t, store.CreateSchedule(ctx, sc))
		require.NoError(t, store.MaterializeTrip(ctx, tripFor(sc, departure.AddDate(0, 0, 1))))

		err := store.MaterializeTrip(ctx, tripFor(sc, departure.AddDate(0, 0, 1)))
		assert.Error(t, err)

		trips, err := store.ListTrips(ctx, departure.AddDate(0, 0, 1))
		require.NoError(t, err)
		assert.Len(t, trips, 1)
	})

	t.Run("unknown schedule rejected", func(t *testing.T) {
		ghost := &model.Schedule{ID: uuid.NewString(), RouteID: "RT-KGL-HYE", VehicleID: "V9", DriverID: "D9", Capacity: 30}
		err := store.MaterializeTrip(ctx, tripFor(ghost, departure))
		assert.Error(t, err)
	})
}

func TestListSynthesizableSelection(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	date := mustParseDate(t, "2025-03-10")

	confirmed := newSchedule(t, "2025-03-10", "V1", "D1", model.StatusConfirmed)
	require.NoError(t, store.CreateSchedule(ctx, confirmed))
	require.NoError(t, store.CreateSchedule(ctx, newSchedule(t, "2025-03-10", "V2", "D2", model.StatusPlanned)))
	require.NoError(t, store.CreateSchedule(ctx, newSchedule(t, "2025-03-10", "V3", "D3", model.StatusCancelled)))

	pending, err := store.ListSynthesizable(ctx, date)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, confirmed.ID, pending[0].ID)

	// After materialization the schedule drops out of the selection, so a
	// rerun of the same day generates nothing.
	require.NoError(t, store.MaterializeTrip(ctx, tripFor(confirmed, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))))
	pending, err = store.ListSynthesizable(ctx, date)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestConcurrentMaterializationUniqueSequences(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	const n = 8
	schedules := make([]*model.Schedule, n)
	for i := 0; i < n; i++ {
		sc := newSchedule(t, "2025-03-10", fmt.Sprintf("V%d", i), fmt.Sprintf("D%d", i), model.StatusConfirmed)
		sc.DepartureTime = fmt.Sprintf("%02d:00", 6+i)
		require.NoError(t, store.CreateSchedule(ctx, sc))
		schedules[i] = sc
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			departure := time.Date(2025, 3, 10, 6+i, 0, 0, 0, time.UTC)
			errs[i] = store.MaterializeTrip(ctx, tripFor(schedules[i], departure))
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "writer %d", i)
	}

	trips, err := store.ListTrips(ctx, mustParseDate(t, "2025-03-10"))
	require.NoError(t, err)
	require.Len(t, trips, n)

	seen := make(map[string]struct{}, n)
	for _, trip := range trips {
		_, dup := seen[trip.SequenceNumber]
		assert.False(t, dup, "duplicate sequence %s", trip.SequenceNumber)
		seen[trip.SequenceNumber] = struct{}{}
	}
}
