package dispatch

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fleetops/internal/model"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateSchedule(ctx context.Context, sc *model.Schedule) error {
	return m.Called(ctx, sc).Error(0)
}
func (m *mockStore) UpdateSchedule(ctx context.Context, sc *model.Schedule) error {
	return m.Called(ctx, sc).Error(0)
}
func (m *mockStore) GetSchedule(ctx context.Context, id string) (*model.Schedule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Schedule), args.Error(1)
}
func (m *mockStore) ListSchedules(ctx context.Context, date time.Time, status, vehicleID string) ([]model.Schedule, error) {
	args := m.Called(ctx, date, status, vehicleID)
	return args.Get(0).([]model.Schedule), args.Error(1)
}
func (m *mockStore) BookedResources(ctx context.Context, date time.Time) (map[string]string, map[string]string, error) {
	args := m.Called(ctx, date)
	return args.Get(0).(map[string]string), args.Get(1).(map[string]string), args.Error(2)
}
func (m *mockStore) ListSynthesizable(ctx context.Context, date time.Time) ([]model.Schedule, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Schedule), args.Error(1)
}
func (m *mockStore) MaterializeTrip(ctx context.Context, trip *model.Trip) error {
	return m.Called(ctx, trip).Error(0)
}

type mockFleet struct {
	mock.Mock
}

func (m *mockFleet) ListActiveVehicles(ctx context.Context, terminal string) ([]model.Vehicle, error) {
	args := m.Called(ctx, terminal)
	return args.Get(0).([]model.Vehicle), args.Error(1)
}
func (m *mockFleet) ListActiveDrivers(ctx context.Context, terminal string) ([]model.Driver, error) {
	args := m.Called(ctx, terminal)
	return args.Get(0).([]model.Driver), args.Error(1)
}
func (m *mockFleet) GetVehicle(ctx context.Context, id string) (*model.Vehicle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Vehicle), args.Error(1)
}

type mockRoutes struct {
	mock.Mock
}

func (m *mockRoutes) GetRoute(ctx context.Context, id string) (*model.Route, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Route), args.Error(1)
}

type mockBus struct {
	mock.Mock
}

func (m *mockBus) PublishJSON(eventType string, payload interface{}) error {
	return m.Called(eventType, payload).Error(0)
}

func newTestService(store *mockStore, fleet *mockFleet, routes *mockRoutes, bus *mockBus) *Service {
	logger := zerolog.New(io.Discard)
	return NewService(store, fleet, routes, bus, time.UTC, &logger)
}

func testDate(t *testing.T) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", "2025-03-10")
	require.NoError(t, err)
	return d
}

func TestUpsertScheduleValidation(t *testing.T) {
	svc := newTestService(new(mockStore), new(mockFleet), new(mockRoutes), new(mockBus))
	ctx := context.Background()
	date := testDate(t)

	base := ScheduleInput{
		OperatingDate: date,
		RouteID:       "R1",
		DepartureTime: "09:00",
		VehicleID:     "V1",
		DriverID:      "D1",
		Capacity:      50,
	}

	t.Run("malformed time", func(t *testing.T) {
		in := base
		in.DepartureTime = "25:00"
		_, err := svc.UpsertSchedule(ctx, in)
		assert.True(t, IsValidation(err))

		in.DepartureTime = "9:61"
		_, err = svc.UpsertSchedule(ctx, in)
		assert.True(t, IsValidation(err))
	})

	t.Run("single digit hour accepted by pattern", func(t *testing.T) {
		in := base
		in.DepartureTime = "9:05"
		store := new(mockStore)
		bus := new(mockBus)
		store.On("CreateSchedule", ctx, mock.Anything).Return(nil).Once()
		bus.On("PublishJSON", mock.Anything, mock.Anything).Return(nil)
		svc := newTestService(store, new(mockFleet), new(mockRoutes), bus)
		_, err := svc.UpsertSchedule(ctx, in)
		assert.NoError(t, err)
	})

	t.Run("negative capacity", func(t *testing.T) {
		in := base
		in.Capacity = -1
		_, err := svc.UpsertSchedule(ctx, in)
		assert.True(t, IsValidation(err))
	})

	t.Run("missing fields", func(t *testing.T) {
		for _, mutate := range []func(*ScheduleInput){
			func(in *ScheduleInput) { in.OperatingDate = time.Time{} },
			func(in *ScheduleInput) { in.RouteID = "" },
			func(in *ScheduleInput) { in.VehicleID = "" },
			func(in *ScheduleInput) { in.DriverID = "" },
		} {
			in := base
			mutate(&in)
			_, err := svc.UpsertSchedule(ctx, in)
			assert.True(t, IsValidation(err))
		}
	})

	t.Run("unknown status", func(t *testing.T) {
		in := base
		in.Status = "parked"
		_, err := svc.UpsertSchedule(ctx, in)
		assert.True(t, IsValidation(err))
	})
}

func TestUpsertScheduleCreate(t *testing.T) {
	ctx := context.Background()
	date := testDate(t)

	store := new(mockStore)
	bus := new(mockBus)
	store.On("CreateSchedule", ctx, mock.MatchedBy(func(sc *model.Schedule) bool {
		return sc.ID != "" && sc.Status == model.StatusPlanned && sc.Capacity == 50
	})).Return(nil).Once()
	bus.On("PublishJSON", "schedule.created", mock.Anything).Return(nil).Once()

	svc := newTestService(store, new(mockFleet), new(mockRoutes), bus)
	sc, err := svc.UpsertSchedule(ctx, ScheduleInput{
		OperatingDate: date,
		RouteID:       "R1",
		DepartureTime: "09:00",
		VehicleID:     "V1",
		DriverID:      "D1",
		Capacity:      50,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, sc.ID)
	assert.Equal(t, model.StatusPlanned, sc.Status)
	store.AssertExpectations(t)
	bus.AssertExpectations(t)
}

func TestUpsertScheduleCopiesVehicleCapacity(t *testing.T) {
	ctx := context.Background()
	date := testDate(t)

	store := new(mockStore)
	fleet := new(mockFleet)
	bus := new(mockBus)
	fleet.On("GetVehicle", ctx, "V1").Return(&model.Vehicle{ID: "V1", Capacity: 50, Terminal: "Kigali", IsActive: true}, nil).Once()
	store.On("CreateSchedule", ctx, mock.MatchedBy(func(sc *model.Schedule) bool {
		return sc.Capacity == 50
	})).Return(nil).Once()
	bus.On("PublishJSON", mock.Anything, mock.Anything).Return(nil)

	svc := newTestService(store, fleet, new(mockRoutes), bus)
	sc, err := svc.UpsertSchedule(ctx, ScheduleInput{
		OperatingDate: date,
		RouteID:       "R1",
		DepartureTime: "09:00",
		VehicleID:     "V1",
		DriverID:      "D1",
	})
	require.NoError(t, err)
	assert.Equal(t, 50, sc.Capacity)
	fleet.AssertExpectations(t)
}

func TestUpsertScheduleConflict(t *testing.T) {
	ctx := context.Background()
	date := testDate(t)

	store := new(mockStore)
	bus := new(mockBus)
	conflict := &ConflictError{Resource: "vehicle", ResourceID: "V1", ScheduleID: "sched-1"}
	store.On("CreateSchedule", ctx, mock.Anything).Return(conflict).Once()
	bus.On("PublishJSON", "schedule.conflict", mock.Anything).Return(nil).Once()

	svc := newTestService(store, new(mockFleet), new(mockRoutes), bus)
	_, err := svc.UpsertSchedule(ctx, ScheduleInput{
		OperatingDate: date,
		RouteID:       "R1",
		DepartureTime: "09:00",
		VehicleID:     "V1",
		DriverID:      "D2",
		Capacity:      50,
	})
	require.Error(t, err)
	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "vehicle", ce.Resource)
	assert.Equal(t, "V1", ce.ResourceID)
	assert.Equal(t, "sched-1", ce.ScheduleID)
	bus.AssertExpectations(t)
}

func TestUpsertScheduleUpdate(t *testing.T) {
	ctx := context.Background()
	date := testDate(t)

	store := new(mockStore)
	bus := new(mockBus)
	store.On("UpdateSchedule", ctx, mock.MatchedBy(func(sc *model.Schedule) bool {
		return sc.ID == "sched-1" && sc.Status == model.StatusCancelled
	})).Return(nil).Once()
	bus.On("PublishJSON", "schedule.updated", mock.Anything).Return(nil).Once()

	svc := newTestService(store, new(mockFleet), new(mockRoutes), bus)
	_, err := svc.UpsertSchedule(ctx, ScheduleInput{
		ID:            "sched-1",
		OperatingDate: date,
		RouteID:       "R1",
		DepartureTime: "09:00",
		VehicleID:     "V1",
		DriverID:      "D1",
		Capacity:      50,
		Status:        model.StatusCancelled,
	})
	require.NoError(t, err)
	store.AssertExpectations(t)
	bus.AssertExpectations(t)
}

func TestListSchedulesRejectsUnknownStatus(t *testing.T) {
	svc := newTestService(new(mockStore), new(mockFleet), new(mockRoutes), new(mockBus))
	_, err := svc.ListSchedules(context.Background(), testDate(t), "parked", "")
	assert.True(t, IsValidation(err))
}
