package manifest

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"fleetops/internal/dispatch"
	"fleetops/internal/model"
)

type staticRoutes map[string]*model.Route

func (r staticRoutes) GetRoute(_ context.Context, id string) (*model.Route, error) {
	route, ok := r[id]
	if !ok {
		return nil, &dispatch.NotFoundError{Kind: "route", ID: id}
	}
	return route, nil
}

func sampleTrip(seq, routeID string, departure time.Time) model.Trip {
	return model.Trip{
		ID:                 "trip-" + seq,
		SequenceNumber:     seq,
		RouteID:            routeID,
		VehicleID:          "RAD-450-C",
		DriverID:           "DRV-001",
		ScheduledDeparture: departure,
		ScheduledArrival:   departure.Add(3 * time.Hour),
		Capacity:           50,
		Fare:               3500,
	}
}

func TestWriteDayGroupsByTerminal(t *testing.T) {
	routes := staticRoutes{
		"R1": {ID: "R1", Name: "Kigali - Huye", Terminal: "Kigali"},
		"R2": {ID: "R2", Name: "Huye - Kigali", Terminal: "Huye"},
	}
	departure := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	trips := []model.Trip{
		sampleTrip("TRP-20250310-001", "R1", departure),
		sampleTrip("TRP-20250310-002", "R2", departure.Add(time.Hour)),
		sampleTrip("TRP-20250310-003", "R-gone", departure.Add(2*time.Hour)),
	}

	var buf bytes.Buffer
	exporter := NewExporter(routes)
	require.NoError(t, exporter.WriteDay(context.Background(), departure, trips, &buf))

	file, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer file.Close()

	assert.ElementsMatch(t, []string{"Huye", "Kigali", "Unknown"}, file.GetSheetList())

	rows, err := file.GetRows("Kigali")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, columns, rows[0])
	assert.Equal(t, "TRP-20250310-001", rows[1][0])
	assert.Equal(t, "Kigali - Huye", rows[1][1])
	assert.Equal(t, "09:00", rows[1][4])

	// The unresolvable route keeps its raw id.
	unknown, err := file.GetRows("Unknown")
	require.NoError(t, err)
	require.Len(t, unknown, 2)
	assert.Equal(t, "R-gone", unknown[1][1])
}

func TestWriteDayEmpty(t *testing.T) {
	var buf bytes.Buffer
	exporter := NewExporter(staticRoutes{})
	require.NoError(t, exporter.WriteDay(context.Background(), time.Now(), nil, &buf))

	file, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer file.Close()
	assert.Equal(t, []string{"Trips"}, file.GetSheetList())
}
