// Package manifest renders a day's synthesized trips as an Excel workbook,
// one sheet per departure terminal, for printing at the terminal desks.
package manifest

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"fleetops/internal/model"
)

var columns = []string{"Sequence", "Route", "Vehicle", "Driver", "Departure", "Arrival", "Capacity", "Fare"}

// RouteResolver resolves route metadata for sheet grouping and names.
type RouteResolver interface {
	GetRoute(ctx context.Context, id string) (*model.Route, error)
}

// Exporter builds day manifests.
type Exporter struct {
	routes RouteResolver
}

func NewExporter(routes RouteResolver) *Exporter {
	return &Exporter{routes: routes}
}

// WriteDay writes the manifest workbook for the given trips to w. Trips
// whose route cannot be resolved land on an "Unknown" sheet rather than
// failing the export.
func (e *Exporter) WriteDay(ctx context.Context, date time.Time, trips []model.Trip, w io.Writer) error {
	file := excelize.NewFile()
	defer file.Close()

	byTerminal := make(map[string][]row)
	for _, t := range trips {
		terminal := "Unknown"
		routeName := t.RouteID
		if route, err := e.routes.GetRoute(ctx, t.RouteID); err == nil {
			terminal = route.Terminal
			if route.Name != "" {
				routeName = route.Name
			}
		}
		byTerminal[terminal] = append(byTerminal[terminal], row{trip: t, routeName: routeName})
	}

	terminals := make([]string, 0, len(byTerminal))
	for terminal := range byTerminal {
		terminals = append(terminals, terminal)
	}
	sort.Strings(terminals)

	if len(terminals) == 0 {
		terminals = []string{"Trips"}
		byTerminal["Trips"] = nil
	}

	for i, terminal := range terminals {
		sheet := sheetName(terminal)
		if i == 0 {
			file.SetSheetName("Sheet1", sheet)
		} else {
			if _, err := file.NewSheet(sheet); err != nil {
				return fmt.Errorf("create sheet %s: %w", sheet, err)
			}
		}
		if err := writeSheet(file, sheet, byTerminal[terminal]); err != nil {
			return err
		}
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

type row struct {
	trip      model.Trip
	routeName string
}

func writeSheet(file *excelize.File, sheet string, rows []row) error {
	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := file.SetCellValue(sheet, cell, col); err != nil {
			return err
		}
	}

	// Bold header
	style, err := file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err == nil {
		startCell, _ := excelize.CoordinatesToCellName(1, 1)
		endCell, _ := excelize.CoordinatesToCellName(len(columns), 1)
		_ = file.SetCellStyle(sheet, startCell, endCell, style)
	}

	for i, r := range rows {
		values := []interface{}{
			r.trip.SequenceNumber,
			r.routeName,
			r.trip.VehicleID,
			r.trip.DriverID,
			r.trip.ScheduledDeparture.Format("15:04"),
			r.trip.ScheduledArrival.Format("2006-01-02 15:04"),
			r.trip.Capacity,
			r.trip.Fare,
		}
		for j, v := range values {
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return err
			}
			if err := file.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// sheetName truncates to Excel's 31-char sheet name limit.
func sheetName(name string) string {
	if len(name) > 31 {
		return name[:31]
	}
	return name
}
