// internal/api/reports.go
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tracklab/calsys/internal/datastore"
	"github.com/tracklab/calsys/internal/export"
)

// initReportRoutes registers the reporting view endpoints.
func (c *Controller) initReportRoutes(group *echo.Group) {
	group.GET("/calibration-due", c.GetCalibrationDue)
	group.GET("/cal-export", c.GetCalExport)
}

// GetCalibrationDue handles GET /calibration-due: each device's latest
// calibration with its next-due date, ordered soonest first. With
// export=1 the report is streamed as a file.
func (c *Controller) GetCalibrationDue(ctx echo.Context) error {
	records, err := c.DS.CalibrationDue()
	if err != nil {
		return c.HandleError(ctx, err, "Failed to build calibration-due report", http.StatusInternalServerError)
	}

	if ctx.QueryParam("export") != "" {
		return c.sendExport(ctx, dueExportTable(records), ctx.QueryParam("format"), "calibration_due")
	}

	return ctx.JSON(http.StatusOK, records)
}

// GetCalExport handles GET /cal-export: the latest Active/CalInv
// calibration per device in the fixed export projection.
func (c *Controller) GetCalExport(ctx echo.Context) error {
	records, err := c.DS.CalExport()
	if err != nil {
		return c.HandleError(ctx, err, "Failed to build cal-export report", http.StatusInternalServerError)
	}

	if ctx.QueryParam("export") != "" {
		return c.sendExport(ctx, calExportExportTable(records), ctx.QueryParam("format"), "cal_export")
	}

	return ctx.JSON(http.StatusOK, records)
}

func dueExportTable(records []datastore.DueRecord) *export.Table {
	table := &export.Table{
		Columns: []string{
			"calibration_id", "device_id", "device_name", "description",
			"type_id", "location_id", "status_id", "cal_date", "cal_due", "period_id",
		},
	}
	for i := range records {
		r := &records[i]
		table.Rows = append(table.Rows, []any{
			r.CalibrationID, r.DeviceID, r.DeviceName, r.Description,
			r.TypeID, r.LocationID, r.StatusID, r.CalDate, r.CalDue, r.PeriodID,
		})
	}
	return table
}

func calExportExportTable(records []datastore.CalExportRecord) *export.Table {
	table := &export.Table{
		Columns: []string{
			"location_id", "device_name", "calibration_id", "user_init",
			"employee_id", "cal_date", "cal_due", "status_id",
		},
	}
	for i := range records {
		r := &records[i]
		table.Rows = append(table.Rows, []any{
			r.LocationID, r.DeviceName, r.CalibrationID, r.UserInit,
			r.EmployeeID, r.CalDate, r.CalDue, r.StatusID,
		})
	}
	return table
}
