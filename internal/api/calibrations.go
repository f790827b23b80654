// internal/api/calibrations.go
package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/tracklab/calsys/internal/datastore"
	"github.com/tracklab/calsys/internal/export"
)

// initCalibrationRoutes registers the calibration endpoints.
func (c *Controller) initCalibrationRoutes(group *echo.Group) {
	group.GET("/calibrations", c.GetCalibrations)
	group.GET("/calibrations/:id", c.GetCalibration)
	group.POST("/calibrations", c.CreateCalibration)
	group.PUT("/calibrations/:id", c.UpdateCalibration)
	group.DELETE("/calibrations/:id", c.DeleteCalibration)
}

// GetCalibrations handles GET /calibrations with filtering, search,
// sorting and pagination. Defaults to newest completion date first.
func (c *Controller) GetCalibrations(ctx echo.Context) error {
	filters := &datastore.CalibrationFilters{
		ListFilters: c.parseListFilters(ctx),
		DeviceID:    ctx.QueryParam("device_id"),
		Status:      ctx.QueryParam("status"),
		EmployeeID:  ctx.QueryParam("employee_id"),
		StartDate:   ctx.QueryParam("start_date"),
		EndDate:     ctx.QueryParam("end_date"),
	}

	records, total, err := c.DS.SearchCalibrations(filters)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to query calibrations", http.StatusInternalServerError)
	}

	if filters.All {
		return c.sendExport(ctx, calibrationExportTable(records), ctx.QueryParam("format"), "calibrations")
	}

	return ctx.JSON(http.StatusOK, newPaginatedResponse(records, total, &filters.ListFilters))
}

// GetCalibration handles GET /calibrations/:id.
func (c *Controller) GetCalibration(ctx echo.Context) error {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid calibration id", http.StatusBadRequest)
	}

	calibration, err := c.DS.GetCalibration(uint(id))
	if err != nil {
		return c.handleStoreError(ctx, err, "Failed to get calibration")
	}
	return ctx.JSON(http.StatusOK, calibration)
}

// CalibrationRequest is the write payload for calibrations.
type CalibrationRequest struct {
	DeviceID       string  `json:"device_id"`
	CalibratedByID *string `json:"calibrated_by_id"`
	EmployeeID     *string `json:"employee_id"`
	StatusID       *string `json:"status_id"`
	CalDate        *string `json:"cal_date"`
	CalDue         *string `json:"cal_due"`
	Record         *string `json:"record"`
}

// CreateCalibration handles POST /calibrations.
func (c *Controller) CreateCalibration(ctx echo.Context) error {
	var req CalibrationRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid calibration payload", http.StatusBadRequest)
	}

	calibration := datastore.Calibration{
		DeviceID:       req.DeviceID,
		CalibratedByID: stringOrEmpty(req.CalibratedByID),
		EmployeeID:     stringOrEmpty(req.EmployeeID),
		StatusID:       stringOrEmpty(req.StatusID),
		CalDate:        stringOrEmpty(req.CalDate),
		CalDue:         stringOrEmpty(req.CalDue),
		Record:         stringOrEmpty(req.Record),
	}

	if err := c.DS.CreateCalibration(&calibration); err != nil {
		return c.handleStoreError(ctx, err, "Failed to create calibration")
	}
	return ctx.JSON(http.StatusCreated, calibration)
}

// UpdateCalibration handles PUT /calibrations/:id. Only supplied fields
// change; edits to historic rows are last-writer-wins.
func (c *Controller) UpdateCalibration(ctx echo.Context) error {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid calibration id", http.StatusBadRequest)
	}

	var req CalibrationRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid calibration payload", http.StatusBadRequest)
	}

	fields := map[string]any{}
	setField(fields, "calibrated_by_id", req.CalibratedByID)
	setField(fields, "employee_id", req.EmployeeID)
	setField(fields, "status_id", req.StatusID)
	setField(fields, "cal_date", req.CalDate)
	setField(fields, "cal_due", req.CalDue)
	setField(fields, "record", req.Record)
	if len(fields) == 0 {
		return c.HandleError(ctx, nil, "No fields to update", http.StatusBadRequest)
	}

	if err := c.DS.UpdateCalibration(uint(id), fields); err != nil {
		return c.handleStoreError(ctx, err, "Failed to update calibration")
	}

	calibration, err := c.DS.GetCalibration(uint(id))
	if err != nil {
		return c.handleStoreError(ctx, err, "Failed to reload calibration")
	}
	return ctx.JSON(http.StatusOK, calibration)
}

// DeleteCalibration handles DELETE /calibrations/:id.
func (c *Controller) DeleteCalibration(ctx echo.Context) error {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid calibration id", http.StatusBadRequest)
	}

	if err := c.DS.DeleteCalibration(uint(id)); err != nil {
		return c.handleStoreError(ctx, err, "Failed to delete calibration")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// calibrationExportTable flattens enriched calibration records for the
// serializer.
func calibrationExportTable(records []datastore.CalibrationRecord) *export.Table {
	table := &export.Table{
		Columns: []string{
			"id", "device_id", "calibrated_by_id", "employee_id", "status_id",
			"cal_date", "cal_due", "record",
			"device_name", "calibrated_by_name", "employee_name", "status_name",
		},
	}
	for i := range records {
		r := &records[i]
		table.Rows = append(table.Rows, []any{
			r.ID, r.DeviceID, r.CalibratedByID, r.EmployeeID, r.StatusID,
			r.CalDate, r.CalDue, r.Record,
			r.DeviceName, r.CalibratedByName, r.EmployeeName, r.StatusName,
		})
	}
	return table
}
