// internal/api/devices.go
package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/tracklab/calsys/internal/datastore"
	"github.com/tracklab/calsys/internal/export"
)

// initDeviceRoutes registers the device endpoints.
func (c *Controller) initDeviceRoutes(group *echo.Group) {
	group.GET("/devices", c.GetDevices)
	group.GET("/devices/:id", c.GetDevice)
	group.POST("/devices", c.CreateDevice)
	group.PUT("/devices/:id", c.UpdateDevice)
	group.DELETE("/devices/:id", c.DeleteDevice)
}

// parseListFilters extracts the shared list contract from query params.
// Page size defaults to the user's items_per_page preference.
func (c *Controller) parseListFilters(ctx echo.Context) datastore.ListFilters {
	page, _ := strconv.Atoi(ctx.QueryParam("page"))
	perPage, _ := strconv.Atoi(ctx.QueryParam("per_page"))
	if perPage <= 0 {
		perPage = c.defaultPerPage(ctx)
	}

	return datastore.ListFilters{
		Search:    ctx.QueryParam("search"),
		SortBy:    ctx.QueryParam("sort_by"),
		SortOrder: ctx.QueryParam("sort_order"),
		Page:      page,
		PerPage:   perPage,
		All:       ctx.QueryParam("export") != "",
	}
}

// GetDevices handles GET /devices with filtering, search, sorting and
// pagination. With export=1 the full filtered set is streamed as a file
// instead of a JSON page.
func (c *Controller) GetDevices(ctx echo.Context) error {
	filters := &datastore.DeviceFilters{
		ListFilters: c.parseListFilters(ctx),
		Location:    ctx.QueryParam("location"),
		Type:        ctx.QueryParam("type"),
		Owner:       ctx.QueryParam("owner"),
		Period:      ctx.QueryParam("period"),
	}

	records, total, err := c.DS.SearchDevices(filters)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to query devices", http.StatusInternalServerError)
	}

	if filters.All {
		return c.sendExport(ctx, deviceExportTable(records), ctx.QueryParam("format"), "devices")
	}

	return ctx.JSON(http.StatusOK, newPaginatedResponse(records, total, &filters.ListFilters))
}

// GetDevice handles GET /devices/:id.
func (c *Controller) GetDevice(ctx echo.Context) error {
	device, err := c.DS.GetDevice(ctx.Param("id"))
	if err != nil {
		return c.handleStoreError(ctx, err, "Failed to get device")
	}
	return ctx.JSON(http.StatusOK, device)
}

// DeviceRequest is the write payload for devices.
type DeviceRequest struct {
	ID           string  `json:"id"`
	Name         *string `json:"name"`
	Description  *string `json:"description"`
	SerialNumber *string `json:"serial_number"`
	SourceID     *string `json:"source_id"`
	TypeID       *string `json:"type_id"`
	InitDate     *string `json:"init_date"`
	PeriodID     *string `json:"period_id"`
	LocationID   *string `json:"location_id"`
	OwnerID      *string `json:"owner_id"`
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// CreateDevice handles POST /devices.
func (c *Controller) CreateDevice(ctx echo.Context) error {
	var req DeviceRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid device payload", http.StatusBadRequest)
	}

	device := datastore.Device{
		ID:           req.ID,
		Name:         stringOrEmpty(req.Name),
		Description:  stringOrEmpty(req.Description),
		SerialNumber: stringOrEmpty(req.SerialNumber),
		SourceID:     stringOrEmpty(req.SourceID),
		TypeID:       stringOrEmpty(req.TypeID),
		InitDate:     stringOrEmpty(req.InitDate),
		PeriodID:     stringOrEmpty(req.PeriodID),
		LocationID:   stringOrEmpty(req.LocationID),
		OwnerID:      stringOrEmpty(req.OwnerID),
	}

	if err := c.DS.CreateDevice(&device); err != nil {
		return c.handleStoreError(ctx, err, "Failed to create device")
	}
	return ctx.JSON(http.StatusCreated, device)
}

// UpdateDevice handles PUT /devices/:id. Only supplied fields change.
func (c *Controller) UpdateDevice(ctx echo.Context) error {
	var req DeviceRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid device payload", http.StatusBadRequest)
	}

	fields := map[string]any{}
	setField(fields, "name", req.Name)
	setField(fields, "description", req.Description)
	setField(fields, "serial_number", req.SerialNumber)
	setField(fields, "source_id", req.SourceID)
	setField(fields, "type_id", req.TypeID)
	setField(fields, "init_date", req.InitDate)
	setField(fields, "period_id", req.PeriodID)
	setField(fields, "location_id", req.LocationID)
	setField(fields, "owner_id", req.OwnerID)
	if len(fields) == 0 {
		return c.HandleError(ctx, nil, "No fields to update", http.StatusBadRequest)
	}

	if err := c.DS.UpdateDevice(ctx.Param("id"), fields); err != nil {
		return c.handleStoreError(ctx, err, "Failed to update device")
	}

	device, err := c.DS.GetDevice(ctx.Param("id"))
	if err != nil {
		return c.handleStoreError(ctx, err, "Failed to reload device")
	}
	return ctx.JSON(http.StatusOK, device)
}

func setField(fields map[string]any, column string, value *string) {
	if value != nil {
		fields[column] = *value
	}
}

// DeleteDevice handles DELETE /devices/:id.
func (c *Controller) DeleteDevice(ctx echo.Context) error {
	if err := c.DS.DeleteDevice(ctx.Param("id")); err != nil {
		return c.handleStoreError(ctx, err, "Failed to delete device")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// deviceExportTable flattens enriched device records for the serializer.
// Column order matches the JSON field order of DeviceRecord.
func deviceExportTable(records []datastore.DeviceRecord) *export.Table {
	table := &export.Table{
		Columns: []string{
			"id", "name", "description", "serial_number", "source_id", "type_id",
			"init_date", "period_id", "location_id", "owner_id",
			"type_name", "location_name", "owner_name", "source_name",
		},
	}
	for i := range records {
		r := &records[i]
		table.Rows = append(table.Rows, []any{
			r.ID, r.Name, r.Description, r.SerialNumber, r.SourceID, r.TypeID,
			r.InitDate, r.PeriodID, r.LocationID, r.OwnerID,
			r.TypeName, r.LocationName, r.OwnerName, r.SourceName,
		})
	}
	return table
}
