// internal/api/lookup.go
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tracklab/calsys/internal/datastore"
	"github.com/tracklab/calsys/internal/export"
)

// initLookupRoutes registers the generic reference-table endpoints.
func (c *Controller) initLookupRoutes(group *echo.Group) {
	group.GET("/lookup/:table", c.GetLookup)
	group.POST("/lookup/:table", c.SaveLookupEntry)
	group.PUT("/lookup/:table", c.SaveLookupEntry)
	group.DELETE("/lookup/:table/:id", c.DeleteLookupEntry)
}

// GetLookup handles GET /lookup/:table for all reference tables with the
// shared search/sort/pagination contract. Unknown table tokens are a 404
// with an explicit error, never a data response.
func (c *Controller) GetLookup(ctx echo.Context) error {
	table := ctx.Param("table")
	if !datastore.ValidLookupTable(table) {
		return c.HandleError(ctx, nil, "Invalid lookup table", http.StatusNotFound)
	}

	filters := c.parseListFilters(ctx)
	records, total, err := c.DS.SearchLookup(table, &filters)
	if err != nil {
		return c.handleStoreError(ctx, err, "Failed to query lookup table")
	}

	if filters.All {
		return c.sendExport(ctx, lookupExportTable(records), ctx.QueryParam("format"), table)
	}

	return ctx.JSON(http.StatusOK, newPaginatedResponse(records, total, &filters))
}

// SaveLookupEntry handles POST and PUT /lookup/:table.
func (c *Controller) SaveLookupEntry(ctx echo.Context) error {
	table := ctx.Param("table")
	if !datastore.ValidLookupTable(table) {
		return c.HandleError(ctx, nil, "Invalid lookup table", http.StatusNotFound)
	}

	var record datastore.LookupRecord
	if err := ctx.Bind(&record); err != nil {
		return c.HandleError(ctx, err, "Invalid lookup payload", http.StatusBadRequest)
	}

	if err := c.DS.SaveLookupEntry(table, &record); err != nil {
		return c.handleStoreError(ctx, err, "Failed to save lookup entry")
	}
	return ctx.JSON(http.StatusOK, record)
}

// DeleteLookupEntry handles DELETE /lookup/:table/:id.
func (c *Controller) DeleteLookupEntry(ctx echo.Context) error {
	table := ctx.Param("table")
	if !datastore.ValidLookupTable(table) {
		return c.HandleError(ctx, nil, "Invalid lookup table", http.StatusNotFound)
	}

	if err := c.DS.DeleteLookupEntry(table, ctx.Param("id")); err != nil {
		return c.handleStoreError(ctx, err, "Failed to delete lookup entry")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func lookupExportTable(records []datastore.LookupRecord) *export.Table {
	table := &export.Table{
		Columns: []string{"id", "name", "user_init", "proc_link"},
	}
	for i := range records {
		r := &records[i]
		table.Rows = append(table.Rows, []any{r.ID, r.Name, r.UserInit, r.ProcLink})
	}
	return table
}
