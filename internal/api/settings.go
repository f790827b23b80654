// internal/api/settings.go
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	calerrors "github.com/tracklab/calsys/internal/errors"
)

// initSettingsRoutes registers the per-user settings endpoints.
func (c *Controller) initSettingsRoutes(group *echo.Group) {
	group.GET("/settings", c.GetSettings)
	group.PUT("/settings", c.UpdateSettings)
	group.POST("/settings", c.UpdateSettings)
}

// SettingsRequest is the write payload for user settings. Only supplied
// fields change.
type SettingsRequest struct {
	Theme        *string `json:"theme"`
	ItemsPerPage *int    `json:"items_per_page"`
}

// GetSettings handles GET /settings, creating the default row on first
// access.
func (c *Controller) GetSettings(ctx echo.Context) error {
	userID, ok := c.currentUserID(ctx)
	if !ok {
		return c.HandleError(ctx, nil, "Authentication required", http.StatusUnauthorized)
	}

	settings, err := c.Users.GetUserSettings(userID)
	if err != nil {
		return c.handleStoreError(ctx, err, "Failed to load settings")
	}
	return ctx.JSON(http.StatusOK, settings)
}

// UpdateSettings handles PUT/POST /settings. Last writer wins.
func (c *Controller) UpdateSettings(ctx echo.Context) error {
	userID, ok := c.currentUserID(ctx)
	if !ok {
		return c.HandleError(ctx, nil, "Authentication required", http.StatusUnauthorized)
	}

	var req SettingsRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid settings payload", http.StatusBadRequest)
	}

	settings, err := c.Users.GetUserSettings(userID)
	if err != nil {
		return c.handleStoreError(ctx, err, "Failed to load settings")
	}

	if req.Theme != nil {
		settings.Theme = *req.Theme
	}
	if req.ItemsPerPage != nil {
		if *req.ItemsPerPage < 1 {
			return c.HandleError(ctx, calerrors.ValidationError("items_per_page must be positive"),
				"Invalid settings payload", http.StatusBadRequest)
		}
		settings.ItemsPerPage = *req.ItemsPerPage
	}

	if err := c.Users.SaveUserSettings(&settings); err != nil {
		return c.handleStoreError(ctx, err, "Failed to save settings")
	}
	return ctx.JSON(http.StatusOK, settings)
}
