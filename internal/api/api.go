// internal/api/api.go
package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/tracklab/calsys/internal/conf"
	"github.com/tracklab/calsys/internal/datastore"
	calerrors "github.com/tracklab/calsys/internal/errors"
	"github.com/tracklab/calsys/internal/export"
	"github.com/tracklab/calsys/internal/logging"
	"github.com/tracklab/calsys/internal/security"
)

// Controller manages the API routes and handlers for the calibration
// system.
type Controller struct {
	Echo     *echo.Echo
	Group    *echo.Group
	DS       datastore.Interface
	Users    datastore.UserStoreInterface
	Settings *conf.Settings
	Sessions *security.Manager

	apiLogger *slog.Logger
}

// New creates the API controller and registers all routes under
// /api/calsys.
func New(e *echo.Echo, ds datastore.Interface, users datastore.UserStoreInterface, settings *conf.Settings, sessions *security.Manager) *Controller {
	c := &Controller{
		Echo:      e,
		DS:        ds,
		Users:     users,
		Settings:  settings,
		Sessions:  sessions,
		apiLogger: logging.ForService("api"),
	}

	c.Group = e.Group("/api/calsys")
	c.initRoutes()

	return c
}

// initRoutes registers all API endpoints. Everything except login and
// registration sits behind the session gate.
func (c *Controller) initRoutes() {
	c.initAuthRoutes()

	protected := c.Group.Group("", c.Sessions.LoginRequired())
	c.initDeviceRoutes(protected)
	c.initCalibrationRoutes(protected)
	c.initLookupRoutes(protected)
	c.initReportRoutes(protected)
	c.initSettingsRoutes(protected)
}

// PaginatedResponse is the envelope for all list endpoints.
type PaginatedResponse struct {
	Items   any   `json:"items"`
	Total   int64 `json:"total"`
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
	Pages   int   `json:"pages"`
}

func newPaginatedResponse(items any, total int64, filters *datastore.ListFilters) PaginatedResponse {
	pages := int((total + int64(filters.PerPage) - 1) / int64(filters.PerPage))
	return PaginatedResponse{
		Items:   items,
		Total:   total,
		Page:    filters.Page,
		PerPage: filters.PerPage,
		Pages:   pages,
	}
}

// ErrorResponse is the standard JSON error body.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
}

// NewErrorResponse creates an error response with a short correlation ID
// for log cross-referencing.
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	resp := &ErrorResponse{
		Message:       message,
		Code:          code,
		CorrelationID: uuid.NewString()[:8],
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}

// HandleError logs the error and returns the standard JSON error body.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	errorResp := NewErrorResponse(err, message, code)

	if c.apiLogger != nil {
		errorStr := message
		if err != nil {
			errorStr = err.Error()
		}
		c.apiLogger.Error("API Error",
			"correlation_id", errorResp.CorrelationID,
			"message", message,
			"error", errorStr,
			"code", code,
			"path", ctx.Request().URL.Path,
			"method", ctx.Request().Method,
			"ip", ctx.RealIP(),
		)
	}

	return ctx.JSON(code, errorResp)
}

// handleStoreError maps datastore sentinel errors onto HTTP status codes.
func (c *Controller) handleStoreError(ctx echo.Context, err error, message string) error {
	switch {
	case calerrors.Is(err, calerrors.ErrNotFound):
		return c.HandleError(ctx, err, message, http.StatusNotFound)
	case calerrors.Is(err, calerrors.ErrConflict):
		return c.HandleError(ctx, err, message, http.StatusConflict)
	}

	var enhanced *calerrors.EnhancedError
	if calerrors.As(err, &enhanced) && enhanced.Category == calerrors.CategoryValidation {
		return c.HandleError(ctx, err, message, http.StatusBadRequest)
	}

	return c.HandleError(ctx, err, message, http.StatusInternalServerError)
}

// currentUserID returns the principal published by the auth middleware.
func (c *Controller) currentUserID(ctx echo.Context) (uint, bool) {
	userID, ok := ctx.Get(security.ContextKeyUserID).(uint)
	return userID, ok
}

// defaultPerPage resolves the page size default for the current user:
// their stored items_per_page preference when available, the configured
// default otherwise.
func (c *Controller) defaultPerPage(ctx echo.Context) int {
	fallback := c.Settings.Defaults.ItemsPerPage
	if fallback <= 0 {
		fallback = datastore.DefaultPerPage
	}

	userID, ok := c.currentUserID(ctx)
	if !ok {
		return fallback
	}
	settings, err := c.Users.GetUserSettings(userID)
	if err != nil || settings.ItemsPerPage <= 0 {
		return fallback
	}
	return settings.ItemsPerPage
}

// sendExport streams a rendered table as a timestamped file download.
func (c *Controller) sendExport(ctx echo.Context, table *export.Table, formatToken, prefix string) error {
	format := export.ParseFormat(formatToken)
	blob, err := export.Render(table, format)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to render export", http.StatusInternalServerError)
	}

	filename := export.Filename(prefix, format, time.Now())
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return ctx.Blob(http.StatusOK, format.Mimetype(), blob)
}
