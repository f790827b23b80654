// internal/api/devices_test.go
package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tracklab/calsys/internal/datastore"
	calerrors "github.com/tracklab/calsys/internal/errors"
)

func sampleDeviceRecords() []datastore.DeviceRecord {
	return []datastore.DeviceRecord{
		{
			Device: datastore.Device{ID: "DEV-001", Name: "Bench Meter", SerialNumber: "SN-1001",
				TypeID: "DMM", LocationID: "LAB1"},
			TypeName: "Digital Multimeter", LocationName: "Main Lab",
		},
		{
			Device: datastore.Device{ID: "DEV-002", Name: "Field Widget", SerialNumber: "SN-1002"},
		},
	}
}

func TestGetDevicesPaginatedEnvelope(t *testing.T) {
	e, controller, mockDS, _ := setupTestController(t)

	mockDS.On("SearchDevices", mock.MatchedBy(func(f *datastore.DeviceFilters) bool {
		return f.Page == 2 && f.PerPage == 5 && f.Location == "LAB1" && !f.All
	})).Return(sampleDeviceRecords(), int64(12), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/calsys/devices?page=2&per_page=5&location=LAB1", http.NoBody)
	ctx, rec := authenticatedContext(e, req)

	require.NoError(t, controller.GetDevices(ctx))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp PaginatedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(12), resp.Total)
	assert.Equal(t, 2, resp.Page)
	assert.Equal(t, 5, resp.PerPage)
	assert.Equal(t, 3, resp.Pages)

	items, ok := resp.Items.([]any)
	require.True(t, ok)
	assert.Len(t, items, 2)

	mockDS.AssertExpectations(t)
}

func TestGetDevicesUsesUserPageSizeDefault(t *testing.T) {
	e, controller, mockDS, mockUsers := setupTestController(t)

	mockUsers.On("GetUserSettings", uint(1)).
		Return(datastore.UserSettings{UserID: 1, ItemsPerPage: 25}, nil)
	mockDS.On("SearchDevices", mock.MatchedBy(func(f *datastore.DeviceFilters) bool {
		return f.PerPage == 25
	})).Return([]datastore.DeviceRecord{}, int64(0), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/calsys/devices", http.NoBody)
	ctx, rec := authenticatedContext(e, req)

	require.NoError(t, controller.GetDevices(ctx))
	assert.Equal(t, http.StatusOK, rec.Code)
	mockDS.AssertExpectations(t)
}

func TestGetDevicesExport(t *testing.T) {
	e, controller, mockDS, _ := setupTestController(t)

	mockDS.On("SearchDevices", mock.MatchedBy(func(f *datastore.DeviceFilters) bool {
		return f.All
	})).Return(sampleDeviceRecords(), int64(2), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/calsys/devices?export=1&format=csv&per_page=5", http.NoBody)
	ctx, rec := authenticatedContext(e, req)

	require.NoError(t, controller.GetDevices(ctx))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get(echo.HeaderContentType))

	disposition := rec.Header().Get(echo.HeaderContentDisposition)
	assert.Contains(t, disposition, "attachment")
	assert.Contains(t, disposition, "devices_")
	assert.Contains(t, disposition, ".csv")

	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "id,name,"), "CSV starts with the header row")
	assert.Contains(t, body, "DEV-001")
	assert.Contains(t, body, "Digital Multimeter")
}

func TestGetDeviceNotFound(t *testing.T) {
	e, controller, mockDS, _ := setupTestController(t)

	mockDS.On("GetDevice", "MISSING").
		Return(datastore.Device{}, calerrors.NotFoundError("device", "MISSING"))

	req := httptest.NewRequest(http.MethodGet, "/api/calsys/devices/MISSING", http.NoBody)
	ctx, rec := authenticatedContext(e, req)
	ctx.SetParamNames("id")
	ctx.SetParamValues("MISSING")

	require.NoError(t, controller.GetDevice(ctx))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, decodeError(t, rec).CorrelationID)
}

func TestCreateDevice(t *testing.T) {
	e, controller, mockDS, _ := setupTestController(t)

	mockDS.On("CreateDevice", mock.MatchedBy(func(d *datastore.Device) bool {
		return d.ID == "DEV-010" && d.Name == "New Meter"
	})).Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/calsys/devices",
		strings.NewReader(`{"id":"DEV-010","name":"New Meter","location_id":"LAB1"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	ctx, rec := authenticatedContext(e, req)

	require.NoError(t, controller.CreateDevice(ctx))
	assert.Equal(t, http.StatusCreated, rec.Code)
	mockDS.AssertExpectations(t)
}

func TestCreateDeviceConflict(t *testing.T) {
	e, controller, mockDS, _ := setupTestController(t)

	mockDS.On("CreateDevice", mock.Anything).
		Return(calerrors.ConflictError("device", "id", "DEV-001"))

	req := httptest.NewRequest(http.MethodPost, "/api/calsys/devices",
		strings.NewReader(`{"id":"DEV-001","name":"Duplicate"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	ctx, rec := authenticatedContext(e, req)

	require.NoError(t, controller.CreateDevice(ctx))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUpdateDevicePartialFields(t *testing.T) {
	e, controller, mockDS, _ := setupTestController(t)

	// Only the supplied fields reach the store.
	mockDS.On("UpdateDevice", "DEV-001", map[string]any{"name": "Renamed"}).Return(nil)
	mockDS.On("GetDevice", "DEV-001").
		Return(datastore.Device{ID: "DEV-001", Name: "Renamed"}, nil)

	req := httptest.NewRequest(http.MethodPut, "/api/calsys/devices/DEV-001",
		strings.NewReader(`{"name":"Renamed"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	ctx, rec := authenticatedContext(e, req)
	ctx.SetParamNames("id")
	ctx.SetParamValues("DEV-001")

	require.NoError(t, controller.UpdateDevice(ctx))
	assert.Equal(t, http.StatusOK, rec.Code)
	mockDS.AssertExpectations(t)
}

func TestUpdateDeviceNoFields(t *testing.T) {
	e, controller, _, _ := setupTestController(t)

	req := httptest.NewRequest(http.MethodPut, "/api/calsys/devices/DEV-001",
		strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	ctx, rec := authenticatedContext(e, req)
	ctx.SetParamNames("id")
	ctx.SetParamValues("DEV-001")

	require.NoError(t, controller.UpdateDevice(ctx))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteDeviceWithHistory(t *testing.T) {
	e, controller, mockDS, _ := setupTestController(t)

	mockDS.On("DeleteDevice", "DEV-001").
		Return(calerrors.ConflictError("device", "calibrations", "DEV-001"))

	req := httptest.NewRequest(http.MethodDelete, "/api/calsys/devices/DEV-001", http.NoBody)
	ctx, rec := authenticatedContext(e, req)
	ctx.SetParamNames("id")
	ctx.SetParamValues("DEV-001")

	require.NoError(t, controller.DeleteDevice(ctx))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDeleteDevice(t *testing.T) {
	e, controller, mockDS, _ := setupTestController(t)

	mockDS.On("DeleteDevice", "DEV-002").Return(nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/calsys/devices/DEV-002", http.NoBody)
	ctx, rec := authenticatedContext(e, req)
	ctx.SetParamNames("id")
	ctx.SetParamValues("DEV-002")

	require.NoError(t, controller.DeleteDevice(ctx))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
