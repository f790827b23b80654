// internal/api/reports_test.go
package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tracklab/calsys/internal/datastore"
)

func TestGetCalibrationDue(t *testing.T) {
	e, controller, mockDS, _ := setupTestController(t)

	records := []datastore.DueRecord{
		{CalibrationID: 4, DeviceID: "DEV-002", DeviceName: "Field Widget",
			CalDate: "2024-01-01", CalDue: "2025-01-01"},
		{CalibrationID: 2, DeviceID: "DEV-001", DeviceName: "Bench Meter",
			CalDate: "2024-12-20", CalDue: "2025-12-20"},
	}
	mockDS.On("CalibrationDue").Return(records, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/calsys/calibration-due", http.NoBody)
	ctx, rec := authenticatedContext(e, req)

	require.NoError(t, controller.GetCalibrationDue(ctx))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp []datastore.DueRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	assert.Equal(t, "DEV-002", resp[0].DeviceID)
}

func TestGetCalibrationDueExport(t *testing.T) {
	e, controller, mockDS, _ := setupTestController(t)

	mockDS.On("CalibrationDue").Return([]datastore.DueRecord{
		{CalibrationID: 2, DeviceID: "DEV-001", DeviceName: "Bench Meter", CalDue: "2025-12-20"},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/calsys/calibration-due?export=1", http.NoBody)
	ctx, rec := authenticatedContext(e, req)

	require.NoError(t, controller.GetCalibrationDue(ctx))
	assert.Equal(t, http.StatusOK, rec.Code)
	// Default export format is CSV.
	assert.Equal(t, "text/csv", rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "calibration_due_")
	assert.Contains(t, rec.Body.String(), "Bench Meter")
}

func TestGetCalExport(t *testing.T) {
	e, controller, mockDS, _ := setupTestController(t)

	records := []datastore.CalExportRecord{
		{LocationID: "LAB1", DeviceName: "Bench Meter", CalibrationID: 2,
			UserInit: "MK", CalDue: "2025-12-20", StatusID: datastore.StatusActive},
	}
	mockDS.On("CalExport").Return(records, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/calsys/cal-export", http.NoBody)
	ctx, rec := authenticatedContext(e, req)

	require.NoError(t, controller.GetCalExport(ctx))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp []datastore.CalExportRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "MK", resp[0].UserInit)
}

func TestGetCalExportExcelExport(t *testing.T) {
	e, controller, mockDS, _ := setupTestController(t)

	mockDS.On("CalExport").Return([]datastore.CalExportRecord{
		{LocationID: "LAB1", DeviceName: "Bench Meter", CalibrationID: 2},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/calsys/cal-export?export=1&format=excel", http.NoBody)
	ctx, rec := authenticatedContext(e, req)

	require.NoError(t, controller.GetCalExport(ctx))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "spreadsheetml")
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), ".xlsx")
}
