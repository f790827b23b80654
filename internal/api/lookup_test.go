// internal/api/lookup_test.go
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

func TestGetLookup(t *testing.T) {
	e, controller, mockDS, _ := setupTestController(t)

	records := []datastore.LookupRecord{
		{ID: "LAB1", Name: "Main Lab"},
		{ID: "LAB2", Name: "Annex"},
	}
	mockDS.On("SearchLookup", "locations", mock.Anything).Return(records, int64(2), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/calsys/lookup/locations?per_page=10", http.NoBody)
	ctx, rec := authenticatedContext(e, req)
	ctx.SetParamNames("table")
	ctx.SetParamValues("locations")

	require.NoError(t, controller.GetLookup(ctx))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp PaginatedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(2), resp.Total)
}

func TestGetLookupUnknownTable(t *testing.T) {
	e, controller, mockDS, _ := setupTestController(t)

	req := httptest.NewRequest(http.MethodGet, "/api/calsys/lookup/gadgets", http.NoBody)
	ctx, rec := authenticatedContext(e, req)
	ctx.SetParamNames("table")
	ctx.SetParamValues("gadgets")

	require.NoError(t, controller.GetLookup(ctx))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Invalid lookup table", decodeError(t, rec).Message)

	// The store is never consulted for an unknown token.
	mockDS.AssertNotCalled(t, "SearchLookup", mock.Anything, mock.Anything)
}

func TestSaveLookupEntry(t *testing.T) {
	e, controller, mockDS, _ := setupTestController(t)

	mockDS.On("SaveLookupEntry", "employees", mock.MatchedBy(func(r *datastore.LookupRecord) bool {
		return r.ID == "E3" && r.Name == "Ada Byrne" && r.UserInit == "AB"
	})).Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/calsys/lookup/employees",
		strings.NewReader(`{"id":"E3","name":"Ada Byrne","user_init":"AB"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	ctx, rec := authenticatedContext(e, req)
	ctx.SetParamNames("table")
	ctx.SetParamValues("employees")

	require.NoError(t, controller.SaveLookupEntry(ctx))
	assert.Equal(t, http.StatusOK, rec.Code)
	mockDS.AssertExpectations(t)
}

func TestSaveLookupEntryNameConflict(t *testing.T) {
	e, controller, mockDS, _ := setupTestController(t)

	mockDS.On("SaveLookupEntry", "owners", mock.Anything).
		Return(calerrors.ConflictError("owners", "name", "Engineering"))

	req := httptest.NewRequest(http.MethodPut, "/api/calsys/lookup/owners",
		strings.NewReader(`{"id":"ENG2","name":"Engineering"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	ctx, rec := authenticatedContext(e, req)
	ctx.SetParamNames("table")
	ctx.SetParamValues("owners")

	require.NoError(t, controller.SaveLookupEntry(ctx))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDeleteLookupEntry(t *testing.T) {
	e, controller, mockDS, _ := setupTestController(t)

	mockDS.On("DeleteLookupEntry", "sources", "FLUKE").Return(nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/calsys/lookup/sources/FLUKE", http.NoBody)
	ctx, rec := authenticatedContext(e, req)
	ctx.SetParamNames("table", "id")
	ctx.SetParamValues("sources", "FLUKE")

	require.NoError(t, controller.DeleteLookupEntry(ctx))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	mockDS.AssertExpectations(t)
}
