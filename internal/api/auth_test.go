// internal/api/auth_test.go
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
	"github.com/tracklab/calsys/internal/security"
)

func loginRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/calsys/auth/login", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func TestLoginSuccess(t *testing.T) {
	e, _, _, mockUsers := setupTestController(t)

	hash, err := security.HashPassword("correct-horse")
	require.NoError(t, err)

	mockUsers.On("GetUserByUsername", "jdoe").
		Return(datastore.User{ID: 1, Username: "jdoe", PasswordHash: hash}, nil)
	mockUsers.On("GetUserSettings", uint(1)).
		Return(datastore.UserSettings{UserID: 1}, nil)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, loginRequest(`{"username":"jdoe","password":"correct-horse"}`))

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "jdoe", resp.Username)

	// A session cookie is issued.
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, "calsys-session", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
}

func TestLoginWrongPassword(t *testing.T) {
	e, _, _, mockUsers := setupTestController(t)

	hash, err := security.HashPassword("correct-horse")
	require.NoError(t, err)
	mockUsers.On("GetUserByUsername", "jdoe").
		Return(datastore.User{ID: 1, Username: "jdoe", PasswordHash: hash}, nil)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, loginRequest(`{"username":"jdoe","password":"wrong"}`))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid username or password", decodeError(t, rec).Message)
}

func TestLoginUnknownUserSameResponse(t *testing.T) {
	e, _, _, mockUsers := setupTestController(t)

	mockUsers.On("GetUserByUsername", "ghost").
		Return(datastore.User{}, calerrors.NotFoundError("user", "ghost"))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, loginRequest(`{"username":"ghost","password":"whatever"}`))

	// Unknown user and wrong password are indistinguishable to the caller.
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid username or password", decodeError(t, rec).Message)
}

func TestSessionGrantsAccessToProtectedRoutes(t *testing.T) {
	e, _, mockDS, mockUsers := setupTestController(t)

	hash, err := security.HashPassword("correct-horse")
	require.NoError(t, err)
	mockUsers.On("GetUserByUsername", "jdoe").
		Return(datastore.User{ID: 1, Username: "jdoe", PasswordHash: hash}, nil)
	mockUsers.On("GetUserSettings", uint(1)).
		Return(datastore.UserSettings{UserID: 1, ItemsPerPage: 10}, nil)
	mockDS.On("SearchDevices", mock.Anything).
		Return([]datastore.DeviceRecord{}, int64(0), nil)

	loginRec := httptest.NewRecorder()
	e.ServeHTTP(loginRec, loginRequest(`{"username":"jdoe","password":"correct-horse"}`))
	require.Equal(t, http.StatusOK, loginRec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/calsys/devices", http.NoBody)
	for _, cookie := range loginRec.Result().Cookies() {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegister(t *testing.T) {
	e, _, _, mockUsers := setupTestController(t)

	mockUsers.On("CreateUser", mock.MatchedBy(func(u *datastore.User) bool {
		// The raw password never reaches the store.
		return u.Username == "newuser" && u.Email == "new@example.com" &&
			u.PasswordHash != "" && u.PasswordHash != "secret-pw"
	})).Return(nil)
	mockUsers.On("GetUserSettings", mock.Anything).
		Return(datastore.UserSettings{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/calsys/auth/register",
		strings.NewReader(`{"username":"newuser","email":"new@example.com","password":"secret-pw"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	mockUsers.AssertExpectations(t)
}

func TestRegisterMissingFields(t *testing.T) {
	e, _, _, _ := setupTestController(t)

	req := httptest.NewRequest(http.MethodPost, "/api/calsys/auth/register",
		strings.NewReader(`{"username":"newuser"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	e, _, _, mockUsers := setupTestController(t)

	mockUsers.On("CreateUser", mock.Anything).
		Return(calerrors.ConflictError("user", "username", "jdoe"))

	req := httptest.NewRequest(http.MethodPost, "/api/calsys/auth/register",
		strings.NewReader(`{"username":"jdoe","email":"x@example.com","password":"pw"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAuthStatus(t *testing.T) {
	e, _, _, mockUsers := setupTestController(t)

	// Unauthenticated: flagged but still a 200.
	req := httptest.NewRequest(http.MethodGet, "/api/calsys/auth/status", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var status AuthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.False(t, status.Authenticated)
	assert.Empty(t, status.Username)

	// Authenticated: sign in first, then reuse the cookie.
	hash, err := security.HashPassword("correct-horse")
	require.NoError(t, err)
	mockUsers.On("GetUserByUsername", "jdoe").
		Return(datastore.User{ID: 1, Username: "jdoe", PasswordHash: hash}, nil)
	mockUsers.On("GetUserSettings", uint(1)).
		Return(datastore.UserSettings{UserID: 1}, nil)
	mockUsers.On("GetUser", uint(1)).
		Return(datastore.User{ID: 1, Username: "jdoe"}, nil)

	loginRec := httptest.NewRecorder()
	e.ServeHTTP(loginRec, loginRequest(`{"username":"jdoe","password":"correct-horse"}`))
	require.Equal(t, http.StatusOK, loginRec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/calsys/auth/status", http.NoBody)
	for _, cookie := range loginRec.Result().Cookies() {
		req.AddCookie(cookie)
	}
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.Authenticated)
	assert.Equal(t, "jdoe", status.Username)
}

func TestLogout(t *testing.T) {
	e, _, _, mockUsers := setupTestController(t)

	hash, err := security.HashPassword("correct-horse")
	require.NoError(t, err)
	mockUsers.On("GetUserByUsername", "jdoe").
		Return(datastore.User{ID: 1, Username: "jdoe", PasswordHash: hash}, nil)
	mockUsers.On("GetUserSettings", uint(1)).
		Return(datastore.UserSettings{UserID: 1}, nil)

	loginRec := httptest.NewRecorder()
	e.ServeHTTP(loginRec, loginRequest(`{"username":"jdoe","password":"correct-horse"}`))
	require.Equal(t, http.StatusOK, loginRec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/calsys/auth/logout", http.NoBody)
	for _, cookie := range loginRec.Result().Cookies() {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Unauthenticated logout is rejected by the session gate.
	req = httptest.NewRequest(http.MethodPost, "/api/calsys/auth/logout", http.NoBody)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
