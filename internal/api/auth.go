// internal/api/auth.go
package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/tracklab/calsys/internal/datastore"
	calerrors "github.com/tracklab/calsys/internal/errors"
	"github.com/tracklab/calsys/internal/security"
)

// AuthRequest represents the login request structure
type AuthRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest represents the registration request structure
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse represents the login response structure
type AuthResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Username  string    `json:"username,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// AuthStatus represents the current authentication status
type AuthStatus struct {
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username,omitempty"`
}

// initAuthRoutes registers all authentication-related API endpoints
func (c *Controller) initAuthRoutes() {
	authGroup := c.Group.Group("/auth")

	authGroup.POST("/login", c.Login)
	authGroup.POST("/register", c.Register)
	authGroup.GET("/status", c.GetAuthStatus)

	protectedGroup := authGroup.Group("", c.Sessions.LoginRequired())
	protectedGroup.POST("/logout", c.Logout)
}

// Login handles POST /auth/login. Failed credential checks get the same
// generic response whether the user exists or not.
func (c *Controller) Login(ctx echo.Context) error {
	var req AuthRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid login request", http.StatusBadRequest)
	}

	user, err := c.Users.GetUserByUsername(req.Username)
	if err != nil || !security.CheckPassword(user.PasswordHash, req.Password) {
		if c.apiLogger != nil {
			c.apiLogger.Warn("Failed login attempt",
				"username", req.Username,
				"ip", ctx.RealIP(),
			)
		}
		return c.HandleError(ctx, nil, "Invalid username or password", http.StatusUnauthorized)
	}

	if err := c.Sessions.SignIn(ctx, user.ID); err != nil {
		return c.HandleError(ctx, err, "Failed to establish session", http.StatusInternalServerError)
	}

	// Make sure the settings row exists so preferences apply immediately.
	if _, err := c.Users.GetUserSettings(user.ID); err != nil && c.apiLogger != nil {
		c.apiLogger.Warn("Failed to initialize user settings", "user_id", user.ID, "error", err.Error())
	}

	return ctx.JSON(http.StatusOK, AuthResponse{
		Success:   true,
		Message:   "Login successful",
		Username:  user.Username,
		Timestamp: time.Now(),
	})
}

// Register handles POST /auth/register. Duplicate usernames and emails
// are explicit conflicts.
func (c *Controller) Register(ctx echo.Context) error {
	var req RegisterRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid registration request", http.StatusBadRequest)
	}
	if req.Username == "" || req.Password == "" {
		return c.HandleError(ctx, calerrors.ValidationError("username and password are required"),
			"Invalid registration request", http.StatusBadRequest)
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to process password", http.StatusInternalServerError)
	}

	user := datastore.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
	}
	if err := c.Users.CreateUser(&user); err != nil {
		return c.handleStoreError(ctx, err, "Failed to register user")
	}

	if _, err := c.Users.GetUserSettings(user.ID); err != nil && c.apiLogger != nil {
		c.apiLogger.Warn("Failed to create default settings", "user_id", user.ID, "error", err.Error())
	}

	return ctx.JSON(http.StatusCreated, AuthResponse{
		Success:   true,
		Message:   "Registration successful",
		Username:  user.Username,
		Timestamp: time.Now(),
	})
}

// Logout handles POST /auth/logout.
func (c *Controller) Logout(ctx echo.Context) error {
	if err := c.Sessions.SignOut(ctx); err != nil {
		return c.HandleError(ctx, err, "Failed to end session", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, AuthResponse{
		Success:   true,
		Message:   "Logged out",
		Timestamp: time.Now(),
	})
}

// GetAuthStatus handles GET /auth/status.
func (c *Controller) GetAuthStatus(ctx echo.Context) error {
	userID, ok := c.Sessions.CurrentUserID(ctx)
	if !ok {
		return ctx.JSON(http.StatusOK, AuthStatus{Authenticated: false})
	}

	user, err := c.Users.GetUser(userID)
	if err != nil {
		return ctx.JSON(http.StatusOK, AuthStatus{Authenticated: false})
	}
	return ctx.JSON(http.StatusOK, AuthStatus{Authenticated: true, Username: user.Username})
}
