// Package security provides cookie-session authentication for the HTTP
// surface. Sessions are signed with the configured secret; principals are
// identified by their integer user ID.
package security

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/tracklab/calsys/internal/conf"
	"github.com/tracklab/calsys/internal/logging"
)

const (
	sessionName   = "calsys-session"
	sessionKeyUID = "user_id"

	// ContextKeyUserID is where the auth middleware publishes the
	// authenticated principal for downstream handlers.
	ContextKeyUserID = "user_id"
)

// Manager owns the session cookie store.
type Manager struct {
	store  *sessions.CookieStore
	secure bool
}

// buildSessionOptions creates session options with standard security
// settings.
func buildSessionOptions(secure bool, maxAge int) *sessions.Options {
	return &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// NewManager creates a session manager from the security settings. A
// missing session secret gets a random one, which invalidates sessions on
// restart; fine for development, logged so operators notice.
func NewManager(settings *conf.Settings) *Manager {
	secret := settings.Security.SessionSecret
	if secret == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err == nil {
			secret = base64.StdEncoding.EncodeToString(buf)
		}
		logging.Warn("No session secret configured, generated an ephemeral one; sessions will not survive restarts")
	}

	store := sessions.NewCookieStore([]byte(secret))
	store.Options = buildSessionOptions(settings.Security.SecureCookies, settings.Security.SessionDuration)

	return &Manager{store: store, secure: settings.Security.SecureCookies}
}

// SignIn establishes a session for the given user ID.
func (m *Manager) SignIn(ctx echo.Context, userID uint) error {
	session, _ := m.store.Get(ctx.Request(), sessionName)
	session.Values[sessionKeyUID] = userID
	return session.Save(ctx.Request(), ctx.Response())
}

// SignOut destroys the current session.
func (m *Manager) SignOut(ctx echo.Context) error {
	session, _ := m.store.Get(ctx.Request(), sessionName)
	delete(session.Values, sessionKeyUID)
	session.Options.MaxAge = -1
	return session.Save(ctx.Request(), ctx.Response())
}

// CurrentUserID returns the authenticated user ID for the request, if any.
func (m *Manager) CurrentUserID(ctx echo.Context) (uint, bool) {
	session, err := m.store.Get(ctx.Request(), sessionName)
	if err != nil {
		return 0, false
	}
	userID, ok := session.Values[sessionKeyUID].(uint)
	if !ok || userID == 0 {
		return 0, false
	}
	return userID, true
}

// LoginRequired gates a route group on an authenticated session. The
// principal's ID is published into the echo context; unauthenticated
// requests get a 401 challenge and never partial data.
func (m *Manager) LoginRequired() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			userID, ok := m.CurrentUserID(ctx)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			ctx.Set(ContextKeyUserID, userID)
			return next(ctx)
		}
	}
}
