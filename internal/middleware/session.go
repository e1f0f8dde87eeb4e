package middleware

import (
	"errors"
	"strings"
	"time"

	"opinionpointer/internal/domain/models"
	domrepo "opinionpointer/internal/domain/repository"
	"opinionpointer/internal/repository"
	xhttp "opinionpointer/pkg/http"
	xlogger "opinionpointer/pkg/logger"

	"github.com/labstack/echo/v4"
)

const (
	// UserContextKey is where the authenticated user is stored on the
	// request context.
	UserContextKey = "user"

	sessionCookie = "op_session"
)

// SessionAuth resolves session tokens against the application store.
type SessionAuth struct {
	store  domrepo.Store
	logger *xlogger.Logger
}

func NewSessionAuth(store domrepo.Store, logger *xlogger.Logger) *SessionAuth {
	return &SessionAuth{store: store, logger: logger}
}

// RequireRole authenticates the request and rejects users whose role does
// not match. An empty role only requires a valid session.
func (a *SessionAuth) RequireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := extractToken(c)
			if token == "" {
				return xhttp.UnauthorizedResponse(c, "missing session token")
			}

			user, session, err := a.store.SessionUser(c.Request().Context(), token)
			if err != nil {
				if errors.Is(err, repository.ErrSessionNotFound) {
					return xhttp.UnauthorizedResponse(c, "invalid session")
				}
				a.logger.Error("session lookup failed", xlogger.Error(err))
				return xhttp.InternalServerErrorResponse(c)
			}
			if session.Expired(time.Now()) {
				return xhttp.UnauthorizedResponse(c, "session expired")
			}
			if role != "" && user.Role != role {
				return xhttp.ForbiddenResponse(c, "insufficient role")
			}

			c.Set(UserContextKey, user)
			return next(c)
		}
	}
}

// UserFrom returns the authenticated user set by RequireRole, if any.
func UserFrom(c echo.Context) (*models.User, bool) {
	u, ok := c.Get(UserContextKey).(*models.User)
	return u, ok
}

func extractToken(c echo.Context) string {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	if cookie, err := c.Cookie(sessionCookie); err == nil && cookie != nil {
		return cookie.Value
	}
	return ""
}
