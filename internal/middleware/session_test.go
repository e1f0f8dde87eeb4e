package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"opinionpointer/internal/domain/models"
	"opinionpointer/internal/repository"
	applogger "opinionpointer/pkg/logger"

	"github.com/labstack/echo/v4"
)

type sessionStore struct {
	user    *models.User
	session *models.Session
}

func (s *sessionStore) Ping(context.Context) error { return nil }

func (s *sessionStore) ListActiveChannels(context.Context) ([]models.Channel, error) {
	return nil, nil
}

func (s *sessionStore) CountActiveChannels(context.Context) (int64, error) { return 0, nil }

func (s *sessionStore) CreateJob(context.Context, int64) (int64, error)    { return 0, nil }
func (s *sessionStore) MarkJobRunning(context.Context, int64) error        { return nil }
func (s *sessionStore) MarkJobDone(context.Context, int64) error           { return nil }
func (s *sessionStore) MarkJobFailed(context.Context, int64, string) error { return nil }

func (s *sessionStore) CountJobsSince(context.Context, time.Time) (int64, error) { return 0, nil }

func (s *sessionStore) InsertCollection(context.Context, int64, int, time.Time) error { return nil }

func (s *sessionStore) CountCollectionsSince(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func (s *sessionStore) SessionUser(_ context.Context, token string) (*models.User, *models.Session, error) {
	if s.session == nil || s.session.Token != token {
		return nil, nil, repository.ErrSessionNotFound
	}
	return s.user, s.session, nil
}

func (s *sessionStore) Close() error { return nil }

func sessionFixture(role string, expiresAt time.Time) *sessionStore {
	return &sessionStore{
		user:    &models.User{ID: 7, Role: role, FullName: "Ada", Subscription: "pro"},
		session: &models.Session{Token: "tok", UserID: 7, ExpiresAt: expiresAt},
	}
}

func newAuthServer(t *testing.T, store *sessionStore, role string) *echo.Echo {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	auth := NewSessionAuth(store, l)

	e := echo.New()
	e.GET("/protected", func(c echo.Context) error {
		u, ok := UserFrom(c)
		if !ok {
			return c.String(http.StatusInternalServerError, "no user on context")
		}
		return c.String(http.StatusOK, u.FullName)
	}, auth.RequireRole(role))
	return e
}

func TestSessionAuthBearerToken(t *testing.T) {
	e := newAuthServer(t, sessionFixture(models.RoleAdmin, time.Now().Add(time.Hour)), models.RoleAdmin)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer tok")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "Ada" {
		t.Fatalf("expected user on context, got %q", rec.Body.String())
	}
}

func TestSessionAuthCookie(t *testing.T) {
	e := newAuthServer(t, sessionFixture(models.RoleUser, time.Now().Add(time.Hour)), models.RoleUser)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "tok"})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestSessionAuthMissingToken(t *testing.T) {
	e := newAuthServer(t, sessionFixture(models.RoleAdmin, time.Now().Add(time.Hour)), models.RoleAdmin)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestSessionAuthUnknownToken(t *testing.T) {
	e := newAuthServer(t, sessionFixture(models.RoleAdmin, time.Now().Add(time.Hour)), models.RoleAdmin)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer wrong")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestSessionAuthExpiredSession(t *testing.T) {
	e := newAuthServer(t, sessionFixture(models.RoleAdmin, time.Now().Add(-time.Minute)), models.RoleAdmin)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer tok")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestSessionAuthRoleMismatch(t *testing.T) {
	e := newAuthServer(t, sessionFixture(models.RoleUser, time.Now().Add(time.Hour)), models.RoleAdmin)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer tok")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}
