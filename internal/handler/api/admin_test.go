package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"opinionpointer/internal/domain/models"
	appmw "opinionpointer/internal/middleware"
	"opinionpointer/internal/repository"
	"opinionpointer/internal/usecase"
	xhttp "opinionpointer/pkg/http"
	applogger "opinionpointer/pkg/logger"

	"github.com/labstack/echo/v4"
)

type stubStore struct {
	pingErr     error
	jobs        int64
	channels    int64
	collections int64
	channelRows []models.Channel

	user    *models.User
	session *models.Session
}

func (s *stubStore) Ping(context.Context) error { return s.pingErr }

func (s *stubStore) ListActiveChannels(context.Context) ([]models.Channel, error) {
	return s.channelRows, nil
}

func (s *stubStore) CountActiveChannels(context.Context) (int64, error) { return s.channels, nil }

func (s *stubStore) CreateJob(context.Context, int64) (int64, error) { return 1, nil }
func (s *stubStore) MarkJobRunning(context.Context, int64) error     { return nil }
func (s *stubStore) MarkJobDone(context.Context, int64) error        { return nil }
func (s *stubStore) MarkJobFailed(context.Context, int64, string) error {
	return nil
}

func (s *stubStore) CountJobsSince(context.Context, time.Time) (int64, error) { return s.jobs, nil }

func (s *stubStore) InsertCollection(context.Context, int64, int, time.Time) error { return nil }

func (s *stubStore) CountCollectionsSince(context.Context, time.Time) (int64, error) {
	return s.collections, nil
}

func (s *stubStore) SessionUser(_ context.Context, token string) (*models.User, *models.Session, error) {
	if s.session == nil || s.session.Token != token {
		return nil, nil, repository.ErrSessionNotFound
	}
	return s.user, s.session, nil
}

func (s *stubStore) Close() error { return nil }

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func adminStore() *stubStore {
	return &stubStore{
		jobs:        3,
		channels:    2,
		collections: 5,
		channelRows: []models.Channel{{ID: 1, Name: "alpha", Active: true}},
		user:        &models.User{ID: 1, Role: models.RoleAdmin, FullName: "Ada"},
		session:     &models.Session{Token: "tok", UserID: 1, ExpiresAt: time.Now().Add(time.Hour)},
	}
}

func newAdminServer(t *testing.T, store *stubStore) *echo.Echo {
	t.Helper()
	l := testLogger(t)
	reg := usecase.NewRegistry()
	reg.Declare("store", func(context.Context) error { return nil })
	if err := reg.Initialize(context.Background()); err != nil {
		t.Fatalf("registry: %v", err)
	}

	h := NewAdminHandler(l, usecase.NewHealthAggregator(store, reg, nil), reg, store,
		appmw.NewSessionAuth(store, l))

	e := echo.New()
	h.RegisterRoutes(e)
	return e
}

func decodeEnvelope(t *testing.T, body []byte) xhttp.APIResponse {
	t.Helper()
	var env xhttp.APIResponse
	if err := json.Unmarshal(body, &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return env
}

func TestHealthCheckEndpoint(t *testing.T) {
	e := newAdminServer(t, adminStore())

	req := httptest.NewRequest(http.MethodGet, "/api/admin/health-check", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer tok")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec.Body.Bytes())
	data, _ := json.Marshal(env.Data)
	var resp models.HealthCheckResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if resp.Status != models.StatusHealthy {
		t.Fatalf("expected healthy, got %s", resp.Status)
	}
	if len(resp.Services) != 4 {
		t.Fatalf("expected 4 probes, got %d", len(resp.Services))
	}
	if !resp.Database.Connected {
		t.Fatalf("expected database connected")
	}
}

func TestHealthCheckUnauthorized(t *testing.T) {
	e := newAdminServer(t, adminStore())

	req := httptest.NewRequest(http.MethodGet, "/api/admin/health-check", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestHealthCheckForbiddenForNonAdmin(t *testing.T) {
	store := adminStore()
	store.user.Role = models.RoleUser
	e := newAdminServer(t, store)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/health-check", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer tok")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestHealthCheckPanicReturns500WithPartialBody(t *testing.T) {
	l := testLogger(t)
	store := adminStore()
	// nil store inside the aggregator forces a panic outside the probe guards
	h := NewAdminHandler(l, usecase.NewHealthAggregator(nil, usecase.NewRegistry(), nil),
		usecase.NewRegistry(), store, appmw.NewSessionAuth(store, l))

	e := echo.New()
	h.RegisterRoutes(e)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/health-check", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer tok")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	env := decodeEnvelope(t, rec.Body.Bytes())
	data, _ := json.Marshal(env.Data)
	var resp models.HealthCheckResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if resp.Database.Connected {
		t.Fatalf("partial body must report database disconnected")
	}
	if resp.Error == "" {
		t.Fatalf("partial body must carry the error")
	}
}

func TestBootstrapEndpoint(t *testing.T) {
	e := newAdminServer(t, adminStore())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/bootstrap", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer tok")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec.Body.Bytes())
	data, _ := json.Marshal(env.Data)
	var res BootstrapResult
	if err := json.Unmarshal(data, &res); err != nil {
		t.Fatalf("decode bootstrap: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if len(res.Services) != 1 || res.Services[0] != "store" {
		t.Fatalf("unexpected services: %v", res.Services)
	}
}

func TestBootstrapFailureReturns500(t *testing.T) {
	l := testLogger(t)
	store := adminStore()
	reg := usecase.NewRegistry()
	reg.Declare("broken", func(context.Context) error { return errors.New("dial failed") })

	h := NewAdminHandler(l, usecase.NewHealthAggregator(store, reg, nil), reg, store,
		appmw.NewSessionAuth(store, l))
	e := echo.New()
	h.RegisterRoutes(e)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/bootstrap", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer tok")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestChannelsEndpoint(t *testing.T) {
	e := newAdminServer(t, adminStore())

	req := httptest.NewRequest(http.MethodGet, "/api/admin/channels", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer tok")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestHealthCheckRejectsPost(t *testing.T) {
	e := newAdminServer(t, adminStore())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/health-check", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer tok")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
