package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func newTestContext(t *testing.T) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestDataResponseEnvelope(t *testing.T) {
	c, rec := newTestContext(t)
	if err := SuccessResponse(c, map[string]int{"score": 72}); err != nil {
		t.Fatalf("write response: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var env APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Status != http.StatusOK || env.Message != "OK" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}

func TestAppErrorResponseUsesErrorStatus(t *testing.T) {
	c, rec := newTestContext(t)
	appErr := NewAppError("ERR_UNAVAILABLE", "", "backend down", http.StatusServiceUnavailable)
	if err := AppErrorResponse(c, appErr); err != nil {
		t.Fatalf("write response: %v", err)
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}

	var env struct {
		Status int        `json:"status"`
		Data   []AppError `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if len(env.Data) != 1 || env.Data[0].Code != "ERR_UNAVAILABLE" {
		t.Fatalf("expected app error in data, got %+v", env.Data)
	}
}

func TestAppErrorResponseFallsBackTo500(t *testing.T) {
	c, rec := newTestContext(t)
	if err := AppErrorResponse(c, errors.New("plain failure")); err != nil {
		t.Fatalf("write response: %v", err)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	cause := errors.New("cause")
	appErr := NewAppError("ERR_INTERNAL", "", "wrapped", http.StatusInternalServerError)
	appErr.Err = cause
	if !errors.Is(appErr, cause) {
		t.Fatal("expected wrapped cause to be reachable")
	}
	if appErr.Error() != "wrapped: cause" {
		t.Fatalf("unexpected message: %q", appErr.Error())
	}
}
