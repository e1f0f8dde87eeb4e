package api

import (
	"opinionpointer/internal/domain/models"
	domrepo "opinionpointer/internal/domain/repository"
	appmw "opinionpointer/internal/middleware"
	"opinionpointer/internal/usecase"
	xhttp "opinionpointer/pkg/http"
	xlogger "opinionpointer/pkg/logger"

	"github.com/labstack/echo/v4"
)

// AdminHandler serves the admin surface: system health, service bootstrap
// and channel listing. All routes require an admin session.
type AdminHandler struct {
	logger   *xlogger.Logger
	health   *usecase.HealthAggregator
	registry *usecase.Registry
	store    domrepo.Store
	auth     *appmw.SessionAuth
}

func NewAdminHandler(
	logger *xlogger.Logger,
	health *usecase.HealthAggregator,
	registry *usecase.Registry,
	store domrepo.Store,
	auth *appmw.SessionAuth,
) *AdminHandler {
	return &AdminHandler{
		logger:   logger,
		health:   health,
		registry: registry,
		store:    store,
		auth:     auth,
	}
}

func (h *AdminHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/admin", h.auth.RequireRole(models.RoleAdmin))
	g.GET("/health-check", h.HealthCheck)
	g.POST("/bootstrap", h.Bootstrap)
	g.GET("/channels", h.Channels)
}

// HealthCheck runs all health probes and reports the aggregate status.
// A mid-probe failure still returns whatever was gathered, with a 500.
func (h *AdminHandler) HealthCheck(c echo.Context) error {
	resp, err := h.health.Check(c.Request().Context())
	if err != nil {
		h.logger.Error("health check aborted", xlogger.Error(err))
		return xhttp.InternalServerErrorDataResponse(c, resp)
	}
	return xhttp.SuccessResponse(c, resp)
}

// BootstrapResult reports the outcome of a service initialization pass.
type BootstrapResult struct {
	Success  bool     `json:"success"`
	Message  string   `json:"message"`
	Services []string `json:"services"`
}

// Bootstrap initializes all declared services. Safe to call repeatedly;
// initializers run on every call.
func (h *AdminHandler) Bootstrap(c echo.Context) error {
	res := &BootstrapResult{Services: h.registry.Services()}
	if err := h.registry.Initialize(c.Request().Context()); err != nil {
		h.logger.Error("bootstrap failed", xlogger.Error(err))
		res.Message = err.Error()
		return xhttp.InternalServerErrorDataResponse(c, res)
	}
	res.Success = true
	res.Message = "all services initialized"
	return xhttp.SuccessResponse(c, res)
}

// Channels lists all active collection channels.
func (h *AdminHandler) Channels(c echo.Context) error {
	channels, err := h.store.ListActiveChannels(c.Request().Context())
	if err != nil {
		h.logger.Error("channel listing failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, channels, int64(len(channels)))
}
