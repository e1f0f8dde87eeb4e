package api

import (
	"errors"
	"net/http"
	"time"

	"opinionpointer/internal/domain/models"
	"opinionpointer/internal/service/styles"
	"opinionpointer/internal/usecase"
	xhttp "opinionpointer/pkg/http"
	xlogger "opinionpointer/pkg/logger"
	xutil "opinionpointer/pkg/util"

	"github.com/labstack/echo/v4"
)

// MarketHandler serves the public market sentiment surface.
type MarketHandler struct {
	logger    *xlogger.Logger
	sentiment *usecase.SentimentService
}

func NewMarketHandler(logger *xlogger.Logger, sentiment *usecase.SentimentService) *MarketHandler {
	return &MarketHandler{logger: logger, sentiment: sentiment}
}

func (h *MarketHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/market")
	g.GET("/sentiment", h.Sentiment)
	g.POST("/sentiment/refresh", h.Refresh)
	g.GET("/sentiment/history", h.History)
	g.GET("/sentiment/view", h.SentimentView)
	g.GET("/health", h.ProviderHealth)
}

// Sentiment returns the current sentiment reading, served from cache when
// still fresh.
func (h *MarketHandler) Sentiment(c echo.Context) error {
	data, err := h.sentiment.Get(c.Request().Context())
	if err != nil {
		h.logger.Error("sentiment read failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, data)
}

// Refresh forces a provider fetch, bypassing the cache.
func (h *MarketHandler) Refresh(c echo.Context) error {
	data, err := h.sentiment.GetFresh(c.Request().Context())
	if err != nil {
		h.logger.Error("sentiment refresh failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, data)
}

// HistoryRequest bounds the snapshot history query.
type HistoryRequest struct {
	N int `query:"n" default:"24" validate:"gte=1,lte=500"`
}

// History returns the most recent sentiment snapshots, newest first. An
// optional since parameter (RFC3339 or unix seconds) drops older rows.
func (h *MarketHandler) History(c echo.Context) error {
	req := &HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	since := xutil.ParseTimeDefault(c.QueryParam("since"), time.Time{})

	rows, err := h.sentiment.History(c.Request().Context(), req.N)
	if err != nil {
		if errors.Is(err, usecase.ErrHistoryUnavailable) {
			return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_HISTORY_UNAVAILABLE", "", err.Error(), http.StatusServiceUnavailable))
		}
		h.logger.Error("sentiment history failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if !since.IsZero() {
		filtered := rows[:0]
		for _, r := range rows {
			if !r.Timestamp.Before(since) {
				filtered = append(filtered, r)
			}
		}
		rows = filtered
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

// SentimentDisplay is the presentation-ready sentiment reading.
type SentimentDisplay struct {
	Data       *models.MarketSentimentData `json:"data"`
	BadgeClass string                      `json:"badge_class"`
	TextClass  string                      `json:"text_class"`
	SizeClass  string                      `json:"size_class"`
}

// SentimentView returns the current reading together with its display
// classes.
func (h *MarketHandler) SentimentView(c echo.Context) error {
	data, err := h.sentiment.Get(c.Request().Context())
	if err != nil {
		h.logger.Error("sentiment view failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	view := &SentimentDisplay{
		Data:       data,
		BadgeClass: styles.SentimentBadgeClass(data.Sentiment),
		TextClass:  styles.TextClassForBackground("bg-white"),
		SizeClass:  styles.TextSizeClass("lg"),
	}
	return xhttp.SuccessResponse(c, view)
}

// ProviderHealth reports the upstream sentiment provider health.
func (h *MarketHandler) ProviderHealth(c echo.Context) error {
	health, err := h.sentiment.Health(c.Request().Context())
	if err != nil {
		h.logger.Error("provider health failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, health)
}
