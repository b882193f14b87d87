package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type HealthHandler struct {
	tiers     []string
	durableDB bool
	metricsH  http.Handler
}

func NewHealthHandler(tiers []string, durableDB bool, metricsHandler http.Handler) *HealthHandler {
	return &HealthHandler{tiers: tiers, durableDB: durableDB, metricsH: metricsHandler}
}

type HealthResponse struct {
	Status   string   `json:"status"`
	Tiers    []string `json:"tiers"`
	Database bool     `json:"database"`
}

func (h *HealthHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.health)
	if h.metricsH != nil {
		e.GET("/metrics", echo.WrapHandler(h.metricsH))
	}
}

func (h *HealthHandler) health(c echo.Context) error {
	status := "ok"
	if !h.durableDB {
		// メモリ階層のみで動いている
		status = "degraded"
	}
	return writeOK(c, HealthResponse{Status: status, Tiers: h.tiers, Database: h.durableDB})
}
