package handler

import (
	"context"

	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/middleware"
	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/usecase"

	"github.com/labstack/echo/v4"
)

type Broadcaster interface {
	Broadcast(ctx context.Context, in usecase.BroadcastInput) (usecase.DispatchReport, error)
}

type AdminNotificationHandler struct {
	uc        Broadcaster
	jwtSecret string
}

func NewAdminNotificationHandler(uc Broadcaster, jwtSecret string) *AdminNotificationHandler {
	return &AdminNotificationHandler{uc: uc, jwtSecret: jwtSecret}
}

type BroadcastRequest struct {
	Audience string `json:"audience"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	URL      string `json:"url"`
}

func (h *AdminNotificationHandler) RegisterRoutes(e *echo.Echo) {
	admin := e.Group("/admin")
	admin.Use(middleware.AuthJWT(h.jwtSecret))
	admin.Use(middleware.AdminRoleGuard())

	admin.POST("/notifications", h.broadcast)
}

func (h *AdminNotificationHandler) broadcast(c echo.Context) error {
	var req BroadcastRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}

	report, err := h.uc.Broadcast(c.Request().Context(), usecase.BroadcastInput{
		Audience: req.Audience,
		Title:    req.Title,
		Body:     req.Body,
		URL:      req.URL,
	})
	if err != nil {
		return writeError(c, err)
	}
	return writeOK(c, report)
}
