package handler

import (
	"context"
	"net/http"

	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/usecase"

	"github.com/labstack/echo/v4"
)

type SubscriptionService interface {
	SubscribePush(ctx context.Context, in usecase.PushSubscribeInput) error
	UnsubscribePush(ctx context.Context, endpoint string) error
	SubscribeNewsletter(ctx context.Context, email string) error
}

// /push と /newsletter の公開API
type SubscriptionHandler struct {
	uc SubscriptionService
}

func NewSubscriptionHandler(uc SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{uc: uc}
}

type unsubscribeRequest struct {
	Endpoint string `json:"endpoint"`
}

type newsletterRequest struct {
	Email string `json:"email"`
}

func (h *SubscriptionHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/push/subscriptions", h.subscribePush)
	e.DELETE("/push/subscriptions", h.unsubscribePush)
	e.POST("/newsletter/subscribe", h.subscribeNewsletter)
}

func (h *SubscriptionHandler) subscribePush(c echo.Context) error {
	var req usecase.PushSubscribeInput
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	if err := h.uc.SubscribePush(c.Request().Context(), req); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, SuccessResponse{Success: true, Data: map[string]string{"endpoint": req.Endpoint}})
}

func (h *SubscriptionHandler) unsubscribePush(c echo.Context) error {
	var req unsubscribeRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	if err := h.uc.UnsubscribePush(c.Request().Context(), req.Endpoint); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *SubscriptionHandler) subscribeNewsletter(c echo.Context) error {
	var req newsletterRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	if err := h.uc.SubscribeNewsletter(c.Request().Context(), req.Email); err != nil {
		return writeError(c, err)
	}
	return writeOK(c, map[string]bool{"subscribed": true})
}
