package handler

import (
	"context"

	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/usecase"

	"github.com/labstack/echo/v4"
)

type OrderService interface {
	PlaceOrder(ctx context.Context, in usecase.CheckoutInput) (usecase.CheckoutResult, error)
	GetOrder(ctx context.Context, orderNumber string) (usecase.OrderOutput, error)
}

type OrderHandler struct {
	uc OrderService
}

func NewOrderHandler(uc OrderService) *OrderHandler {
	return &OrderHandler{uc: uc}
}

type OrderResponse struct {
	Order usecase.OrderOutput `json:"order"`
	Notes []string            `json:"notes,omitempty"`
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/orders")
	g.POST("", h.create)
	g.GET("/:orderNumber", h.detail)
}

func (h *OrderHandler) create(c echo.Context) error {
	var req usecase.CheckoutInput
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}

	res, err := h.uc.PlaceOrder(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}

	return writeOK(c, OrderResponse{Order: res.Order, Notes: res.Notes})
}

func (h *OrderHandler) detail(c echo.Context) error {
	out, err := h.uc.GetOrder(c.Request().Context(), c.Param("orderNumber"))
	if err != nil {
		return writeError(c, err)
	}
	return writeOK(c, OrderResponse{Order: out})
}
