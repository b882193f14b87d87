package handler

import (
	"context"

	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/domain/model"
	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/middleware"
	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/usecase"

	"github.com/labstack/echo/v4"
)

type CatalogService interface {
	ListProducts(ctx context.Context) ([]model.Product, error)
	SetStock(ctx context.Context, operator string, productID string, in usecase.StockUpdateInput) (model.Product, error)
}

// /admin/products と /admin/inventory をまとめる
type AdminProductHandler struct {
	uc        CatalogService
	jwtSecret string
}

// DI
func NewAdminProductHandler(uc CatalogService, jwtSecret string) *AdminProductHandler {
	return &AdminProductHandler{uc: uc, jwtSecret: jwtSecret}
}

func (h *AdminProductHandler) RegisterRoutes(e *echo.Echo) {
	admin := e.Group("/admin")

	admin.Use(middleware.AuthJWT(h.jwtSecret))
	admin.Use(middleware.AdminRoleGuard())

	admin.GET("/products", h.listProducts)
	admin.PUT("/inventory/:product_id", h.updateInventory)
}

func (h *AdminProductHandler) listProducts(c echo.Context) error {
	items, err := h.uc.ListProducts(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return writeOK(c, map[string]any{"items": items})
}

func (h *AdminProductHandler) updateInventory(c echo.Context) error {
	var req usecase.StockUpdateInput
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}

	//AuthJWTが入れたsub
	operator, _ := c.Get(middleware.CtxSubjectKey).(string)

	p, err := h.uc.SetStock(c.Request().Context(), operator, c.Param("product_id"), req)
	if err != nil {
		return writeError(c, err)
	}
	return writeOK(c, p)
}
