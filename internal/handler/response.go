package handler

import (
	"net/http"

	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/middleware"
	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/usecase"

	"github.com/labstack/echo/v4"
)

type SuccessResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

func writeOK(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, SuccessResponse{Success: true, Data: data})
}

func writeFail(c echo.Context, status int, code string, message string) error {
	return c.JSON(status, ErrorResponse{Error: ErrorBody{Code: code, Message: message}})
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		return c.JSON(he.Status, ErrorResponse{Error: ErrorBody{
			Code:    he.Code,
			Message: he.Message,
			Field:   he.Field,
		}})
	}

	//500。詳細はアクセスログにだけ残す
	c.Set(middleware.CtxErrorKey, err)
	return writeFail(c, http.StatusInternalServerError, usecase.CodeInternal, "internal error")
}

func invalidBody(c echo.Context) error {
	return writeFail(c, http.StatusBadRequest, usecase.CodeInvalidBody, "Corps de requête invalide.")
}
