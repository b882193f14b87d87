package server

import (
	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo, registrars ...Registrar) {
	for _, r := range registrars {
		r.RegisterRoutes(e)
	}
}
