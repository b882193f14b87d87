package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/metrics"
	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/middleware"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// ルートを持つハンドラ
type Registrar interface {
	RegisterRoutes(e *echo.Echo)
}

type Server struct {
	echo   *echo.Echo
	addr   string
	logger *zap.Logger
}

// New はechoを組み立ててルートを登録する。
func New(addr string, logger *zap.Logger, m *metrics.Metrics, registrars ...Registrar) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.RequestID())
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(logger, m))
	e.Use(echomw.BodyLimit("1M"))

	RegisterRoutes(e, registrars...)

	return &Server{echo: e, addr: normalizeAddr(addr), logger: logger}
}

func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start はShutdownされるまでブロックする。
func (s *Server) Start() error {
	s.logger.Info("http server listening", zap.String("addr", s.addr))

	srv := &http.Server{
		Addr:              s.addr,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := s.echo.StartServer(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func normalizeAddr(v string) string {
	if v == "" {
		return ":8080"
	}
	if v[0] != ':' {
		return ":" + v
	}
	return v
}
