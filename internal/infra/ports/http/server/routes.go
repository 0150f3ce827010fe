package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/qrave1/ChatRoulette/internal/application/config"
	"github.com/qrave1/ChatRoulette/internal/infra/ports/http/handlers"
	"github.com/qrave1/ChatRoulette/internal/infra/ports/http/middleware"
	"github.com/qrave1/ChatRoulette/internal/usecase"
)

func New(
	cfg *config.Config,
	sessionUsecase usecase.SessionUsecase,
	sessionHandler *handlers.SessionHandler,
	statsHandler *handlers.StatsHandler,
	iceHandler *handlers.IceHandler,
	wsHandler *handlers.WebSocketHandler,
) *echo.Echo {
	e := echo.New()

	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.SlogLogger())
	e.Use(middleware.PrometheusMiddleware())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	api := e.Group("/api")
	{
		api.POST("/session", sessionHandler.Create)
		api.GET("/stats", statsHandler.GetStats)

		v1 := api.Group("/v1")
		v1.Use(middleware.JWTAuthMiddleware(sessionUsecase))
		{
			v1.GET("/ice", iceHandler.IceServers)

			v1.GET("/ws", wsHandler.Handle)
		}
	}

	if cfg.Debug {
		e.Debug = true
	}

	return e
}
