package metric

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/qrave1/ChatRoulette/internal/application/constant"
)

const readyTimeout = 2 * time.Second

// ReadyFunc проверяет, что хранилище статистики доступно
type ReadyFunc func(ctx context.Context) error

// NewServer - сервер служебных ручек: метрики, liveness и readiness.
// /ready отвечает 503, пока ready возвращает ошибку.
func NewServer(ready ReadyFunc) *echo.Echo {
	e := echo.New()

	e.HideBanner = true
	e.HidePort = true

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	e.GET("/ready", func(c echo.Context) error {
		if ready == nil {
			return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
		}

		ctx, cancel := context.WithTimeout(c.Request().Context(), readyTimeout)
		defer cancel()

		if err := ready(ctx); err != nil {
			slog.Warn("stats backend not ready", slog.Any(constant.Error, err))

			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  err.Error(),
			})
		}

		return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
	})

	return e
}
