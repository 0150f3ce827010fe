package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/qrave1/ChatRoulette/internal/application/constant"
	"github.com/qrave1/ChatRoulette/internal/infra/ports/http/dto"
	"github.com/qrave1/ChatRoulette/internal/usecase"
)

type StatsHandler struct {
	statsUsecase usecase.StatsUsecase
}

func NewStatsHandler(statsUsecase usecase.StatsUsecase) *StatsHandler {
	return &StatsHandler{statsUsecase: statsUsecase}
}

func (h *StatsHandler) GetStats(c echo.Context) error {
	stats, err := h.statsUsecase.GetStats(c.Request().Context())
	if err != nil {
		slog.Error("get stats", slog.Any(constant.Error, err))

		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to get stats"})
	}

	return c.JSON(http.StatusOK, stats)
}
