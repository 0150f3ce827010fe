package server

import (
	"github.com/labstack/echo/v4"

	"github.com/qrave1/ChatRoulette/internal/application/config"
	"github.com/qrave1/ChatRoulette/internal/domain/matching"
	"github.com/qrave1/ChatRoulette/internal/infra/adapters/memory"
	"github.com/qrave1/ChatRoulette/internal/infra/ports/http/handlers"
	"github.com/qrave1/ChatRoulette/internal/usecase"
)

// App - собранный сервер. StatsUsecase.Run запускает вызывающий.
type App struct {
	Echo  *echo.Echo
	Lobby memory.LobbyRepository
	Stats usecase.StatsUsecase
}

// Build связывает репозитории, usecase и обработчики
func Build(cfg *config.Config, statsRepo usecase.StatsRepository) *App {
	lobby := memory.NewLobbyRepository(
		matching.NewSelector(cfg.Matching.Lookahead, cfg.Matching.FairnessWindow),
	)
	wsConnRepo := memory.NewWSConnectionRepository()

	sessionUsecase := usecase.NewSessionUsecase([]byte(cfg.JWTSecret))
	statsUsecase := usecase.NewStatsUsecase(statsRepo, lobby, cfg.Relay.StatsQueueSize)
	matchUsecase := usecase.NewMatchUsecase(lobby, wsConnRepo, statsUsecase)
	relayUsecase := usecase.NewRelayUsecase(lobby, wsConnRepo, statsUsecase, cfg.Relay.MaxMessageRunes)

	sessionHandler := handlers.NewSessionHandler(sessionUsecase, cfg.Domain)
	statsHandler := handlers.NewStatsHandler(statsUsecase)
	iceHandler := handlers.NewIceHandler(cfg)
	wsHandler := handlers.NewWebSocketHandler(cfg, wsConnRepo, matchUsecase, relayUsecase)

	return &App{
		Echo:  New(cfg, sessionUsecase, sessionHandler, statsHandler, iceHandler, wsHandler),
		Lobby: lobby,
		Stats: statsUsecase,
	}
}
