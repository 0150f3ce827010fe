package servertest

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/qrave1/ChatRoulette/internal/application/config"
	"github.com/qrave1/ChatRoulette/internal/infra/adapters/memory"
	"github.com/qrave1/ChatRoulette/internal/infra/ports/http/server"
)

// NewTestServer поднимает сервер на httptest с памятью вместо БД
func NewTestServer(t testing.TB) (*httptest.Server, *server.App) {
	t.Helper()

	cfg := &config.Config{
		Debug:     true,
		Domain:    "http://localhost",
		JWTSecret: "test-secret",
		STUNURLs:  []string{"stun:stun.example.com:3478"},
		Matching:  config.MatchingConfig{Lookahead: 8},
		Relay:     config.RelayConfig{MaxMessageRunes: 2000, StatsQueueSize: 64},
	}

	app := server.Build(cfg, memory.NewStatsRepository())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		app.Stats.Run(ctx)
		close(done)
	}()

	srv := httptest.NewServer(app.Echo)

	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
	})

	return srv, app
}
