package usecase

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/qrave1/ChatRoulette/internal/application/constant"
	"github.com/qrave1/ChatRoulette/internal/domain/events"
	"github.com/qrave1/ChatRoulette/internal/infra/adapters/memory"
)

// notify отправляет событие участнику. false - соединения уже нет.
func notify(wsRepo memory.WebsocketConnectionRepository, to uuid.UUID, typ string, data any) bool {
	msg, err := events.NewMessage(typ, data)
	if err != nil {
		slog.Error("marshal event", slog.String(constant.Type, typ), slog.Any(constant.Error, err))
		return false
	}

	return wsRepo.Write(to, msg)
}
