package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/qrave1/ChatRoulette/internal/application/constant"
	"github.com/qrave1/ChatRoulette/internal/application/metric"
	"github.com/qrave1/ChatRoulette/internal/domain/events"
	"github.com/qrave1/ChatRoulette/internal/infra/adapters/memory"
)

var (
	ErrInvalidSignal  = errors.New("invalid signal payload")
	ErrMessageTooLong = errors.New("message too long")
)

// announceTimeout покрывает две записи match-found с дедлайном 10s
const announceTimeout = 25 * time.Second

// RelayUsecase пересылает текст и сигналы собеседнику без изменений.
// Без пары вызовы ничего не делают.
type RelayUsecase interface {
	SendMessage(ctx context.Context, from uuid.UUID, text string) error
	SendSignal(ctx context.Context, from uuid.UUID, payload json.RawMessage) error
	Ping(ctx context.Context, participantID uuid.UUID)
}

type relayUsecase struct {
	lobby  memory.LobbyRepository
	wsRepo memory.WebsocketConnectionRepository
	stats  StatsUsecase

	maxMessageRunes int
}

func NewRelayUsecase(
	lobby memory.LobbyRepository,
	wsRepo memory.WebsocketConnectionRepository,
	stats StatsUsecase,
	maxMessageRunes int,
) RelayUsecase {
	return &relayUsecase{
		lobby:           lobby,
		wsRepo:          wsRepo,
		stats:           stats,
		maxMessageRunes: maxMessageRunes,
	}
}

// SendMessage пересылает текст как есть. Текст длиннее лимита не режется,
// а отклоняется с ошибкой отправителю.
func (uc *relayUsecase) SendMessage(ctx context.Context, from uuid.UUID, text string) error {
	if uc.maxMessageRunes > 0 && utf8.RuneCountInString(text) > uc.maxMessageRunes {
		metric.IncrementRelayDropped("text")
		return fmt.Errorf("%w: limit %d characters", ErrMessageTooLong, uc.maxMessageRunes)
	}

	to, pairingID, ok := uc.counterpart(ctx, from)
	if !ok {
		metric.IncrementRelayDropped("text")
		slog.Debug("text without pairing", slog.String(constant.ParticipantID, from.String()))

		return nil
	}

	if !notify(uc.wsRepo, to, events.TypeTextReceived, events.TextEvent{Message: text}) {
		metric.IncrementRelayDropped("text")
		return nil
	}

	metric.IncrementRelayed("text")
	uc.stats.MessageRelayed(pairingID)

	return nil
}

// SendSignal пересылает payload без изменений
func (uc *relayUsecase) SendSignal(ctx context.Context, from uuid.UUID, payload json.RawMessage) error {
	var signal events.SignalPayload
	if err := json.Unmarshal(payload, &signal); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSignal, err)
	}

	kind := string(signal.Kind())

	to, _, ok := uc.counterpart(ctx, from)
	if !ok {
		metric.IncrementRelayDropped(kind)
		slog.Debug(
			"signal without pairing",
			slog.String(constant.ParticipantID, from.String()),
			slog.String(constant.Type, kind),
		)

		return nil
	}

	if !uc.wsRepo.Write(to, events.Message{Type: events.TypeSignalReceived, Data: payload}) {
		metric.IncrementRelayDropped(kind)
		return nil
	}

	metric.IncrementRelayed(kind)

	return nil
}

// counterpart находит собеседника, дождавшись объявления пары
func (uc *relayUsecase) counterpart(ctx context.Context, from uuid.UUID) (uuid.UUID, uuid.UUID, bool) {
	to, pairingID, ok := uc.lobby.Counterpart(from)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}

	ctx, cancel := context.WithTimeout(ctx, announceTimeout)
	defer cancel()

	if !uc.lobby.AwaitAnnounced(ctx, pairingID) {
		return uuid.Nil, uuid.Nil, false
	}

	return to, pairingID, true
}

func (uc *relayUsecase) Ping(ctx context.Context, participantID uuid.UUID) {
	notify(uc.wsRepo, participantID, events.TypePong, nil)
}
