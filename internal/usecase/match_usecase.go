package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/qrave1/ChatRoulette/internal/application/constant"
	"github.com/qrave1/ChatRoulette/internal/application/metric"
	"github.com/qrave1/ChatRoulette/internal/domain/events"
	"github.com/qrave1/ChatRoulette/internal/domain/models"
	"github.com/qrave1/ChatRoulette/internal/infra/adapters/memory"
)

// MatchUsecase - жизненный цикл участника: подключение, очередь, пара, уход
type MatchUsecase interface {
	Connect(ctx context.Context, participantID uuid.UUID) error

	// RequestMatch ставит в очередь или сразу создаёт пару.
	// Текущая пара участника предварительно разрывается ("next").
	RequestMatch(ctx context.Context, participantID uuid.UUID, req events.RequestMatchEvent) error

	// Leave и Disconnect идемпотентны
	Leave(ctx context.Context, participantID uuid.UUID)
	Disconnect(ctx context.Context, participantID uuid.UUID)
}

type matchUsecase struct {
	lobby  memory.LobbyRepository
	wsRepo memory.WebsocketConnectionRepository
	stats  StatsUsecase

	now func() time.Time
}

func NewMatchUsecase(
	lobby memory.LobbyRepository,
	wsRepo memory.WebsocketConnectionRepository,
	stats StatsUsecase,
) MatchUsecase {
	return &matchUsecase{
		lobby:  lobby,
		wsRepo: wsRepo,
		stats:  stats,
		now:    time.Now,
	}
}

func (uc *matchUsecase) Connect(ctx context.Context, participantID uuid.UUID) error {
	if err := uc.lobby.Register(participantID, uc.now()); err != nil {
		return fmt.Errorf("register participant: %w", err)
	}

	uc.refreshMetrics()

	return nil
}

func (uc *matchUsecase) RequestMatch(ctx context.Context, participantID uuid.UUID, req events.RequestMatchEvent) error {
	media := models.MediaPrefs{Audio: req.Audio, Video: req.Video}

	res, err := uc.lobby.EnqueueOrMatch(participantID, media, req.Interests, uc.now())
	if err != nil {
		return fmt.Errorf("enqueue or match: %w", err)
	}

	uc.teardown(participantID, res.Previous)
	uc.stats.ParticipantSeen(res.Self)

	if !res.Matched {
		notify(uc.wsRepo, participantID, events.TypeWaiting, nil)
		uc.refreshMetrics()

		return nil
	}

	metric.IncrementPairings()
	uc.stats.PairingStarted(*res.Pairing)

	slog.Info(
		"pairing created",
		slog.String(constant.PairingID, res.Pairing.ID.String()),
		slog.String(constant.ParticipantID, participantID.String()),
		slog.String(constant.CounterpartID, res.Partner.ID.String()),
	)

	// ожидавший в очереди уступает при встречных offer.
	// Пересылка в пару ждет Announce, поэтому сигналы собеседника
	// не обгоняют match-found.
	notify(uc.wsRepo, res.Partner.ID, events.TypeMatchFound, events.MatchFoundEvent{
		PairingID: res.Pairing.ID.String(),
		Audio:     res.Self.Media.Audio,
		Video:     res.Self.Media.Video,
		Polite:    true,
	})
	notify(uc.wsRepo, participantID, events.TypeMatchFound, events.MatchFoundEvent{
		PairingID: res.Pairing.ID.String(),
		Audio:     res.Partner.Media.Audio,
		Video:     res.Partner.Media.Video,
		Polite:    false,
	})
	uc.lobby.Announce(res.Pairing.ID)

	uc.refreshMetrics()

	return nil
}

func (uc *matchUsecase) Leave(ctx context.Context, participantID uuid.UUID) {
	uc.teardown(participantID, uc.lobby.Leave(participantID, uc.now()))
	uc.refreshMetrics()
}

func (uc *matchUsecase) Disconnect(ctx context.Context, participantID uuid.UUID) {
	uc.teardown(participantID, uc.lobby.Unregister(participantID, uc.now()))
	uc.refreshMetrics()
}

// teardown уведомляет бывшего собеседника о разрыве пары
func (uc *matchUsecase) teardown(participantID uuid.UUID, t memory.Teardown) {
	if !t.Ended() {
		return
	}

	slog.Info(
		"pairing ended",
		slog.String(constant.PairingID, t.Pairing.ID.String()),
		slog.String(constant.ParticipantID, participantID.String()),
	)

	notify(uc.wsRepo, t.CounterpartID, events.TypePartnerLeft, nil)
	uc.stats.PairingEnded(*t.Pairing)
}

func (uc *matchUsecase) refreshMetrics() {
	size := uc.lobby.Size()
	metric.SetLobbySize(size.Waiting, size.Pairings)
}
