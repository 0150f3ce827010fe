package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/qrave1/ChatRoulette/internal/application/constant"
	"github.com/qrave1/ChatRoulette/internal/application/metric"
	"github.com/qrave1/ChatRoulette/internal/domain/models"
	"github.com/qrave1/ChatRoulette/internal/infra/adapters/memory"
)

const statsWriteTimeout = 5 * time.Second

// StatsRepository - хранилище счётчиков. Содержимое сообщений не хранится.
type StatsRepository interface {
	SaveParticipant(ctx context.Context, p models.Participant) error
	SavePairing(ctx context.Context, p models.Pairing) error
	EndPairing(ctx context.Context, p models.Pairing) error
	IncrementMessages(ctx context.Context, pairingID uuid.UUID) error

	Totals(ctx context.Context) (models.Stats, error)
}

// StatsUsecase пишет статистику в фоне. Методы записи никогда не блокируют:
// при переполнении очереди запись теряется.
type StatsUsecase interface {
	Run(ctx context.Context)

	ParticipantSeen(p models.Participant)
	PairingStarted(p models.Pairing)
	PairingEnded(p models.Pairing)
	MessageRelayed(pairingID uuid.UUID)

	GetStats(ctx context.Context) (models.Stats, error)
}

type statsJob struct {
	name string
	run  func(ctx context.Context) error
}

type statsUsecase struct {
	repo  StatsRepository
	lobby memory.LobbyRepository

	jobs chan statsJob
	now  func() time.Time
}

func NewStatsUsecase(repo StatsRepository, lobby memory.LobbyRepository, queueSize int) StatsUsecase {
	if queueSize <= 0 {
		queueSize = 1
	}

	return &statsUsecase{
		repo:  repo,
		lobby: lobby,
		jobs:  make(chan statsJob, queueSize),
		now:   time.Now,
	}
}

// Run обрабатывает очередь до отмены контекста, затем дописывает остаток
func (uc *statsUsecase) Run(ctx context.Context) {
	for {
		select {
		case job := <-uc.jobs:
			uc.exec(context.WithoutCancel(ctx), job)
		case <-ctx.Done():
			uc.flush(context.WithoutCancel(ctx))
			return
		}
	}
}

func (uc *statsUsecase) flush(ctx context.Context) {
	for {
		select {
		case job := <-uc.jobs:
			uc.exec(ctx, job)
		default:
			return
		}
	}
}

func (uc *statsUsecase) exec(ctx context.Context, job statsJob) {
	ctx, cancel := context.WithTimeout(ctx, statsWriteTimeout)
	defer cancel()

	if err := job.run(ctx); err != nil {
		slog.Error("write stats", slog.String(constant.Type, job.name), slog.Any(constant.Error, err))
	}
}

func (uc *statsUsecase) enqueue(name string, run func(ctx context.Context) error) {
	select {
	case uc.jobs <- statsJob{name: name, run: run}:
	default:
		metric.IncrementStatsDropped()
		slog.Warn("stats queue is full, dropping record", slog.String(constant.Type, name))
	}
}

func (uc *statsUsecase) ParticipantSeen(p models.Participant) {
	uc.enqueue("participant", func(ctx context.Context) error {
		return uc.repo.SaveParticipant(ctx, p)
	})
}

func (uc *statsUsecase) PairingStarted(p models.Pairing) {
	uc.enqueue("pairing-started", func(ctx context.Context) error {
		return uc.repo.SavePairing(ctx, p)
	})
}

func (uc *statsUsecase) PairingEnded(p models.Pairing) {
	uc.enqueue("pairing-ended", func(ctx context.Context) error {
		return uc.repo.EndPairing(ctx, p)
	})
}

func (uc *statsUsecase) MessageRelayed(pairingID uuid.UUID) {
	uc.enqueue("message", func(ctx context.Context) error {
		return uc.repo.IncrementMessages(ctx, pairingID)
	})
}

func (uc *statsUsecase) GetStats(ctx context.Context) (models.Stats, error) {
	stats, err := uc.repo.Totals(ctx)
	if err != nil {
		return models.Stats{}, fmt.Errorf("get totals: %w", err)
	}

	size := uc.lobby.Size()
	stats.ActiveParticipants = size.Connected
	stats.WaitingParticipants = size.Waiting
	stats.ActivePairings = size.Pairings
	stats.Timestamp = uc.now().UTC()

	return stats, nil
}
