package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/qrave1/ChatRoulette/internal/domain/models"
)

// StatsRepository - счётчики в памяти процесса, для STATS_BACKEND=memory и тестов
type StatsRepository struct {
	mu sync.Mutex

	participants map[uuid.UUID]struct{}
	pairings     map[uuid.UUID]int64
	messages     int64
}

func NewStatsRepository() *StatsRepository {
	return &StatsRepository{
		participants: make(map[uuid.UUID]struct{}),
		pairings:     make(map[uuid.UUID]int64),
	}
}

func (r *StatsRepository) SaveParticipant(_ context.Context, p models.Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.participants[p.ID] = struct{}{}

	return nil
}

func (r *StatsRepository) SavePairing(_ context.Context, p models.Pairing) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.pairings[p.ID]; !ok {
		r.pairings[p.ID] = 0
	}

	return nil
}

func (r *StatsRepository) EndPairing(_ context.Context, _ models.Pairing) error {
	return nil
}

func (r *StatsRepository) IncrementMessages(_ context.Context, pairingID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.pairings[pairingID]; ok {
		r.pairings[pairingID]++
	}
	r.messages++

	return nil
}

// Messages - число сообщений в паре
func (r *StatsRepository) Messages(pairingID uuid.UUID) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.pairings[pairingID]
}

func (r *StatsRepository) Totals(_ context.Context) (models.Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return models.Stats{
		TotalParticipants: int64(len(r.participants)),
		TotalPairings:     int64(len(r.pairings)),
		TotalMessages:     r.messages,
	}, nil
}
