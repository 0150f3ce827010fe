package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/qrave1/ChatRoulette/internal/domain/matching"
	"github.com/qrave1/ChatRoulette/internal/domain/models"
)

var (
	ErrParticipantExists   = errors.New("participant already connected")
	ErrParticipantNotFound = errors.New("participant not found")
)

// LobbyRepository хранит участников, очередь ожидания и активные пары.
// Все три структуры меняются под одним мьютексом.
type LobbyRepository interface {
	Register(id uuid.UUID, now time.Time) error
	Unregister(id uuid.UUID, now time.Time) Teardown

	EnqueueOrMatch(id uuid.UUID, media models.MediaPrefs, interests []string, now time.Time) (MatchResult, error)
	Leave(id uuid.UUID, now time.Time) Teardown

	// Announce отмечает, что оба участника пары получили match-found
	Announce(pairingID uuid.UUID)
	// AwaitAnnounced ждет Announce. false - пара разорвана или ctx истек.
	AwaitAnnounced(ctx context.Context, pairingID uuid.UUID) bool

	Counterpart(id uuid.UUID) (uuid.UUID, uuid.UUID, bool)
	Get(id uuid.UUID) (models.Participant, bool)
	Size() LobbySize
}

// Teardown описывает, что было разорвано при уходе участника
type Teardown struct {
	WasWaiting    bool
	Pairing       *models.Pairing
	CounterpartID uuid.UUID
}

// Ended - была ли разорвана пара
func (t Teardown) Ended() bool {
	return t.Pairing != nil
}

// MatchResult - итог запроса. Pairing - копия, снятая под мьютексом.
type MatchResult struct {
	// Previous - пара или место в очереди, которые были до запроса
	Previous Teardown

	Matched bool
	Pairing *models.Pairing
	Self    models.Participant
	Partner models.Participant
}

type LobbySize struct {
	Connected int
	Waiting   int
	Pairings  int
}

type lobbyRepository struct {
	selector matching.Selector

	participants map[uuid.UUID]*models.Participant
	queue        []*models.Participant
	pairings     map[uuid.UUID]*models.Pairing

	// закрывается после Announce или разрыва пары
	unannounced map[uuid.UUID]chan struct{}

	mu sync.Mutex
}

func NewLobbyRepository(selector matching.Selector) LobbyRepository {
	return &lobbyRepository{
		selector:     selector,
		participants: make(map[uuid.UUID]*models.Participant),
		pairings:     make(map[uuid.UUID]*models.Pairing),
		unannounced:  make(map[uuid.UUID]chan struct{}),
	}
}

func (r *lobbyRepository) Register(id uuid.UUID, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.participants[id]; ok {
		return ErrParticipantExists
	}

	r.participants[id] = models.NewParticipant(id, now)

	return nil
}

func (r *lobbyRepository) Unregister(id uuid.UUID, now time.Time) Teardown {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := r.detach(id, now)
	delete(r.participants, id)

	return t
}

func (r *lobbyRepository) EnqueueOrMatch(
	id uuid.UUID,
	media models.MediaPrefs,
	interests []string,
	now time.Time,
) (MatchResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	self, ok := r.participants[id]
	if !ok {
		return MatchResult{}, ErrParticipantNotFound
	}

	result := MatchResult{Previous: r.detach(id, now)}

	self.Media = media
	self.Interests = models.NormalizeInterests(interests)

	idx := r.selector.Pick(now, self, r.queue)
	if idx < 0 {
		self.State = models.StateWaiting
		self.QueuedAt = now
		r.queue = append(r.queue, self)

		result.Self = *self
		return result, nil
	}

	partner := r.queue[idx]
	r.queue = append(r.queue[:idx], r.queue[idx+1:]...)

	// Первым в паре идёт тот, кто ждал в очереди
	pairing := models.NewPairing(partner.ID, self.ID, now)
	r.pairings[pairing.ID] = pairing
	r.unannounced[pairing.ID] = make(chan struct{})

	for _, p := range []*models.Participant{self, partner} {
		p.State = models.StatePaired
		p.QueuedAt = time.Time{}
		p.PairingID = pairing.ID
	}
	self.CounterpartID = partner.ID
	partner.CounterpartID = self.ID

	snapshot := *pairing

	result.Matched = true
	result.Pairing = &snapshot
	result.Self = *self
	result.Partner = *partner

	return result, nil
}

func (r *lobbyRepository) Leave(id uuid.UUID, now time.Time) Teardown {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.detach(id, now)
}

func (r *lobbyRepository) Announce(pairingID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.announce(pairingID)
}

func (r *lobbyRepository) AwaitAnnounced(ctx context.Context, pairingID uuid.UUID) bool {
	r.mu.Lock()
	ch, waiting := r.unannounced[pairingID]
	_, alive := r.pairings[pairingID]
	r.mu.Unlock()

	if !waiting {
		return alive
	}

	select {
	case <-ch:
	case <-ctx.Done():
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, alive = r.pairings[pairingID]

	return alive
}

func (r *lobbyRepository) Counterpart(id uuid.UUID) (uuid.UUID, uuid.UUID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[id]
	if !ok || p.State != models.StatePaired {
		return uuid.Nil, uuid.Nil, false
	}

	return p.CounterpartID, p.PairingID, true
}

func (r *lobbyRepository) Get(id uuid.UUID) (models.Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[id]
	if !ok {
		return models.Participant{}, false
	}

	return *p, true
}

func (r *lobbyRepository) Size() LobbySize {
	r.mu.Lock()
	defer r.mu.Unlock()

	return LobbySize{
		Connected: len(r.participants),
		Waiting:   len(r.queue),
		Pairings:  len(r.pairings),
	}
}

// detach убирает участника из очереди или разрывает его пару. Вызывается под r.mu.
func (r *lobbyRepository) detach(id uuid.UUID, now time.Time) Teardown {
	p, ok := r.participants[id]
	if !ok {
		return Teardown{}
	}

	switch p.State {
	case models.StateWaiting:
		for i, entry := range r.queue {
			if entry.ID == id {
				r.queue = append(r.queue[:i], r.queue[i+1:]...)
				break
			}
		}

		p.State = models.StateIdle
		p.QueuedAt = time.Time{}

		return Teardown{WasWaiting: true}

	case models.StatePaired:
		pairing := r.pairings[p.PairingID]
		delete(r.pairings, p.PairingID)
		r.announce(p.PairingID)

		counterpartID := p.CounterpartID
		if counterpart, ok := r.participants[counterpartID]; ok && counterpart.PairingID == p.PairingID {
			reset(counterpart)
		}
		reset(p)

		if pairing == nil {
			return Teardown{}
		}

		pairing.End(now)

		return Teardown{Pairing: pairing, CounterpartID: counterpartID}
	}

	return Teardown{}
}

func reset(p *models.Participant) {
	p.State = models.StateIdle
	p.PairingID = uuid.Nil
	p.CounterpartID = uuid.Nil
}

// announce будит ждущих пересылку. Вызывается под r.mu.
func (r *lobbyRepository) announce(pairingID uuid.UUID) {
	if ch, ok := r.unannounced[pairingID]; ok {
		close(ch)
		delete(r.unannounced, pairingID)
	}
}
