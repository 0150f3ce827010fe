package usecase

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/qrave1/ChatRoulette/internal/domain/events"
	"github.com/qrave1/ChatRoulette/internal/domain/matching"
	"github.com/qrave1/ChatRoulette/internal/infra/adapters/memory"
)

type sentMessage struct {
	to  uuid.UUID
	msg events.Message
}

// fakeWS записывает отправленные события вместо записи в сокет
type fakeWS struct {
	mu        sync.Mutex
	connected map[uuid.UUID]bool
	sent      []sentMessage

	// onWrite вызывается после записи, вне мьютекса
	onWrite func(to uuid.UUID, msg events.Message)
}

func newFakeWS() *fakeWS {
	return &fakeWS{connected: make(map[uuid.UUID]bool)}
}

func (f *fakeWS) Add(id uuid.UUID, _ *websocket.Conn) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.connected[id] {
		return false
	}
	f.connected[id] = true

	return true
}

func (f *fakeWS) Remove(id uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.connected, id)
}

func (f *fakeWS) Write(id uuid.UUID, payload any) bool {
	f.mu.Lock()

	if !f.connected[id] {
		f.mu.Unlock()
		return false
	}

	msg := payload.(events.Message)
	f.sent = append(f.sent, sentMessage{to: id, msg: msg})
	hook := f.onWrite
	f.mu.Unlock()

	if hook != nil {
		hook(id, msg)
	}

	return true
}

func (f *fakeWS) setOnWrite(hook func(to uuid.UUID, msg events.Message)) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.onWrite = hook
}

func (f *fakeWS) GetAllConnected() []uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()

	ids := make([]uuid.UUID, 0, len(f.connected))
	for id := range f.connected {
		ids = append(ids, id)
	}

	return ids
}

// to возвращает события, отправленные участнику, и очищает их
func (f *fakeWS) to(id uuid.UUID) []events.Message {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []events.Message
	kept := f.sent[:0]
	for _, s := range f.sent {
		if s.to == id {
			out = append(out, s.msg)
			continue
		}
		kept = append(kept, s)
	}
	f.sent = kept

	return out
}

func types(msgs []events.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Type)
	}

	return out
}

func decode[T any](t *testing.T, msg events.Message) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(msg.Data, &v))

	return v
}

type testEnv struct {
	ws        *fakeWS
	lobby     memory.LobbyRepository
	statsRepo *memory.StatsRepository
	stats     StatsUsecase
	match     MatchUsecase
	relay     RelayUsecase
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()

	ws := newFakeWS()
	lobby := memory.NewLobbyRepository(matching.NewSelector(8, 5*time.Second))
	statsRepo := memory.NewStatsRepository()
	stats := NewStatsUsecase(statsRepo, lobby, 64)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		stats.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return &testEnv{
		ws:        ws,
		lobby:     lobby,
		statsRepo: statsRepo,
		stats:     stats,
		match:     NewMatchUsecase(lobby, ws, stats),
		relay:     NewRelayUsecase(lobby, ws, stats, 10),
	}
}

func (e *testEnv) connect(t *testing.T) uuid.UUID {
	t.Helper()

	id := uuid.New()
	require.True(t, e.ws.Add(id, nil))
	require.NoError(t, e.match.Connect(context.Background(), id))

	return id
}
