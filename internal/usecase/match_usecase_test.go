package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qrave1/ChatRoulette/internal/domain/events"
	"github.com/qrave1/ChatRoulette/internal/infra/adapters/memory"
)

func TestMatch_SilentPair(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	x, y := e.connect(t), e.connect(t)

	require.NoError(t, e.match.RequestMatch(ctx, x, events.RequestMatchEvent{}))
	assert.Equal(t, []string{events.TypeWaiting}, types(e.ws.to(x)))

	require.NoError(t, e.match.RequestMatch(ctx, y, events.RequestMatchEvent{}))

	toX, toY := e.ws.to(x), e.ws.to(y)
	require.Equal(t, []string{events.TypeMatchFound}, types(toX))
	require.Equal(t, []string{events.TypeMatchFound}, types(toY))

	foundX := decode[events.MatchFoundEvent](t, toX[0])
	foundY := decode[events.MatchFoundEvent](t, toY[0])
	assert.Equal(t, foundX.PairingID, foundY.PairingID)
	assert.True(t, foundX.Polite)
	assert.False(t, foundY.Polite)
	assert.False(t, foundX.Audio || foundX.Video)

	assert.Equal(t, memory.LobbySize{Connected: 2, Waiting: 0, Pairings: 1}, e.lobby.Size())
}

func TestMatch_CounterpartMediaInMatchFound(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	x, y := e.connect(t), e.connect(t)

	require.NoError(t, e.match.RequestMatch(ctx, x, events.RequestMatchEvent{Audio: true}))
	require.NoError(t, e.match.RequestMatch(ctx, y, events.RequestMatchEvent{Audio: true, Video: true}))

	toX := e.ws.to(x)
	require.Len(t, toX, 2)
	foundX := decode[events.MatchFoundEvent](t, toX[1])
	assert.True(t, foundX.Audio)
	assert.True(t, foundX.Video)

	foundY := decode[events.MatchFoundEvent](t, e.ws.to(y)[0])
	assert.True(t, foundY.Audio)
	assert.False(t, foundY.Video)
}

func TestMatch_LeaveNotifiesOnce(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	x, y := e.connect(t), e.connect(t)

	require.NoError(t, e.match.RequestMatch(ctx, x, events.RequestMatchEvent{}))
	require.NoError(t, e.match.RequestMatch(ctx, y, events.RequestMatchEvent{}))
	e.ws.to(x)
	e.ws.to(y)

	e.match.Leave(ctx, x)
	e.match.Leave(ctx, x)
	e.match.Disconnect(ctx, x)

	assert.Equal(t, []string{events.TypePartnerLeft}, types(e.ws.to(y)))
	assert.Empty(t, e.ws.to(x))
	assert.Equal(t, memory.LobbySize{Connected: 1, Waiting: 0, Pairings: 0}, e.lobby.Size())
}

func TestMatch_NextTearsDownAndRequeues(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	x, y, z := e.connect(t), e.connect(t), e.connect(t)

	require.NoError(t, e.match.RequestMatch(ctx, x, events.RequestMatchEvent{}))
	require.NoError(t, e.match.RequestMatch(ctx, y, events.RequestMatchEvent{}))
	e.ws.to(x)
	e.ws.to(y)

	require.NoError(t, e.match.RequestMatch(ctx, z, events.RequestMatchEvent{}))
	assert.Equal(t, []string{events.TypeWaiting}, types(e.ws.to(z)))

	// y жмёт "next": x получает partner-left, y сразу находит z
	require.NoError(t, e.match.RequestMatch(ctx, y, events.RequestMatchEvent{}))

	assert.Equal(t, []string{events.TypePartnerLeft}, types(e.ws.to(x)))
	assert.Equal(t, []string{events.TypeMatchFound}, types(e.ws.to(y)))
	assert.Equal(t, []string{events.TypeMatchFound}, types(e.ws.to(z)))

	counterpart, _, ok := e.lobby.Counterpart(y)
	require.True(t, ok)
	assert.Equal(t, z, counterpart)
}

func TestMatch_DisconnectWhileWaiting(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	x := e.connect(t)

	require.NoError(t, e.match.RequestMatch(ctx, x, events.RequestMatchEvent{}))
	e.match.Disconnect(ctx, x)

	assert.Equal(t, memory.LobbySize{}, e.lobby.Size())

	err := e.match.RequestMatch(ctx, x, events.RequestMatchEvent{})
	require.ErrorIs(t, err, memory.ErrParticipantNotFound)
}

func TestMatch_ConnectTwice(t *testing.T) {
	e := newEnv(t)
	x := e.connect(t)

	err := e.match.Connect(context.Background(), x)
	require.ErrorIs(t, err, memory.ErrParticipantExists)
}

func TestMatch_RecordsStats(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	x, y := e.connect(t), e.connect(t)

	require.NoError(t, e.match.RequestMatch(ctx, x, events.RequestMatchEvent{}))
	require.NoError(t, e.match.RequestMatch(ctx, y, events.RequestMatchEvent{}))

	require.Eventually(t, func() bool {
		stats, err := e.stats.GetStats(ctx)
		return err == nil && stats.TotalParticipants == 2 && stats.TotalPairings == 1
	}, time.Second, 10*time.Millisecond)
}

func TestMatch_UnknownParticipantLeaveIsNoop(t *testing.T) {
	e := newEnv(t)

	assert.NotPanics(t, func() {
		e.match.Leave(context.Background(), uuid.New())
		e.match.Disconnect(context.Background(), uuid.New())
	})
}
