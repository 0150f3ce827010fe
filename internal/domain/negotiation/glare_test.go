package negotiation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qrave1/ChatRoulette/internal/domain/events"
)

// fakeSide исполняет действия машины поверх условного объекта согласования
// и отправляет сигналы другой стороне через FIFO очередь.
type fakeSide struct {
	t     *testing.T
	name  string
	m     *Machine
	other *fakeSide

	local []Event
	inbox []events.SignalPayload

	gen       uint64
	created   int
	remoteSet bool
	failed    error
}

func newFakeSide(t *testing.T, name string, media bool) *fakeSide {
	return &fakeSide{t: t, name: name, m: NewMachine(Config{LocalMedia: media})}
}

func (s *fakeSide) handle(ev Event) {
	s.t.Helper()

	actions, err := s.m.Handle(ev)
	require.NoError(s.t, err)

	s.exec(actions)
}

func (s *fakeSide) send(p events.SignalPayload) {
	s.other.inbox = append(s.other.inbox, p)
}

func (s *fakeSide) exec(actions []Action) {
	for _, a := range actions {
		switch a := a.(type) {
		case CreatePeer:
			s.gen = a.Gen
			s.created++
			s.remoteSet = false
			s.local = append(s.local, PeerCreated{Gen: a.Gen})

		case DestroyPeer:
			if s.gen == a.Gen {
				s.gen = 0
			}

		case CreateOffer:
			require.Equal(s.t, s.gen, a.Gen)
			s.send(offer(s.name))
			s.send(candidate(int(a.Gen)))
			s.local = append(s.local, OfferCreated{Gen: a.Gen})

		case Apply:
			require.Equal(s.t, s.gen, a.Gen, "%s applied to a destroyed object", s.name)

			switch a.Payload.Kind() {
			case events.SignalOffer:
				s.remoteSet = true
				s.send(answer(s.name))
				s.send(candidate(int(a.Gen)))
				s.local = append(s.local, PeerConnected{Gen: a.Gen})
			case events.SignalAnswer:
				s.remoteSet = true
				s.local = append(s.local, PeerConnected{Gen: a.Gen})
			default:
				assert.True(s.t, s.remoteSet, "%s applied candidate before remote description", s.name)
			}

		case Fail:
			s.failed = a.Err
		}
	}
}

// run сначала обрабатывает локальные события обеих сторон, затем доставляет
// по одному сигналу каждой, чтобы offer гарантированно пересекались.
func run(t *testing.T, a, b *fakeSide) {
	t.Helper()

	for range 100 {
		progressed := false

		for _, s := range []*fakeSide{a, b} {
			for len(s.local) > 0 {
				ev := s.local[0]
				s.local = s.local[1:]
				s.handle(ev)
				progressed = true
			}
		}

		for _, s := range []*fakeSide{a, b} {
			if len(s.inbox) > 0 {
				p := s.inbox[0]
				s.inbox = s.inbox[1:]
				s.handle(SignalReceived{Payload: p})
				progressed = true
			}
		}

		if !progressed {
			return
		}
	}

	t.Fatal("negotiation did not settle")
}

func pair(t *testing.T, aMedia, bMedia, aPolite bool) (*fakeSide, *fakeSide) {
	a := newFakeSide(t, "a", aMedia)
	b := newFakeSide(t, "b", bMedia)
	a.other, b.other = b, a

	a.handle(Paired{Polite: aPolite})
	b.handle(Paired{Polite: !aPolite})

	return a, b
}

func TestGlare_ConvergesWithSingleRecreation(t *testing.T) {
	for _, aPolite := range []bool{true, false} {
		a, b := pair(t, true, true, aPolite)

		run(t, a, b)

		require.NoError(t, a.failed)
		require.NoError(t, b.failed)
		assert.Equal(t, StateConnected, a.m.State())
		assert.Equal(t, StateConnected, b.m.State())

		assert.Equal(t, 1, a.created+b.created-2, "exactly one recreation")
		assert.NotEqual(t, a.m.Role(), b.m.Role())

		polite, impolite := a, b
		if !aPolite {
			polite, impolite = b, a
		}
		assert.Equal(t, RoleResponder, polite.m.Role())
		assert.Equal(t, RoleInitiator, impolite.m.Role())
	}
}

func TestGlare_SingleMediaSideNoRecreation(t *testing.T) {
	a, b := pair(t, true, false, false)

	run(t, a, b)

	assert.Equal(t, StateConnected, a.m.State())
	assert.Equal(t, StateConnected, b.m.State())
	assert.Equal(t, RoleInitiator, a.m.Role())
	assert.Equal(t, RoleResponder, b.m.Role())
	assert.Equal(t, 2, a.created+b.created)
}

func TestGlare_SilentPairNeverNegotiates(t *testing.T) {
	a, b := pair(t, false, false, true)

	run(t, a, b)

	assert.Equal(t, StateIdle, a.m.State())
	assert.Equal(t, StateIdle, b.m.State())
	assert.Zero(t, a.created+b.created)
}
