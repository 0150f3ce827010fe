package pion

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qrave1/ChatRoulette/internal/client"
	"github.com/qrave1/ChatRoulette/internal/domain/events"
	"github.com/qrave1/ChatRoulette/internal/domain/models"
	"github.com/qrave1/ChatRoulette/internal/domain/negotiation"
)

func newTestFactory() *PeerFactory {
	return NewPeerFactory(FactoryConfig{
		IncludeLoopback: true,
		Logger:          slog.New(slog.DiscardHandler),
	})
}

type testPeer struct {
	client.Peer

	candidates chan events.SignalPayload
	connected  chan struct{}
}

func newTestPeer(t *testing.T, f *PeerFactory, role negotiation.Role, local, remote models.MediaPrefs) *testPeer {
	t.Helper()

	tp := &testPeer{
		candidates: make(chan events.SignalPayload, 64),
		connected:  make(chan struct{}, 1),
	}

	peer, err := f.NewPeer(client.PeerOptions{
		Role:   role,
		Local:  local,
		Remote: remote,
		OnCandidate: func(p events.SignalPayload) {
			tp.candidates <- p
		},
		OnConnected: func() {
			select {
			case tp.connected <- struct{}{}:
			default:
			}
		},
	})
	require.NoError(t, err)

	tp.Peer = peer
	t.Cleanup(func() { _ = peer.Close() })

	return tp
}

func TestPeer_OfferAnswerRoundTrip(t *testing.T) {
	f := newTestFactory()
	audio := models.MediaPrefs{Audio: true}

	initiator := newTestPeer(t, f, negotiation.RoleInitiator, audio, models.MediaPrefs{Audio: true, Video: true})
	responder := newTestPeer(t, f, negotiation.RoleResponder, models.MediaPrefs{Audio: true, Video: true}, audio)

	offer, err := initiator.CreateOffer()
	require.NoError(t, err)
	assert.Equal(t, events.SignalOffer, offer.Kind())
	assert.Contains(t, offer.SDP, "m=audio")
	// recvonly видео под медиа собеседника
	assert.Contains(t, offer.SDP, "m=video")

	answer, err := responder.ApplyOffer(offer.SDP)
	require.NoError(t, err)
	assert.Equal(t, events.SignalAnswer, answer.Kind())

	require.NoError(t, initiator.ApplyAnswer(answer.SDP))

	// повторный answer в stable недопустим
	require.Error(t, initiator.ApplyAnswer(answer.SDP))
}

func TestPeer_Connects(t *testing.T) {
	if testing.Short() {
		t.Skip("ICE over loopback")
	}

	f := newTestFactory()
	audio := models.MediaPrefs{Audio: true}

	initiator := newTestPeer(t, f, negotiation.RoleInitiator, audio, audio)
	responder := newTestPeer(t, f, negotiation.RoleResponder, audio, audio)

	offer, err := initiator.CreateOffer()
	require.NoError(t, err)

	answer, err := responder.ApplyOffer(offer.SDP)
	require.NoError(t, err)
	require.NoError(t, initiator.ApplyAnswer(answer.SDP))

	deadline := time.After(10 * time.Second)
	var initiatorUp, responderUp bool

	for !initiatorUp || !responderUp {
		select {
		case c := <-initiator.candidates:
			require.NoError(t, responder.AddCandidate(c.Candidate))
		case c := <-responder.candidates:
			require.NoError(t, initiator.AddCandidate(c.Candidate))
		case <-initiator.connected:
			initiatorUp = true
		case <-responder.connected:
			responderUp = true
		case <-deadline:
			t.Fatal("peers did not connect")
		}
	}
}

func TestPeer_ApplyAnswerWithoutOffer(t *testing.T) {
	f := newTestFactory()
	peer := newTestPeer(t, f, negotiation.RoleInitiator, models.MediaPrefs{Audio: true}, models.MediaPrefs{})

	require.Error(t, peer.ApplyAnswer("v=0\r\n"))
}

func TestPeer_AddCandidate(t *testing.T) {
	f := newTestFactory()
	peer := newTestPeer(t, f, negotiation.RoleInitiator, models.MediaPrefs{Audio: true}, models.MediaPrefs{})

	// пустой кандидат - конец сбора
	assert.NoError(t, peer.AddCandidate(json.RawMessage(`{"candidate":""}`)))
	assert.NoError(t, peer.AddCandidate(json.RawMessage(`""`)))

	assert.Error(t, peer.AddCandidate(json.RawMessage(`{broken`)))

	// без remote description pion отказывает
	assert.Error(t, peer.AddCandidate(json.RawMessage(`"candidate:1 1 udp 2130706431 127.0.0.1 5000 typ host"`)))
}

func TestPeer_CloseTwice(t *testing.T) {
	f := newTestFactory()
	peer := newTestPeer(t, f, negotiation.RoleResponder, models.MediaPrefs{}, models.MediaPrefs{})

	require.NoError(t, peer.Close())
	assert.NoError(t, peer.Close())
}

func TestSlogLoggerFactory(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: levelTrace}))

	l := SlogLoggerFactory{Logger: logger}.NewLogger("ice")
	l.Tracef("trace %d", 1)
	l.Infof("gathered %d candidates", 3)
	l.Error("boom")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &rec))
	assert.Equal(t, "gathered 3 candidates", rec["msg"])
	assert.Equal(t, "ice", rec["scope"])
	assert.Equal(t, "INFO", rec["level"])

	require.NoError(t, json.Unmarshal([]byte(lines[2]), &rec))
	assert.Equal(t, "ERROR", rec["level"])
}

func TestSlogLoggerFactory_DefaultLogger(t *testing.T) {
	l := SlogLoggerFactory{}.NewLogger("pc")
	assert.NotNil(t, l)
	l.Debug("no panic")
}
