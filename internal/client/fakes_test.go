package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/qrave1/ChatRoulette/internal/domain/events"
	"github.com/qrave1/ChatRoulette/internal/domain/negotiation"
)

const waitFor = 3 * time.Second

var errConnClosed = errors.New("conn closed")

// fakeConn - сервер в памяти: тест кладет события в in, агент пишет в out
type fakeConn struct {
	in chan events.Message

	mu  sync.Mutex
	out []events.Message

	closeOnce sync.Once
	closed    chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:     make(chan events.Message, 16),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) ReadJSON(v any) error {
	select {
	case msg := <-c.in:
		*v.(*events.Message) = msg
		return nil
	case <-c.closed:
		return errConnClosed
	}
}

func (c *fakeConn) WriteJSON(v any) error {
	select {
	case <-c.closed:
		return errConnClosed
	default:
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.out = append(c.out, v.(events.Message))

	return nil
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) push(t *testing.T, typ string, data any) {
	t.Helper()

	msg, err := events.NewMessage(typ, data)
	require.NoError(t, err)

	c.in <- msg
}

func (c *fakeConn) sent(typ string) []events.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []events.Message
	for _, msg := range c.out {
		if msg.Type == typ {
			out = append(out, msg)
		}
	}

	return out
}

// waitSent ждет n-е (с единицы) событие типа typ
func (c *fakeConn) waitSent(t *testing.T, typ string, n int) events.Message {
	t.Helper()

	require.Eventually(t, func() bool {
		return len(c.sent(typ)) >= n
	}, waitFor, 5*time.Millisecond, "no %d x %s", n, typ)

	return c.sent(typ)[n-1]
}

// fakePeer отдает SDP вида "offer-<id>" и сам сообщает о подключении,
// когда обе стороны описаний известны
type fakePeer struct {
	id   int
	opts PeerOptions

	autoConnect bool

	mu         sync.Mutex
	offers     []string
	answers    []string
	candidates []string
	closed     bool
}

func (p *fakePeer) CreateOffer() (events.SignalPayload, error) {
	go p.opts.OnCandidate(events.SignalPayload{Candidate: json.RawMessage(fmt.Sprintf(`"cand-%d"`, p.id))})

	return events.SignalPayload{Type: "offer", SDP: fmt.Sprintf("offer-%d", p.id)}, nil
}

func (p *fakePeer) ApplyOffer(sdp string) (events.SignalPayload, error) {
	p.mu.Lock()
	p.offers = append(p.offers, sdp)
	p.mu.Unlock()

	p.connect()

	return events.SignalPayload{Type: "answer", SDP: fmt.Sprintf("answer-%d", p.id)}, nil
}

func (p *fakePeer) ApplyAnswer(sdp string) error {
	p.mu.Lock()
	p.answers = append(p.answers, sdp)
	p.mu.Unlock()

	p.connect()

	return nil
}

func (p *fakePeer) AddCandidate(raw json.RawMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.candidates = append(p.candidates, string(raw))

	return nil
}

func (p *fakePeer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true

	return nil
}

func (p *fakePeer) connect() {
	if p.autoConnect {
		go p.opts.OnConnected()
	}
}

func (p *fakePeer) snapshot() (offers, answers, candidates []string, closed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]string(nil), p.offers...),
		append([]string(nil), p.answers...),
		append([]string(nil), p.candidates...),
		p.closed
}

type fakeFactory struct {
	autoConnect bool
	fail        error
	failFirst   error

	mu    sync.Mutex
	calls int
	peers []*fakePeer
}

func (f *fakeFactory) NewPeer(opts PeerOptions) (Peer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.fail != nil {
		return nil, f.fail
	}
	if f.failFirst != nil && f.calls == 1 {
		return nil, f.failFirst
	}

	p := &fakePeer{id: f.calls, opts: opts, autoConnect: f.autoConnect}
	f.peers = append(f.peers, p)

	return p, nil
}

func (f *fakeFactory) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls
}

func (f *fakeFactory) waitPeer(t *testing.T, n int) *fakePeer {
	t.Helper()

	require.Eventually(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()

		return len(f.peers) >= n
	}, waitFor, 5*time.Millisecond, "peer %d not created", n)

	f.mu.Lock()
	defer f.mu.Unlock()

	return f.peers[n-1]
}

func (f *fakeFactory) roles() []negotiation.Role {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]negotiation.Role, 0, len(f.peers))
	for _, p := range f.peers {
		out = append(out, p.opts.Role)
	}

	return out
}
