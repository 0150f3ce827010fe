package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/qrave1/ChatRoulette/internal/application/config"
	"github.com/qrave1/ChatRoulette/internal/application/constant"
	"github.com/qrave1/ChatRoulette/internal/domain/events"
	"github.com/qrave1/ChatRoulette/internal/domain/models"
	"github.com/qrave1/ChatRoulette/internal/domain/negotiation"
)

var ErrStopped = errors.New("agent stopped")

type Config struct {
	Media       models.MediaPrefs
	Interests   []string
	Negotiation config.NegotiationConfig

	// AutoNext - после ухода собеседника или провала согласования искать новую пару
	AutoNext bool

	// Greeting отправляется каждой новой паре
	Greeting string
}

// Status - снимок состояния агента
type Status struct {
	Paired      bool
	State       negotiation.State
	Role        negotiation.Role
	Polite      bool
	Generation  uint64
	Recreations int
	Texts       []string
	Failures    int
}

// Agent - участник без UI. Одна горутина владеет машиной согласования и
// текущим Peer, всё остальное приходит к ней через tasks.
type Agent struct {
	conn    Conn
	factory PeerFactory
	cfg     Config

	machine *negotiation.Machine
	remote  models.MediaPrefs

	peer      Peer
	peerGen   uint64
	mediaSeen bool
	liveness  *time.Timer

	texts    []string
	failures int

	tasks chan func()
	done  chan struct{}
}

func NewAgent(conn Conn, factory PeerFactory, cfg Config) *Agent {
	return &Agent{
		conn:    conn,
		factory: factory,
		cfg:     cfg,
		machine: negotiation.NewMachine(negotiation.Config{
			MaxRecreations:  cfg.Negotiation.MaxRecreations,
			LivenessRetries: cfg.Negotiation.LivenessRetries,
			LocalMedia:      !cfg.Media.Silent(),
		}),
		tasks: make(chan func(), 64),
		done:  make(chan struct{}),
	}
}

// Run встаёт в очередь и обрабатывает события до отмены ctx или обрыва соединения
func (a *Agent) Run(ctx context.Context) error {
	defer close(a.done)
	defer a.shutdown()

	inbound := make(chan events.Message)
	readErr := make(chan error, 1)

	go a.read(inbound, readErr)

	if err := a.requestMatch(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			_ = a.conn.Close()
			return nil
		case err := <-readErr:
			return fmt.Errorf("read from server: %w", err)
		case msg := <-inbound:
			a.handleServer(msg)
		case task := <-a.tasks:
			task()
		}
	}
}

// Status возвращает состояние, снятое в горутине агента
func (a *Agent) Status(ctx context.Context) (Status, error) {
	result := make(chan Status, 1)

	if !a.post(func() { result <- a.snapshot() }) {
		return Status{}, ErrStopped
	}

	select {
	case s := <-result:
		return s, nil
	case <-a.done:
		return Status{}, ErrStopped
	case <-ctx.Done():
		return Status{}, ctx.Err()
	}
}

// SendText отправляет сообщение текущему собеседнику
func (a *Agent) SendText(text string) bool {
	return a.post(func() {
		if err := a.send(events.TypeSendText, events.TextEvent{Message: text}); err != nil {
			slog.Error("send text", slog.Any(constant.Error, err))
		}
	})
}

// Next уходит от собеседника и ищет нового
func (a *Agent) Next() bool {
	return a.post(func() {
		a.dispatch(negotiation.Reset{})
		if err := a.requestMatch(); err != nil {
			slog.Error("request match", slog.Any(constant.Error, err))
		}
	})
}

func (a *Agent) snapshot() Status {
	return Status{
		Paired:      a.machine.Paired(),
		State:       a.machine.State(),
		Role:        a.machine.Role(),
		Polite:      a.machine.Polite(),
		Generation:  a.machine.Generation(),
		Recreations: a.machine.Recreations(),
		Texts:       append([]string(nil), a.texts...),
		Failures:    a.failures,
	}
}

func (a *Agent) read(inbound chan<- events.Message, readErr chan<- error) {
	for {
		var msg events.Message
		if err := a.conn.ReadJSON(&msg); err != nil {
			readErr <- err
			return
		}

		select {
		case inbound <- msg:
		case <-a.done:
			return
		}
	}
}

// post передаёт задачу в горутину агента. false - агент остановлен.
func (a *Agent) post(task func()) bool {
	select {
	case a.tasks <- task:
		return true
	case <-a.done:
		return false
	}
}

func (a *Agent) handleServer(msg events.Message) {
	switch msg.Type {
	case events.TypeWaiting:
		slog.Info("waiting for a partner")

	case events.TypeMatchFound:
		var found events.MatchFoundEvent
		if err := json.Unmarshal(msg.Data, &found); err != nil {
			slog.Error("decode match-found", slog.Any(constant.Error, err))
			return
		}

		slog.Info(
			"partner found",
			slog.String(constant.PairingID, found.PairingID),
			slog.Bool("polite", found.Polite),
		)

		a.remote = models.MediaPrefs{Audio: found.Audio, Video: found.Video}
		a.dispatch(negotiation.Paired{Polite: found.Polite})

		if a.cfg.Greeting != "" {
			if err := a.send(events.TypeSendText, events.TextEvent{Message: a.cfg.Greeting}); err != nil {
				slog.Error("send greeting", slog.Any(constant.Error, err))
			}
		}

	case events.TypeSignalReceived:
		var signal events.SignalPayload
		if err := json.Unmarshal(msg.Data, &signal); err != nil {
			slog.Error("decode signal", slog.Any(constant.Error, err))
			return
		}

		a.dispatch(negotiation.SignalReceived{Payload: signal})

	case events.TypeTextReceived:
		var text events.TextEvent
		if err := json.Unmarshal(msg.Data, &text); err != nil {
			slog.Error("decode text", slog.Any(constant.Error, err))
			return
		}

		a.texts = append(a.texts, text.Message)

	case events.TypePartnerLeft:
		slog.Info("partner left")

		a.dispatch(negotiation.Reset{})
		if a.cfg.AutoNext {
			if err := a.requestMatch(); err != nil {
				slog.Error("request match", slog.Any(constant.Error, err))
			}
		}

	case events.TypeConnectionError:
		var e events.ErrorEvent
		_ = json.Unmarshal(msg.Data, &e)
		slog.Warn("server reported error", slog.String(constant.Error, e.Message))

	case events.TypePong:

	default:
		slog.Warn("unknown server event", slog.String(constant.Type, msg.Type))
	}
}

func (a *Agent) dispatch(ev negotiation.Event) {
	actions, err := a.machine.Handle(ev)
	if err != nil {
		slog.Warn("negotiation event rejected", slog.String(constant.Type, fmt.Sprintf("%T", ev)), slog.Any(constant.Error, err))
		return
	}

	a.exec(actions)
}

// exec выполняет действия по порядку. После ошибки остальные действия
// того же поколения пропускаются.
func (a *Agent) exec(actions []negotiation.Action) {
	var failedGen uint64

	for _, action := range actions {
		gen := generationOf(action)
		if failedGen != 0 && gen == failedGen {
			continue
		}

		next, ok := a.run(action)
		if !ok {
			failedGen = gen
		}
		if next != nil {
			a.dispatch(next)
		}
	}
}

func generationOf(action negotiation.Action) uint64 {
	switch act := action.(type) {
	case negotiation.CreatePeer:
		return act.Gen
	case negotiation.DestroyPeer:
		return act.Gen
	case negotiation.CreateOffer:
		return act.Gen
	case negotiation.Apply:
		return act.Gen
	default:
		return 0
	}
}

func (a *Agent) run(action negotiation.Action) (negotiation.Event, bool) {
	switch act := action.(type) {
	case negotiation.CreatePeer:
		a.createPeer(act.Gen, act.Role)
		return nil, true

	case negotiation.DestroyPeer:
		a.destroyPeer(act.Gen)
		return nil, true

	case negotiation.CreateOffer:
		peer := a.peerFor(act.Gen)
		if peer == nil {
			return nil, true
		}

		offer, err := peer.CreateOffer()
		if err != nil {
			return negotiation.PeerFailed{Gen: act.Gen, Err: err}, false
		}

		if err = a.send(events.TypeSendSignal, offer); err != nil {
			slog.Error("send offer", slog.Any(constant.Error, err))
		}

		return negotiation.OfferCreated{Gen: act.Gen}, true

	case negotiation.Apply:
		peer := a.peerFor(act.Gen)
		if peer == nil {
			return nil, true
		}

		if err := a.apply(peer, act.Payload); err != nil {
			slog.Warn(
				"apply signal",
				slog.String(constant.Type, string(act.Payload.Kind())),
				slog.Uint64(constant.Generation, act.Gen),
				slog.Any(constant.Error, err),
			)

			return negotiation.ApplyFailed{Gen: act.Gen, Payload: act.Payload, Err: err}, false
		}

		return nil, true

	case negotiation.Fail:
		a.onFatal(act.Err)
		return nil, true
	}

	return nil, true
}

func (a *Agent) apply(peer Peer, p events.SignalPayload) error {
	switch p.Kind() {
	case events.SignalOffer:
		answer, err := peer.ApplyOffer(p.SDP)
		if err != nil {
			return err
		}

		return a.send(events.TypeSendSignal, answer)

	case events.SignalAnswer:
		return peer.ApplyAnswer(p.SDP)

	default:
		return peer.AddCandidate(p.Candidate)
	}
}

// createPeer строит объект вне горутины агента, пока машина держит защелку
func (a *Agent) createPeer(gen uint64, role negotiation.Role) {
	opts := PeerOptions{
		Role:   role,
		Local:  a.cfg.Media,
		Remote: a.remote,

		OnCandidate: func(p events.SignalPayload) {
			a.post(func() {
				if a.peerFor(gen) == nil {
					return
				}
				if err := a.send(events.TypeSendSignal, p); err != nil {
					slog.Error("send candidate", slog.Any(constant.Error, err))
				}
			})
		},
		OnConnected: func() {
			a.post(func() {
				if a.peerFor(gen) == nil {
					return
				}
				a.dispatch(negotiation.PeerConnected{Gen: gen})
				a.watchLiveness(gen)
			})
		},
		OnLost: func() {
			a.post(func() { a.dispatch(negotiation.ConnectionLost{Gen: gen}) })
		},
		OnMedia: func(string) {
			a.post(func() {
				if a.peerFor(gen) == nil {
					return
				}
				a.mediaSeen = true
				a.stopLiveness()
			})
		},
	}

	go func() {
		peer, err := a.factory.NewPeer(opts)

		delivered := a.post(func() { a.onPeerBuilt(gen, peer, err) })
		if !delivered && peer != nil {
			_ = peer.Close()
		}
	}()
}

func (a *Agent) onPeerBuilt(gen uint64, peer Peer, err error) {
	if errors.Is(err, ErrMediaUnavailable) && !a.cfg.Media.Silent() {
		slog.Warn("continue without local media", slog.Any(constant.Error, err))

		a.cfg.Media = models.MediaPrefs{}
		a.dispatch(negotiation.MediaChanged{Available: false})
	}

	if err != nil {
		a.dispatch(negotiation.PeerFailed{Gen: gen, Err: err})
		return
	}

	if gen != a.machine.Generation() || a.machine.Phase() != negotiation.PhaseConstructing {
		_ = peer.Close()
		return
	}

	a.peer = peer
	a.peerGen = gen
	a.mediaSeen = false

	a.dispatch(negotiation.PeerCreated{Gen: gen})
}

func (a *Agent) peerFor(gen uint64) Peer {
	if a.peer == nil || a.peerGen != gen {
		return nil
	}

	return a.peer
}

func (a *Agent) destroyPeer(gen uint64) {
	if a.peer == nil || a.peerGen != gen {
		return
	}

	a.stopLiveness()

	if err := a.peer.Close(); err != nil {
		slog.Debug("close peer", slog.Any(constant.Error, err))
	}
	a.peer = nil
}

// watchLiveness ждёт входящее медиа после Connected
func (a *Agent) watchLiveness(gen uint64) {
	a.stopLiveness()

	window := a.cfg.Negotiation.LivenessWindow
	if a.mediaSeen || a.remote.Silent() || window <= 0 {
		return
	}

	a.liveness = time.AfterFunc(window, func() {
		a.post(func() {
			if a.peerFor(gen) == nil || a.mediaSeen {
				return
			}

			slog.Warn("no inbound media", slog.Uint64(constant.Generation, gen))
			a.dispatch(negotiation.MediaStalled{Gen: gen})
		})
	})
}

func (a *Agent) stopLiveness() {
	if a.liveness != nil {
		a.liveness.Stop()
		a.liveness = nil
	}
}

func (a *Agent) onFatal(err error) {
	a.failures++
	slog.Error("negotiation failed", slog.Any(constant.Error, err))

	if sendErr := a.send(events.TypeLeaveMatch, nil); sendErr != nil {
		slog.Error("send leave", slog.Any(constant.Error, sendErr))
	}
	a.dispatch(negotiation.Reset{})

	if a.cfg.AutoNext {
		if err := a.requestMatch(); err != nil {
			slog.Error("request match", slog.Any(constant.Error, err))
		}
	}
}

func (a *Agent) requestMatch() error {
	return a.send(events.TypeRequestMatch, events.RequestMatchEvent{
		Audio:     a.cfg.Media.Audio,
		Video:     a.cfg.Media.Video,
		Interests: a.cfg.Interests,
	})
}

func (a *Agent) send(typ string, data any) error {
	msg, err := events.NewMessage(typ, data)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", typ, err)
	}

	if err = a.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("write %s: %w", typ, err)
	}

	return nil
}

func (a *Agent) shutdown() {
	a.stopLiveness()

	if a.peer != nil {
		_ = a.peer.Close()
		a.peer = nil
	}
}
