package negotiation

import (
	"errors"
	"fmt"

	"github.com/qrave1/ChatRoulette/internal/domain/events"
)

var (
	ErrCreationInProgress = errors.New("negotiation object creation in progress")
	ErrNotPaired          = errors.New("not paired")
	ErrNoLocalMedia       = errors.New("no local media")
	ErrAlreadyStarted     = errors.New("negotiation already started")
	ErrClosed             = errors.New("negotiation closed")
	ErrNegotiationFailed  = errors.New("negotiation failed")
	ErrUnknownEvent       = errors.New("unknown negotiation event")
)

const (
	DefaultMaxRecreations  = 3
	DefaultLivenessRetries = 1
)

type Config struct {
	// MaxRecreations - лимит пересозданий объекта подряд в рамках пары
	MaxRecreations int
	// LivenessRetries - сколько раз за пару пересогласовать при отсутствии медиа,
	// отрицательное значение отключает
	LivenessRetries int
	// LocalMedia - есть ли локальные треки
	LocalMedia bool
}

// Machine - состояние согласования одного участника.
// Не потокобезопасна: события подаются из одной горутины.
type Machine struct {
	maxRecreations  int
	livenessRetries int
	localMedia      bool

	paired bool
	polite bool

	role  Role
	phase Phase
	gen   uint64

	pending      pending
	recreations  int
	stallRetries int

	// кандидаты проигнорированного встречного offer
	ignoreCandidates bool
}

func NewMachine(cfg Config) *Machine {
	if cfg.MaxRecreations <= 0 {
		cfg.MaxRecreations = DefaultMaxRecreations
	}
	switch {
	case cfg.LivenessRetries == 0:
		cfg.LivenessRetries = DefaultLivenessRetries
	case cfg.LivenessRetries < 0:
		cfg.LivenessRetries = 0
	}

	return &Machine{
		maxRecreations:  cfg.MaxRecreations,
		livenessRetries: cfg.LivenessRetries,
		localMedia:      cfg.LocalMedia,
	}
}

func (m *Machine) State() State { return m.phase.state() }

func (m *Machine) Phase() Phase { return m.phase }

func (m *Machine) Role() Role { return m.role }

func (m *Machine) Generation() uint64 { return m.gen }

func (m *Machine) Polite() bool { return m.polite }

func (m *Machine) Paired() bool { return m.paired }

// Recreations - пересоздания объекта с момента последнего Connected
func (m *Machine) Recreations() int { return m.recreations }

// Pending - размер буфера отложенных сигналов
func (m *Machine) Pending() int { return m.pending.len() }

// Handle - единственная функция перехода. Возвращает действия для исполнителя.
// События от устаревших поколений объекта игнорируются.
func (m *Machine) Handle(ev Event) ([]Action, error) {
	switch e := ev.(type) {
	case Paired:
		return m.onPaired(e), nil
	case StartRequested:
		return m.onStart()
	case SignalReceived:
		return m.onSignal(e.Payload), nil
	case PeerCreated:
		return m.onPeerCreated(e.Gen), nil
	case PeerFailed:
		return m.onPeerFailed(e.Gen), nil
	case OfferCreated:
		return m.onOfferCreated(e.Gen), nil
	case ApplyFailed:
		return m.onApplyFailed(e.Gen, e.Payload), nil
	case PeerConnected:
		return m.onPeerConnected(e.Gen), nil
	case ConnectionLost:
		return m.onConnectionLost(e.Gen), nil
	case MediaStalled:
		return m.onMediaStalled(e.Gen), nil
	case MediaChanged:
		return m.onMediaChanged(e.Available), nil
	case Reset:
		return m.reset(), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownEvent, ev)
	}
}

// onPaired сохраняет сигналы, пришедшие до match-found. Буфер прошлой пары
// выбрасывается.
func (m *Machine) onPaired(e Paired) []Action {
	var early pending
	if !m.paired {
		early = m.pending
	}

	actions := m.reset()

	m.paired = true
	m.polite = e.Polite
	m.pending = early

	switch {
	case m.pending.has(events.SignalOffer):
		actions = append(actions, m.create(RoleResponder)...)
	case m.localMedia:
		actions = append(actions, m.create(RoleInitiator)...)
	}

	return actions
}

func (m *Machine) onStart() ([]Action, error) {
	switch {
	case m.phase == PhaseClosed:
		return nil, ErrClosed
	case !m.paired:
		return nil, ErrNotPaired
	case m.phase == PhaseConstructing:
		return nil, ErrCreationInProgress
	case !m.localMedia:
		return nil, ErrNoLocalMedia
	case m.phase != PhaseIdle:
		return nil, ErrAlreadyStarted
	}

	return m.create(RoleInitiator), nil
}

func (m *Machine) onSignal(p events.SignalPayload) []Action {
	if m.phase == PhaseClosed {
		return nil
	}

	if !m.paired {
		// собеседник узнал о паре раньше нас
		m.pending.push(p)
		return nil
	}

	kind := p.Kind()
	if kind == events.SignalCandidate && m.ignoreCandidates {
		return nil
	}
	if kind != events.SignalCandidate {
		m.ignoreCandidates = false
	}

	switch m.phase {
	case PhaseIdle:
		m.pending.push(p)

		switch {
		case kind == events.SignalOffer:
			return m.create(RoleResponder)
		case m.localMedia:
			return m.create(RoleInitiator)
		}

		return nil

	case PhaseConstructing:
		// встречный offer разбирается после создания объекта
		m.pending.push(p)
		return nil

	case PhaseCreatingOffer, PhaseAwaitingAnswer:
		switch kind {
		case events.SignalOffer:
			return m.onGlare(p)
		case events.SignalAnswer:
			m.pending.push(p)
			if m.phase == PhaseAwaitingAnswer {
				return m.applyRemote(events.SignalAnswer)
			}
			return nil
		default:
			m.pending.push(p)
			return nil
		}

	case PhaseAwaitingOffer:
		m.pending.push(p)
		if kind == events.SignalOffer {
			return m.applyRemote(events.SignalOffer)
		}
		return nil

	case PhaseConnecting, PhaseConnected:
		switch kind {
		case events.SignalOffer:
			// собеседник пересоздал свой объект
			return m.recreate(RoleResponder, newPending(p))
		case events.SignalAnswer:
			return nil
		default:
			return []Action{Apply{Gen: m.gen, Payload: p}}
		}
	}

	return nil
}

// onGlare - обе стороны отправили offer. Вежливая сторона уступает и
// становится отвечающей, невежливая игнорирует встречный offer.
// Невежливая сторона намеренно остается Initiator: ответ придет на ее собственный offer.
func (m *Machine) onGlare(offer events.SignalPayload) []Action {
	if !m.polite {
		m.ignoreCandidates = true
		return nil
	}

	return m.recreate(RoleResponder, newPending(offer))
}

func (m *Machine) onPeerCreated(gen uint64) []Action {
	if m.stale(gen) || m.phase != PhaseConstructing {
		return nil
	}

	if m.role == RoleResponder {
		m.phase = PhaseAwaitingOffer
		return m.applyRemote(events.SignalOffer)
	}

	if m.pending.has(events.SignalOffer) {
		if m.polite {
			return m.recreate(RoleResponder, m.pending.fromOffer())
		}
		m.pending.dropOffer()
		m.ignoreCandidates = true
	}

	m.phase = PhaseCreatingOffer

	return []Action{CreateOffer{Gen: m.gen}}
}

func (m *Machine) onPeerFailed(gen uint64) []Action {
	if m.stale(gen) {
		return nil
	}

	return m.recreate(m.role, m.pending)
}

func (m *Machine) onOfferCreated(gen uint64) []Action {
	if m.stale(gen) || m.phase != PhaseCreatingOffer {
		return nil
	}

	m.phase = PhaseAwaitingAnswer

	return m.applyRemote(events.SignalAnswer)
}

func (m *Machine) onApplyFailed(gen uint64, p events.SignalPayload) []Action {
	if m.stale(gen) {
		return nil
	}

	if p.Kind() == events.SignalOffer {
		return m.recreate(RoleResponder, newPending(p))
	}

	// answer относится только к offer уничтоженного объекта
	requeued := newPending()
	if p.Kind() == events.SignalCandidate {
		requeued.push(p)
	}

	if m.localMedia {
		return m.recreate(RoleInitiator, requeued)
	}

	return m.recreate(RoleNone, requeued)
}

func (m *Machine) onPeerConnected(gen uint64) []Action {
	if m.stale(gen) {
		return nil
	}

	m.phase = PhaseConnected
	m.pending.reset()
	m.recreations = 0

	return nil
}

func (m *Machine) onConnectionLost(gen uint64) []Action {
	if m.stale(gen) {
		return nil
	}

	if m.localMedia {
		return m.recreate(RoleInitiator, newPending())
	}

	return m.recreate(RoleNone, newPending())
}

func (m *Machine) onMediaStalled(gen uint64) []Action {
	if m.stale(gen) || m.phase != PhaseConnected || !m.localMedia {
		return nil
	}

	if m.stallRetries >= m.livenessRetries {
		return nil
	}
	m.stallRetries++

	return m.recreate(RoleInitiator, newPending())
}

func (m *Machine) onMediaChanged(available bool) []Action {
	m.localMedia = available

	if available && m.paired && m.phase == PhaseIdle {
		return m.create(RoleInitiator)
	}

	return nil
}

// applyRemote применяет буферизированное описание kind, затем кандидатов
func (m *Machine) applyRemote(kind events.SignalKind) []Action {
	drained := m.pending.drain(kind)
	if len(drained) == 0 {
		return nil
	}

	actions := make([]Action, 0, len(drained))
	for _, p := range drained {
		actions = append(actions, Apply{Gen: m.gen, Payload: p})
	}

	m.phase = PhaseConnecting

	return actions
}

func (m *Machine) create(role Role) []Action {
	if role == RoleInitiator {
		// answer до нашего offer не может к нему относиться
		m.pending.discard(events.SignalAnswer)
	}

	m.gen++
	m.role = role
	m.phase = PhaseConstructing

	return []Action{CreatePeer{Gen: m.gen, Role: role}}
}

// recreate уничтожает текущий объект и создает новый с буфером next.
// Сверх лимита пересозданий машина закрывается.
func (m *Machine) recreate(role Role, next pending) []Action {
	var actions []Action
	if m.hasObject() {
		actions = append(actions, DestroyPeer{Gen: m.gen})
	}

	m.recreations++
	if m.recreations > m.maxRecreations {
		m.phase = PhaseClosed
		m.role = RoleNone
		m.pending.reset()

		return append(actions, Fail{Err: fmt.Errorf("%w after %d attempts", ErrNegotiationFailed, m.maxRecreations)})
	}

	m.pending = next

	if role == RoleNone {
		m.role = RoleNone
		m.phase = PhaseIdle
		return actions
	}

	return append(actions, m.create(role)...)
}

// reset возвращает машину в Idle и очищает буфер. Поколение не сбрасывается,
// чтобы запоздавшие события старого объекта игнорировались.
func (m *Machine) reset() []Action {
	var actions []Action
	if m.hasObject() {
		actions = append(actions, DestroyPeer{Gen: m.gen})
	}

	m.paired = false
	m.polite = false
	m.role = RoleNone
	m.phase = PhaseIdle
	m.pending.reset()
	m.recreations = 0
	m.stallRetries = 0
	m.ignoreCandidates = false

	return actions
}

func (m *Machine) hasObject() bool {
	return m.phase != PhaseIdle && m.phase != PhaseClosed
}

func (m *Machine) stale(gen uint64) bool {
	return gen != m.gen || !m.hasObject()
}
