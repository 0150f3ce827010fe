package negotiation

// Role - роль стороны в обмене offer/answer
type Role int

const (
	RoleNone Role = iota
	RoleInitiator
	RoleResponder
)

func (r Role) String() string {
	switch r {
	case RoleInitiator:
		return "initiator"
	case RoleResponder:
		return "responder"
	default:
		return "none"
	}
}

// Phase - внутренняя фаза объекта согласования
type Phase int

const (
	// PhaseIdle - объекта нет
	PhaseIdle Phase = iota
	// PhaseConstructing - объект создается, защелка удерживается
	PhaseConstructing
	// PhaseCreatingOffer - инициатор готовит offer
	PhaseCreatingOffer
	// PhaseAwaitingAnswer - offer отправлен, ждем answer
	PhaseAwaitingAnswer
	// PhaseAwaitingOffer - отвечающий создан, offer еще не применен
	PhaseAwaitingOffer
	// PhaseConnecting - удаленное описание применено, идет ICE
	PhaseConnecting
	PhaseConnected
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseConstructing:
		return "constructing"
	case PhaseCreatingOffer:
		return "creating-offer"
	case PhaseAwaitingAnswer:
		return "awaiting-answer"
	case PhaseAwaitingOffer:
		return "awaiting-offer"
	case PhaseConnecting:
		return "connecting"
	case PhaseConnected:
		return "connected"
	case PhaseClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// State - внешнее состояние машины
type State int

const (
	StateIdle State = iota
	StateNegotiating
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateNegotiating:
		return "negotiating"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

func (p Phase) state() State {
	switch p {
	case PhaseIdle:
		return StateIdle
	case PhaseConnected:
		return StateConnected
	case PhaseClosed:
		return StateClosed
	default:
		return StateNegotiating
	}
}
