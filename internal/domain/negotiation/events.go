package negotiation

import "github.com/qrave1/ChatRoulette/internal/domain/events"

// Event - входное событие машины: сигнал от собеседника, локальное намерение
// или результат выполнения действия над объектом согласования.
type Event interface {
	isEvent()
}

// Paired - сервер сообщил о новой паре
type Paired struct {
	Polite bool
}

// StartRequested - локальный запрос начать согласование инициатором
type StartRequested struct{}

// SignalReceived - signal-received от собеседника
type SignalReceived struct {
	Payload events.SignalPayload
}

// PeerCreated - объект поколения Gen создан
type PeerCreated struct {
	Gen uint64
}

// PeerFailed - не удалось создать объект или подготовить offer
type PeerFailed struct {
	Gen uint64
	Err error
}

// OfferCreated - offer создан, установлен локально и отправлен
type OfferCreated struct {
	Gen uint64
}

// ApplyFailed - объект отверг удаленный payload
type ApplyFailed struct {
	Gen     uint64
	Payload events.SignalPayload
	Err     error
}

// PeerConnected - медиа канал установлен
type PeerConnected struct {
	Gen uint64
}

// ConnectionLost - ICE/DTLS соединение упало
type ConnectionLost struct {
	Gen uint64
}

// MediaStalled - соединение есть, входящего медиа нет
type MediaStalled struct {
	Gen uint64
}

// MediaChanged - изменилась доступность локального медиа
type MediaChanged struct {
	Available bool
}

// Reset - уход из пары, partner-left или отключение
type Reset struct{}

func (Paired) isEvent()         {}
func (StartRequested) isEvent() {}
func (SignalReceived) isEvent() {}
func (PeerCreated) isEvent()    {}
func (PeerFailed) isEvent()     {}
func (OfferCreated) isEvent()   {}
func (ApplyFailed) isEvent()    {}
func (PeerConnected) isEvent()  {}
func (ConnectionLost) isEvent() {}
func (MediaStalled) isEvent()   {}
func (MediaChanged) isEvent()   {}
func (Reset) isEvent()          {}
