package events

import (
	"encoding/json"
	"strings"
)

// Входящие события от клиента
const (
	TypeRequestMatch = "request-match"
	TypeLeaveMatch   = "leave-match"
	TypeSendText     = "send-text"
	TypeSendSignal   = "send-signal"
	TypePing         = "ping"
)

// Исходящие события клиенту
const (
	TypeWaiting         = "waiting"
	TypeMatchFound      = "match-found"
	TypeTextReceived    = "text-received"
	TypeSignalReceived  = "signal-received"
	TypePartnerLeft     = "partner-left"
	TypeConnectionError = "connection-error"
	TypePong            = "pong"
)

// Message - общее событие
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewMessage собирает событие с произвольными данными
func NewMessage(typ string, data any) (Message, error) {
	if data == nil {
		return Message{Type: typ}, nil
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return Message{}, err
	}

	return Message{Type: typ, Data: raw}, nil
}

// RequestMatchEvent - запрос на поиск собеседника
type RequestMatchEvent struct {
	Audio     bool     `json:"audio"`
	Video     bool     `json:"video"`
	Interests []string `json:"interests,omitempty"`
}

// MatchFoundEvent - собеседник найден, медиа собеседника
type MatchFoundEvent struct {
	PairingID string `json:"pairing_id"`
	Audio     bool   `json:"audio"`
	Video     bool   `json:"video"`

	// Polite - при встречных offer эта сторона уступает и становится отвечающей
	Polite bool `json:"polite"`
}

// TextEvent - текстовое сообщение чата
type TextEvent struct {
	Message string `json:"message"`
}

// ErrorEvent - ошибка для клиента
type ErrorEvent struct {
	Message string `json:"message"`
}

type SignalKind string

const (
	SignalOffer     SignalKind = "offer"
	SignalAnswer    SignalKind = "answer"
	SignalCandidate SignalKind = "candidate"
)

// SignalPayload - offer, answer или ICE кандидат. Без type - кандидат.
type SignalPayload struct {
	Type      string          `json:"type,omitempty"`
	SDP       string          `json:"sdp,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

func (p SignalPayload) Kind() SignalKind {
	switch strings.ToLower(p.Type) {
	case string(SignalOffer):
		return SignalOffer
	case string(SignalAnswer):
		return SignalAnswer
	default:
		return SignalCandidate
	}
}

// IsDescription - offer или answer
func (p SignalPayload) IsDescription() bool {
	return p.Kind() != SignalCandidate
}
