package client

import (
	"encoding/json"
	"errors"

	"github.com/qrave1/ChatRoulette/internal/domain/events"
	"github.com/qrave1/ChatRoulette/internal/domain/models"
	"github.com/qrave1/ChatRoulette/internal/domain/negotiation"
)

// ErrMediaUnavailable - локальные треки создать не удалось, участник продолжает без своего медиа
var ErrMediaUnavailable = errors.New("local media unavailable")

// PeerOptions - параметры объекта согласования. Колбэки вызываются из чужих горутин.
type PeerOptions struct {
	Role   negotiation.Role
	Local  models.MediaPrefs
	Remote models.MediaPrefs

	OnCandidate func(events.SignalPayload)
	OnConnected func()
	OnLost      func()
	OnMedia     func(kind string)
}

// Peer - объект согласования одного поколения
type Peer interface {
	CreateOffer() (events.SignalPayload, error)
	ApplyOffer(sdp string) (events.SignalPayload, error)
	ApplyAnswer(sdp string) error
	AddCandidate(raw json.RawMessage) error
	Close() error
}

type PeerFactory interface {
	NewPeer(opts PeerOptions) (Peer, error)
}
