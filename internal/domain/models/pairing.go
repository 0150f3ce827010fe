package models

import (
	"time"

	"github.com/google/uuid"
)

// Pairing - симметричная связь двух участников на время одного чата
type Pairing struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	FirstID   uuid.UUID  `json:"first_id" db:"first_id"`
	SecondID  uuid.UUID  `json:"second_id" db:"second_id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty" db:"ended_at"`
}

func NewPairing(firstID, secondID uuid.UUID, now time.Time) *Pairing {
	return &Pairing{
		ID:        uuid.New(),
		FirstID:   firstID,
		SecondID:  secondID,
		CreatedAt: now,
	}
}

// Counterpart возвращает второго участника пары
func (p *Pairing) Counterpart(id uuid.UUID) (uuid.UUID, bool) {
	switch id {
	case p.FirstID:
		return p.SecondID, true
	case p.SecondID:
		return p.FirstID, true
	default:
		return uuid.Nil, false
	}
}

func (p *Pairing) End(now time.Time) {
	if p.EndedAt == nil {
		p.EndedAt = &now
	}
}
