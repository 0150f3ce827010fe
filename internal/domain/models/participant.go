package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type ParticipantState string

const (
	StateIdle    ParticipantState = "idle"
	StateWaiting ParticipantState = "waiting"
	StatePaired  ParticipantState = "paired"
)

// MediaPrefs - какие медиа участник хочет отправлять и получать
type MediaPrefs struct {
	Audio bool `json:"audio"`
	Video bool `json:"video"`
}

// Silent - только текст
func (m MediaPrefs) Silent() bool {
	return !m.Audio && !m.Video
}

// CompatibleWith - оба без медиа, либо есть хотя бы одно общее медиа
func (m MediaPrefs) CompatibleWith(other MediaPrefs) bool {
	if m.Silent() && other.Silent() {
		return true
	}

	return (m.Audio && other.Audio) || (m.Video && other.Video)
}

type Participant struct {
	ID        uuid.UUID        `json:"id"`
	State     ParticipantState `json:"state"`
	Media     MediaPrefs       `json:"media"`
	Interests []string         `json:"interests,omitempty"`

	ConnectedAt time.Time `json:"connected_at"`
	QueuedAt    time.Time `json:"queued_at,omitempty"`

	PairingID     uuid.UUID `json:"pairing_id,omitempty"`
	CounterpartID uuid.UUID `json:"counterpart_id,omitempty"`
}

func NewParticipant(id uuid.UUID, now time.Time) *Participant {
	return &Participant{
		ID:          id,
		State:       StateIdle,
		ConnectedAt: now,
	}
}

// NormalizeInterests приводит теги к нижнему регистру, убирает пустые и дубли
func NormalizeInterests(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))

	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}

		if _, ok := seen[tag]; ok {
			continue
		}

		seen[tag] = struct{}{}
		out = append(out, tag)
	}

	return out
}

// SharedInterests считает количество общих тегов
func SharedInterests(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	set := make(map[string]struct{}, len(a))
	for _, tag := range a {
		set[tag] = struct{}{}
	}

	n := 0
	for _, tag := range b {
		if _, ok := set[tag]; ok {
			n++
		}
	}

	return n
}
