// Package matching выбирает пару для участника из очереди ожидания.
//
// Очередь всегда просматривается в порядке прихода. Совместимость по медиа -
// жёсткий фильтр, общие интересы - только переранжирование в пределах первых
// Lookahead записей и только пока самый старый совместимый кандидат ждёт
// меньше FairnessWindow.
package matching

import (
	"time"

	"github.com/qrave1/ChatRoulette/internal/domain/models"
)

const (
	DefaultLookahead      = 8
	DefaultFairnessWindow = 5 * time.Second
)

type Selector struct {
	Lookahead      int
	FairnessWindow time.Duration
}

func NewSelector(lookahead int, fairnessWindow time.Duration) Selector {
	if lookahead <= 0 {
		lookahead = DefaultLookahead
	}

	if fairnessWindow <= 0 {
		fairnessWindow = DefaultFairnessWindow
	}

	return Selector{Lookahead: lookahead, FairnessWindow: fairnessWindow}
}

// Pick возвращает индекс выбранного кандидата в queue или -1
func (s Selector) Pick(now time.Time, seeker *models.Participant, queue []*models.Participant) int {
	best := -1
	bestScore := -1

	for i, candidate := range queue {
		if candidate.ID == seeker.ID || !seeker.Media.CompatibleWith(candidate.Media) {
			continue
		}

		// Первый совместимый - самый старый. Если он ждёт слишком долго,
		// никакие интересы его не обгоняют.
		if best == -1 && now.Sub(candidate.QueuedAt) >= s.FairnessWindow {
			return i
		}

		if len(seeker.Interests) == 0 {
			return i
		}

		if i >= s.Lookahead {
			if best == -1 {
				return i
			}

			break
		}

		score := models.SharedInterests(seeker.Interests, candidate.Interests)
		if score > bestScore {
			best = i
			bestScore = score
		}
	}

	return best
}
