package negotiation

import "github.com/qrave1/ChatRoulette/internal/domain/events"

// pending - сигналы, пришедшие раньше, чем их можно применить
type pending struct {
	items []events.SignalPayload
}

func newPending(items ...events.SignalPayload) pending {
	return pending{items: append([]events.SignalPayload(nil), items...)}
}

// push добавляет сигнал. Новый offer вытесняет старый offer вместе с его кандидатами.
func (b *pending) push(p events.SignalPayload) {
	if p.Kind() == events.SignalOffer {
		if b.has(events.SignalOffer) {
			b.reset()
		}
	}

	b.items = append(b.items, p)
}

func (b *pending) len() int {
	return len(b.items)
}

func (b *pending) has(kind events.SignalKind) bool {
	return b.index(kind) >= 0
}

func (b *pending) index(kind events.SignalKind) int {
	for i := len(b.items) - 1; i >= 0; i-- {
		if b.items[i].Kind() == kind {
			return i
		}
	}

	return -1
}

// fromOffer - offer и все, что пришло после него
func (b *pending) fromOffer() pending {
	i := b.index(events.SignalOffer)
	if i < 0 {
		return pending{}
	}

	return newPending(b.items[i:]...)
}

// dropOffer выбрасывает offer и его кандидатов
func (b *pending) dropOffer() {
	if i := b.index(events.SignalOffer); i >= 0 {
		b.items = b.items[:i]
	}
}

// discard выбрасывает все описания указанного типа
func (b *pending) discard(kind events.SignalKind) {
	kept := b.items[:0]
	for _, p := range b.items {
		if p.Kind() != kind {
			kept = append(kept, p)
		}
	}

	b.items = kept
}

// drain возвращает описание kind и затем кандидатов в порядке получения.
// Если описания kind нет, буфер не трогается.
func (b *pending) drain(kind events.SignalKind) []events.SignalPayload {
	i := b.index(kind)
	if i < 0 {
		return nil
	}

	out := make([]events.SignalPayload, 0, len(b.items))
	out = append(out, b.items[i])

	for _, p := range b.items {
		if p.Kind() == events.SignalCandidate {
			out = append(out, p)
		}
	}

	b.reset()

	return out
}

func (b *pending) reset() {
	b.items = nil
}
