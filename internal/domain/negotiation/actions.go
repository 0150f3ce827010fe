package negotiation

import "github.com/qrave1/ChatRoulette/internal/domain/events"

// Action - команда исполнителю, который владеет реальным объектом согласования.
// Действия выполняются по порядку. После ошибки оставшиеся действия того же
// поколения пропускаются.
type Action interface {
	isAction()
}

// CreatePeer - создать объект в роли Role. Результат: PeerCreated или PeerFailed.
type CreatePeer struct {
	Gen  uint64
	Role Role
}

// DestroyPeer - закрыть объект поколения Gen. Не должен падать, если объекта нет.
type DestroyPeer struct {
	Gen uint64
}

// CreateOffer - создать offer, установить локально и отправить собеседнику.
// Результат: OfferCreated или PeerFailed.
type CreateOffer struct {
	Gen uint64
}

// Apply - применить удаленный payload. Для offer исполнитель сразу отвечает answer.
// Ошибка: ApplyFailed.
type Apply struct {
	Gen     uint64
	Payload events.SignalPayload
}

// Fail - согласование провалено окончательно
type Fail struct {
	Err error
}

func (CreatePeer) isAction()  {}
func (DestroyPeer) isAction() {}
func (CreateOffer) isAction() {}
func (Apply) isAction()       {}
func (Fail) isAction()        {}
