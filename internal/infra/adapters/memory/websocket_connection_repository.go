package memory

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/qrave1/ChatRoulette/internal/application/constant"
	"github.com/qrave1/ChatRoulette/internal/application/metric"
)

const writeWait = 10 * time.Second

// WebsocketConnectionRepository интерфейс для работы с активными сессиями в памяти
type WebsocketConnectionRepository interface {
	// Add возвращает false, если у участника уже есть соединение
	Add(uuid.UUID, *websocket.Conn) bool
	Remove(uuid.UUID)

	// Write возвращает false, если соединения нет или запись не удалась
	Write(uuid.UUID, any) bool
	GetAllConnected() []uuid.UUID
}

type safeWS struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

type wsConnectionRepository struct {
	// wsConns хранит map[participant_id]*ws.conn
	wsConns map[uuid.UUID]*safeWS

	mu sync.RWMutex
}

func NewWSConnectionRepository() WebsocketConnectionRepository {
	return &wsConnectionRepository{
		wsConns: make(map[uuid.UUID]*safeWS, 10),
	}
}

func (w *wsConnectionRepository) Add(participantID uuid.UUID, conn *websocket.Conn) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, exists := w.wsConns[participantID]; exists {
		return false
	}

	w.wsConns[participantID] = &safeWS{conn: conn}

	metric.IncrementWSActiveConnections()

	return true
}

func (w *wsConnectionRepository) Remove(participantID uuid.UUID) {
	w.mu.Lock()
	defer w.mu.Unlock()

	// Проверяем, существует ли соединение перед удалением
	if _, exists := w.wsConns[participantID]; exists {
		delete(w.wsConns, participantID)

		metric.DecrementWSActiveConnections()
	}
}

// Write сериализует запись в одно соединение, поэтому порядок сообщений
// одному участнику совпадает с порядком вызовов
func (w *wsConnectionRepository) Write(participantID uuid.UUID, payload any) bool {
	safews, ok := w.getSafeWS(participantID)
	if !ok {
		return false
	}

	safews.mu.Lock()
	defer safews.mu.Unlock()

	_ = safews.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := safews.conn.WriteJSON(payload); err != nil {
		slog.Error(
			"write to websocket",
			slog.Any(constant.Error, err),
			slog.Any(constant.ParticipantID, participantID),
		)
		return false
	}

	return true
}

func (w *wsConnectionRepository) getSafeWS(participantID uuid.UUID) (*safeWS, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	conn, ok := w.wsConns[participantID]
	return conn, ok
}

func (w *wsConnectionRepository) GetAllConnected() []uuid.UUID {
	w.mu.RLock()
	defer w.mu.RUnlock()

	participantIDs := make([]uuid.UUID, 0, len(w.wsConns))

	for participantID := range w.wsConns {
		participantIDs = append(participantIDs, participantID)
	}

	return participantIDs
}
