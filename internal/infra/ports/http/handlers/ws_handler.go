package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/qrave1/ChatRoulette/internal/application/config"
	"github.com/qrave1/ChatRoulette/internal/application/constant"
	"github.com/qrave1/ChatRoulette/internal/domain/events"
	"github.com/qrave1/ChatRoulette/internal/infra/adapters/memory"
	"github.com/qrave1/ChatRoulette/internal/infra/appctx"
	"github.com/qrave1/ChatRoulette/internal/infra/ports/http/dto"
	"github.com/qrave1/ChatRoulette/internal/usecase"
)

const (
	pongWait     = 60 * time.Second
	pingPeriod   = 30 * time.Second
	controlWait  = 5 * time.Second
	maxReadBytes = 64 << 10
)

var errUnknownType = errors.New("unknown message type")

type WebSocketHandler struct {
	upgrader *websocket.Upgrader

	wsRepo       memory.WebsocketConnectionRepository
	matchUsecase usecase.MatchUsecase
	relayUsecase usecase.RelayUsecase
}

func NewWebSocketHandler(
	cfg *config.Config,
	wsRepo memory.WebsocketConnectionRepository,
	matchUsecase usecase.MatchUsecase,
	relayUsecase usecase.RelayUsecase,
) *WebSocketHandler {
	return &WebSocketHandler{
		upgrader: &websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if cfg.Debug {
					return true
				}

				origin := r.Header.Get("Origin")

				// не браузерные клиенты (бот) приходят без Origin
				return origin == "" || origin == cfg.Domain
			},
		},
		wsRepo:       wsRepo,
		matchUsecase: matchUsecase,
		relayUsecase: relayUsecase,
	}
}

func (h *WebSocketHandler) Handle(c echo.Context) error {
	participantID, ok := appctx.ParticipantID(c.Request().Context())
	if !ok {
		return c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "missing participant"})
	}

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"WebSocket upgrade error",
			slog.Any(constant.Error, err),
		)
		return nil
	}
	defer ws.Close()

	log := slog.With(slog.String(constant.ParticipantID, participantID.String()))

	if !h.wsRepo.Add(participantID, ws) {
		log.Warn("duplicate websocket connection")

		_ = ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "already connected"),
			time.Now().Add(controlWait),
		)
		return nil
	}

	// контекст запроса отменяется при завершении Handle
	ctx := context.WithoutCancel(c.Request().Context())

	if err = h.matchUsecase.Connect(ctx, participantID); err != nil {
		log.Error("connect participant", slog.Any(constant.Error, err))
		h.wsRepo.Remove(participantID)

		return nil
	}

	defer func() {
		h.matchUsecase.Disconnect(ctx, participantID)
		h.wsRepo.Remove(participantID)

		log.Info("participant disconnected")
	}()

	log.Info("participant connected")

	ws.SetReadLimit(maxReadBytes)

	if err = ws.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return nil
	}
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	defer close(done)

	go h.keepAlive(ws, done, log)

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("webSocket read error", slog.Any(constant.Error, err))
			}

			return nil
		}

		var msg events.Message

		if err = json.Unmarshal(raw, &msg); err != nil {
			h.replyError(participantID, "malformed message")
			continue
		}

		if err = h.handleMessage(ctx, participantID, msg); err != nil {
			log.Warn(
				"handle message",
				slog.String(constant.Type, msg.Type),
				slog.Any(constant.Error, err),
			)

			h.replyError(participantID, err.Error())
		}
	}
}

// keepAlive шлет ping. WriteControl можно вызывать параллельно с WriteJSON.
func (h *WebSocketHandler) keepAlive(ws *websocket.Conn, done <-chan struct{}, log *slog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(controlWait)); err != nil {
				log.Warn("ping failed", slog.Any(constant.Error, err))
				return
			}
		case <-done:
			return
		}
	}
}

func (h *WebSocketHandler) handleMessage(ctx context.Context, participantID uuid.UUID, msg events.Message) error {
	switch msg.Type {
	case events.TypeRequestMatch:
		var req events.RequestMatchEvent

		if len(msg.Data) > 0 {
			if err := json.Unmarshal(msg.Data, &req); err != nil {
				return fmt.Errorf("unmarshal request-match: %w", err)
			}
		}

		if err := h.matchUsecase.RequestMatch(ctx, participantID, req); err != nil {
			return fmt.Errorf("request match: %w", err)
		}

	case events.TypeLeaveMatch:
		h.matchUsecase.Leave(ctx, participantID)

	case events.TypeSendText:
		var text events.TextEvent

		if err := json.Unmarshal(msg.Data, &text); err != nil {
			return fmt.Errorf("unmarshal send-text: %w", err)
		}

		if err := h.relayUsecase.SendMessage(ctx, participantID, text.Message); err != nil {
			return err
		}

	case events.TypeSendSignal:
		if len(msg.Data) == 0 {
			return usecase.ErrInvalidSignal
		}

		if err := h.relayUsecase.SendSignal(ctx, participantID, msg.Data); err != nil {
			return err
		}

	case events.TypePing:
		h.relayUsecase.Ping(ctx, participantID)

	default:
		return fmt.Errorf("%w: %q", errUnknownType, msg.Type)
	}

	return nil
}

func (h *WebSocketHandler) replyError(participantID uuid.UUID, text string) {
	msg, err := events.NewMessage(events.TypeConnectionError, events.ErrorEvent{Message: text})
	if err != nil {
		return
	}

	h.wsRepo.Write(participantID, msg)
}
