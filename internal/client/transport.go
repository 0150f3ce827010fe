package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/qrave1/ChatRoulette/internal/infra/ports/http/dto"
)

const (
	sessionPath   = "/api/session"
	websocketPath = "/api/v1/ws"
)

// Conn - двунаправленный JSON канал до сервера. Запись только из одной горутины.
type Conn interface {
	ReadJSON(v any) error
	WriteJSON(v any) error
	Close() error
}

// Dial получает анонимную сессию и открывает websocket
func Dial(ctx context.Context, serverURL string) (*websocket.Conn, uuid.UUID, error) {
	base, err := url.Parse(serverURL)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("parse server url: %w", err)
	}

	session, err := newSession(ctx, base)
	if err != nil {
		return nil, uuid.Nil, err
	}

	participantID, err := uuid.Parse(session.ParticipantID)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("parse participant id: %w", err)
	}

	wsURL := *base
	switch base.Scheme {
	case "https":
		wsURL.Scheme = "wss"
	default:
		wsURL.Scheme = "ws"
	}
	wsURL.Path = websocketPath

	header := http.Header{}
	header.Set("Authorization", "Bearer "+session.Token)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL.String(), header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("dial websocket: %w", err)
	}

	return conn, participantID, nil
}

func newSession(ctx context.Context, base *url.URL) (*dto.SessionResponse, error) {
	sessionURL := *base
	sessionURL.Path = sessionPath

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sessionURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build session request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("request session: unexpected status %d", resp.StatusCode)
	}

	var session dto.SessionResponse
	if err = json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}

	return &session, nil
}
