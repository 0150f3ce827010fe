package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/qrave1/ChatRoulette/internal/application/constant"
	"github.com/qrave1/ChatRoulette/internal/infra/ports/http/dto"
	"github.com/qrave1/ChatRoulette/internal/infra/ports/http/middleware"
	"github.com/qrave1/ChatRoulette/internal/usecase"
)

type SessionHandler struct {
	sessionUsecase usecase.SessionUsecase

	secureCookie bool
}

func NewSessionHandler(sessionUsecase usecase.SessionUsecase, domain string) *SessionHandler {
	return &SessionHandler{
		sessionUsecase: sessionUsecase,
		secureCookie:   strings.HasPrefix(domain, "https://"),
	}
}

// Create выдает анонимную сессию. Токен дублируется в cookie для браузера.
func (h *SessionHandler) Create(c echo.Context) error {
	token, participantID, err := h.sessionUsecase.Issue()
	if err != nil {
		slog.Error("issue session", slog.Any(constant.Error, err))

		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to create session"})
	}

	c.SetCookie(&http.Cookie{
		Name:     middleware.CookieName,
		Value:    token,
		Expires:  time.Now().Add(usecase.SessionTTL),
		Path:     "/",
		Secure:   h.secureCookie,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return c.JSON(http.StatusCreated, dto.SessionResponse{
		Token:         token,
		ParticipantID: participantID.String(),
	})
}
