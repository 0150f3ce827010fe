package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/qrave1/ChatRoulette/internal/infra/appctx"
	"github.com/qrave1/ChatRoulette/internal/infra/ports/http/dto"
	"github.com/qrave1/ChatRoulette/internal/usecase"
)

const CookieName = "jwt"

// JWTAuthMiddleware принимает токен из cookie или заголовка Authorization: Bearer
func JWTAuthMiddleware(sessions usecase.SessionUsecase) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := bearerToken(c.Request())
			if token == "" {
				cookie, err := c.Cookie(CookieName)
				if err != nil {
					return c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "missing or malformed jwt"})
				}
				token = cookie.Value
			}

			participantID, err := sessions.Parse(token)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "invalid or expired jwt"})
			}

			c.SetRequest(
				c.Request().WithContext(
					appctx.WithParticipantID(c.Request().Context(), participantID),
				),
			)

			return next(c)
		}
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get(echo.HeaderAuthorization)

	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}

	return strings.TrimSpace(token)
}
