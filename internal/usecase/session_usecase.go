package usecase

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionTTL - время жизни анонимной сессии
const SessionTTL = 24 * time.Hour

var ErrInvalidSession = errors.New("invalid session token")

// SessionUsecase выдает анонимные сессии. Subject токена - ID участника.
type SessionUsecase interface {
	Issue() (token string, participantID uuid.UUID, err error)
	Parse(token string) (uuid.UUID, error)
}

type sessionUsecase struct {
	jwtSecret []byte
	ttl       time.Duration
	now       func() time.Time
}

func NewSessionUsecase(jwtSecret []byte) SessionUsecase {
	return &sessionUsecase{
		jwtSecret: jwtSecret,
		ttl:       SessionTTL,
		now:       time.Now,
	}
}

func (uc *sessionUsecase) Issue() (string, uuid.UUID, error) {
	id := uuid.New()
	now := uc.now()

	claims := &jwt.RegisteredClaims{
		Subject:   id.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(uc.ttl)),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(uc.jwtSecret)
	if err != nil {
		return "", uuid.Nil, fmt.Errorf("sign session token: %w", err)
	}

	return token, id, nil
}

func (uc *sessionUsecase) Parse(raw string) (uuid.UUID, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(
		raw,
		claims,
		func(token *jwt.Token) (any, error) {
			return uc.jwtSecret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(uc.now),
	)
	if err != nil || !token.Valid {
		return uuid.Nil, fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: subject: %w", ErrInvalidSession, err)
	}

	return id, nil
}
