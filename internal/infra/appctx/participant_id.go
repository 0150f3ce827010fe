package appctx

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey string

const participantIDKey ctxKey = "participantID"

// WithParticipantID добавляет participantID в контекст
func WithParticipantID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, participantIDKey, id)
}

// ParticipantID извлекает participantID из контекста
func ParticipantID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(participantIDKey).(uuid.UUID)
	return id, ok
}
