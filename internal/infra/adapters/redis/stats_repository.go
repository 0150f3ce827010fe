package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/qrave1/ChatRoulette/internal/domain/models"
)

const (
	keyPrefix = "chatroulette:stats:"

	participantsKey = keyPrefix + "participants"
	pairingsKey     = keyPrefix + "pairings"
	messagesKey     = keyPrefix + "messages"

	// детали пары и участника живут сутки, счётчики бессрочно
	detailsTTL = 24 * time.Hour
)

// StatsRepo - счётчики в redis. Участники считаются через HyperLogLog.
type StatsRepo struct {
	client *redis.Client
}

func NewStatsRepo(client *redis.Client) *StatsRepo {
	return &StatsRepo{client: client}
}

func participantKey(id uuid.UUID) string {
	return keyPrefix + "participant:" + id.String()
}

func pairingKey(id uuid.UUID) string {
	return keyPrefix + "pairing:" + id.String()
}

func (r *StatsRepo) SaveParticipant(ctx context.Context, p models.Participant) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.PFAdd(ctx, participantsKey, p.ID.String())
		pipe.HSet(ctx, participantKey(p.ID),
			"audio", p.Media.Audio,
			"video", p.Media.Video,
			"interests", strings.Join(p.Interests, ","),
			"connected_at", p.ConnectedAt.UTC().Format(time.RFC3339),
		)
		pipe.Expire(ctx, participantKey(p.ID), detailsTTL)

		return nil
	})

	return err
}

func (r *StatsRepo) SavePairing(ctx context.Context, p models.Pairing) error {
	created, err := r.client.HSetNX(ctx, pairingKey(p.ID), "created_at", p.CreatedAt.UTC().Format(time.RFC3339)).Result()
	if err != nil {
		return fmt.Errorf("save pairing: %w", err)
	}
	if !created {
		return nil
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, pairingsKey)
		pipe.HSet(ctx, pairingKey(p.ID),
			"first_id", p.FirstID.String(),
			"second_id", p.SecondID.String(),
		)
		pipe.Expire(ctx, pairingKey(p.ID), detailsTTL)

		return nil
	})

	return err
}

func (r *StatsRepo) EndPairing(ctx context.Context, p models.Pairing) error {
	if p.EndedAt == nil {
		return fmt.Errorf("pairing %s is not ended", p.ID)
	}

	return r.client.HSet(ctx, pairingKey(p.ID), "ended_at", p.EndedAt.UTC().Format(time.RFC3339)).Err()
}

func (r *StatsRepo) IncrementMessages(ctx context.Context, pairingID uuid.UUID) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, messagesKey)
		pipe.HIncrBy(ctx, pairingKey(pairingID), "messages", 1)

		return nil
	})

	return err
}

func (r *StatsRepo) Totals(ctx context.Context) (models.Stats, error) {
	var (
		participants *redis.IntCmd
		pairings     *redis.StringCmd
		messages     *redis.StringCmd
	)

	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		participants = pipe.PFCount(ctx, participantsKey)
		pairings = pipe.Get(ctx, pairingsKey)
		messages = pipe.Get(ctx, messagesKey)

		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return models.Stats{}, fmt.Errorf("read totals: %w", err)
	}

	stats := models.Stats{TotalParticipants: participants.Val()}

	if stats.TotalPairings, err = counter(pairings); err != nil {
		return models.Stats{}, err
	}
	if stats.TotalMessages, err = counter(messages); err != nil {
		return models.Stats{}, err
	}

	return stats, nil
}

// counter - значение счётчика, отсутствующий ключ равен нулю
func counter(cmd *redis.StringCmd) (int64, error) {
	n, err := cmd.Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", cmd.Args()[1], err)
	}

	return n, nil
}
