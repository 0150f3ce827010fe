package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/qrave1/ChatRoulette/internal/domain/models"
)

// StatsRepo - статистика в postgres: участники, пары и число сообщений
type StatsRepo struct {
	db *sqlx.DB
}

func NewStatsRepo(db *sqlx.DB) *StatsRepo {
	return &StatsRepo{db: db}
}

func (r *StatsRepo) SaveParticipant(ctx context.Context, p models.Participant) error {
	interests := p.Interests
	if interests == nil {
		interests = []string{}
	}

	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO participants (id, wants_audio, wants_video, interests, connected_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			wants_audio = EXCLUDED.wants_audio,
			wants_video = EXCLUDED.wants_video,
			interests = EXCLUDED.interests,
			last_seen_at = NOW()`,
		p.ID,
		p.Media.Audio,
		p.Media.Video,
		interests,
		p.ConnectedAt,
	)

	return err
}

func (r *StatsRepo) SavePairing(ctx context.Context, p models.Pairing) error {
	_, err := r.db.NamedExecContext(
		ctx,
		`INSERT INTO pairings (id, first_id, second_id, created_at)
		VALUES (:id, :first_id, :second_id, :created_at)
		ON CONFLICT (id) DO NOTHING`,
		p,
	)

	return err
}

func (r *StatsRepo) EndPairing(ctx context.Context, p models.Pairing) error {
	if p.EndedAt == nil {
		return fmt.Errorf("pairing %s is not ended", p.ID)
	}

	_, err := r.db.ExecContext(ctx, "UPDATE pairings SET ended_at = $1 WHERE id = $2", *p.EndedAt, p.ID)

	return err
}

func (r *StatsRepo) IncrementMessages(ctx context.Context, pairingID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, "UPDATE pairings SET message_count = message_count + 1 WHERE id = $1", pairingID)

	return err
}

func (r *StatsRepo) Totals(ctx context.Context) (models.Stats, error) {
	var totals struct {
		Participants int64 `db:"participants"`
		Pairings     int64 `db:"pairings"`
		Messages     int64 `db:"messages"`
	}

	err := r.db.GetContext(
		ctx,
		&totals,
		`SELECT
			(SELECT COUNT(*) FROM participants) AS participants,
			(SELECT COUNT(*) FROM pairings) AS pairings,
			(SELECT COALESCE(SUM(message_count), 0)::BIGINT FROM pairings) AS messages`,
	)
	if err != nil {
		return models.Stats{}, fmt.Errorf("select totals: %w", err)
	}

	return models.Stats{
		TotalParticipants: totals.Participants,
		TotalPairings:     totals.Pairings,
		TotalMessages:     totals.Messages,
	}, nil
}
