package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qrave1/ChatRoulette/internal/domain/models"
	"github.com/qrave1/ChatRoulette/internal/infra/adapters/postgres"
	"github.com/qrave1/ChatRoulette/internal/infra/adapters/postgres/migrations"
)

// newTestRepo мигрирует POSTGRES_TEST_URL с нуля, без него тест пропускается
func newTestRepo(t *testing.T) *StatsRepo {
	t.Helper()

	url := os.Getenv("POSTGRES_TEST_URL")
	if url == "" {
		t.Skip("POSTGRES_TEST_URL is not set")
	}

	ctx := context.Background()

	db, err := postgres.NewPostgres(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	goose.SetBaseFS(migrations.MigrationsFS)
	require.NoError(t, goose.SetDialect("postgres"))
	require.NoError(t, goose.ResetContext(ctx, db.DB, "."))
	require.NoError(t, goose.UpContext(ctx, db.DB, "."))

	return NewStatsRepo(db)
}

func TestStatsRepo_Totals(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	stats, err := repo.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Stats{}, stats)

	a := models.NewParticipant(uuid.New(), now)
	a.Media = models.MediaPrefs{Audio: true}
	a.Interests = []string{"go"}
	b := models.NewParticipant(uuid.New(), now)

	require.NoError(t, repo.SaveParticipant(ctx, *a))
	require.NoError(t, repo.SaveParticipant(ctx, *b))

	a.Media.Video = true
	require.NoError(t, repo.SaveParticipant(ctx, *a))

	pairing := models.NewPairing(a.ID, b.ID, now)
	require.NoError(t, repo.SavePairing(ctx, *pairing))
	require.NoError(t, repo.SavePairing(ctx, *pairing))

	for range 3 {
		require.NoError(t, repo.IncrementMessages(ctx, pairing.ID))
	}

	pairing.End(now.Add(time.Minute))
	require.NoError(t, repo.EndPairing(ctx, *pairing))

	stats, err = repo.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalParticipants)
	assert.Equal(t, int64(1), stats.TotalPairings)
	assert.Equal(t, int64(3), stats.TotalMessages)

	var video bool
	require.NoError(t, repo.db.GetContext(ctx, &video, "SELECT wants_video FROM participants WHERE id = $1", a.ID))
	assert.True(t, video)

	var ended *time.Time
	require.NoError(t, repo.db.GetContext(ctx, &ended, "SELECT ended_at FROM pairings WHERE id = $1", pairing.ID))
	require.NotNil(t, ended)
}

func TestStatsRepo_EndPairingRequiresEnd(t *testing.T) {
	repo := &StatsRepo{}

	err := repo.EndPairing(context.Background(), models.Pairing{ID: uuid.New()})
	require.Error(t, err)
}
