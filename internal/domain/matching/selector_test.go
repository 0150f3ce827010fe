package matching

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/qrave1/ChatRoulette/internal/domain/models"
)

func participant(media models.MediaPrefs, queuedAt time.Time, interests ...string) *models.Participant {
	return &models.Participant{
		ID:        uuid.New(),
		State:     models.StateWaiting,
		Media:     media,
		Interests: interests,
		QueuedAt:  queuedAt,
	}
}

func TestMediaCompatibility(t *testing.T) {
	silent := models.MediaPrefs{}
	audio := models.MediaPrefs{Audio: true}
	video := models.MediaPrefs{Video: true}
	both := models.MediaPrefs{Audio: true, Video: true}

	cases := []struct {
		name string
		a, b models.MediaPrefs
		want bool
	}{
		{"silent-silent", silent, silent, true},
		{"silent-audio", silent, audio, false},
		{"audio-audio", audio, audio, true},
		{"audio-video", audio, video, false},
		{"video-both", video, both, true},
		{"both-audio", both, audio, true},
		{"both-silent", both, silent, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.a.CompatibleWith(tc.b))
			assert.Equal(t, tc.want, tc.b.CompatibleWith(tc.a))
		})
	}
}

func TestPick_FIFOAmongCompatible(t *testing.T) {
	now := time.Now()
	s := NewSelector(8, 5*time.Second)

	queue := []*models.Participant{
		participant(models.MediaPrefs{Video: true}, now.Add(-3*time.Second)),
		participant(models.MediaPrefs{}, now.Add(-2*time.Second)),
		participant(models.MediaPrefs{}, now.Add(-1*time.Second)),
	}

	seeker := participant(models.MediaPrefs{}, now)
	assert.Equal(t, 1, s.Pick(now, seeker, queue))
}

func TestPick_NoCompatible(t *testing.T) {
	now := time.Now()
	s := NewSelector(8, 5*time.Second)

	queue := []*models.Participant{
		participant(models.MediaPrefs{Video: true}, now),
		participant(models.MediaPrefs{Audio: true}, now),
	}

	seeker := participant(models.MediaPrefs{}, now)
	assert.Equal(t, -1, s.Pick(now, seeker, queue))
	assert.Equal(t, -1, s.Pick(now, seeker, nil))
}

func TestPick_InterestsRerankWithinLookahead(t *testing.T) {
	now := time.Now()
	s := NewSelector(8, 5*time.Second)

	queue := []*models.Participant{
		participant(models.MediaPrefs{}, now.Add(-2*time.Second), "cats"),
		participant(models.MediaPrefs{}, now.Add(-1*time.Second), "music", "go"),
		participant(models.MediaPrefs{}, now, "go"),
	}

	seeker := participant(models.MediaPrefs{}, now, "go", "music")
	assert.Equal(t, 1, s.Pick(now, seeker, queue))
}

func TestPick_TieBreaksByArrival(t *testing.T) {
	now := time.Now()
	s := NewSelector(8, 5*time.Second)

	queue := []*models.Participant{
		participant(models.MediaPrefs{}, now.Add(-2*time.Second), "go"),
		participant(models.MediaPrefs{}, now.Add(-1*time.Second), "go"),
	}

	seeker := participant(models.MediaPrefs{}, now, "go")
	assert.Equal(t, 0, s.Pick(now, seeker, queue))
}

func TestPick_FairnessWindowBeatsScore(t *testing.T) {
	now := time.Now()
	s := NewSelector(8, 5*time.Second)

	queue := []*models.Participant{
		participant(models.MediaPrefs{}, now.Add(-6*time.Second)),
		participant(models.MediaPrefs{}, now.Add(-1*time.Second), "go", "music"),
	}

	seeker := participant(models.MediaPrefs{}, now, "go", "music")
	assert.Equal(t, 0, s.Pick(now, seeker, queue))
}

func TestPick_LookaheadBounded(t *testing.T) {
	now := time.Now()
	s := NewSelector(2, time.Minute)

	queue := []*models.Participant{
		participant(models.MediaPrefs{}, now, "a"),
		participant(models.MediaPrefs{}, now, "b"),
		participant(models.MediaPrefs{}, now, "go"),
	}

	seeker := participant(models.MediaPrefs{}, now, "go")
	assert.Equal(t, 0, s.Pick(now, seeker, queue))
}

func TestPick_CompatibleBeyondLookahead(t *testing.T) {
	now := time.Now()
	s := NewSelector(1, time.Minute)

	queue := []*models.Participant{
		participant(models.MediaPrefs{Video: true}, now, "go"),
		participant(models.MediaPrefs{Video: true}, now, "go"),
		participant(models.MediaPrefs{}, now, "x"),
	}

	seeker := participant(models.MediaPrefs{}, now, "go")
	assert.Equal(t, 2, s.Pick(now, seeker, queue))
}

func TestPick_SkipsSelf(t *testing.T) {
	now := time.Now()
	s := NewSelector(8, time.Minute)

	seeker := participant(models.MediaPrefs{}, now)
	assert.Equal(t, -1, s.Pick(now, seeker, []*models.Participant{seeker}))
}

func TestNormalizeInterests(t *testing.T) {
	assert.Equal(t, []string{"go", "music"}, models.NormalizeInterests([]string{" Go ", "music", "", "GO"}))
	assert.Nil(t, models.NormalizeInterests(nil))
}
