package performance

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	types "github.com/yungbote/prepcoach-backend/internal/domain"
)

func attempt(userID uuid.UUID, subject string, ok bool, at time.Time) *types.Attempt {
	return &types.Attempt{
		ID:               uuid.New(),
		UserID:           userID,
		SubjectID:        subject,
		TopicID:          subject + "-t1",
		IsCorrect:        ok,
		TimingSeconds:    50,
		IdealTimeSeconds: 60,
		SolvedAt:         at,
	}
}

func TestBuildSnapshot(t *testing.T) {
	userID := uuid.New()
	now := time.Date(2024, time.January, 12, 9, 0, 0, 0, time.UTC)
	day := func(d int) time.Time { return time.Date(2024, time.January, d, 8, 0, 0, 0, time.UTC) }

	attempts := []*types.Attempt{
		attempt(userID, "physics", true, day(10)),
		attempt(userID, "physics", true, day(11)),
		attempt(userID, "physics", false, day(11)),
		attempt(userID, "physics", true, day(12)),
		attempt(userID, "chemistry", true, day(12)),
		attempt(userID, "chemistry", false, day(12)),
	}
	var tests []*types.TestResult
	for i := 12; i >= 1; i-- {
		tests = append(tests, &types.TestResult{UserID: userID, Score: float64(5 * i), CompletedAt: day(i)})
	}

	snap := BuildSnapshot(userID, attempts, tests, now)
	assert.Equal(t, 66.67, snap.Accuracy)
	assert.Equal(t, map[string]float64{"physics": 75, "chemistry": 50}, snap.SubjectAccuracy())
	assert.Equal(t, []float64{15, 20, 25, 30, 35, 40, 45, 50, 55, 60}, snap.TestScores())
	assert.Equal(t, 37.5, snap.AvgScore)
	assert.Equal(t, 3, snap.StreakDays)
	assert.Equal(t, now, snap.ComputedAt)
}

func TestBuildSnapshotEmpty(t *testing.T) {
	snap := BuildSnapshot(uuid.New(), nil, nil, time.Now())
	assert.Zero(t, snap.Accuracy)
	assert.Zero(t, snap.AvgScore)
	assert.Zero(t, snap.StreakDays)
	assert.Empty(t, snap.TestScores())
	assert.Empty(t, snap.SubjectAccuracy())
}
