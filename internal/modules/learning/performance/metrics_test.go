package performance

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	types "github.com/yungbote/prepcoach-backend/internal/domain"
)

func TestBuildMetricsWindows(t *testing.T) {
	userID := uuid.New()
	now := time.Date(2024, time.January, 10, 15, 0, 0, 0, time.UTC)
	at := func(d, h int) time.Time { return time.Date(2024, time.January, d, h, 0, 0, 0, time.UTC) }

	in := MetricsInput{
		UserID: userID,
		Now:    now,
		Attempts: []*types.Attempt{
			attempt(userID, "physics", true, at(10, 9)),
			attempt(userID, "physics", false, at(10, 10)),
			attempt(userID, "physics", true, at(9, 9)),
			attempt(userID, "chemistry", true, at(2, 9)),
			attempt(userID, "chemistry", true, at(2, 10)),
		},
		Tests: []*types.TestResult{
			{UserID: userID, Score: 70, CompletedAt: at(5, 9)},
			{UserID: userID, Score: 90, CompletedAt: at(8, 9)},
		},
		Subjects: []*types.SubjectMastery{
			{UserID: userID, SubjectID: "physics", MasteryLevel: 60},
			{UserID: userID, SubjectID: "biology", MasteryLevel: 30},
		},
		DueReviews: 3,
		Context:    map[string]string{"name": "Asha"},
	}
	m := BuildMetrics(in)

	want := map[string]float64{
		"questions_daily":                    2,
		"accuracy_daily":                     50,
		"avg_time_daily":                     50,
		"study_minutes_daily":                1.67,
		"accuracy_daily_physics":             50,
		"accuracy_previous_daily_physics":    100,
		"accuracy_three_day":                 66.67,
		"accuracy_weekly":                    66.67,
		"accuracy_previous_weekly_chemistry": 100,
		"accuracy_monthly":                   80,
		"accuracy_overall":                   80,
		"test_score_latest":                  90,
		"test_score_recent":                  80,
		"mastery_overall_physics":            60,
		"mastery_overall_biology":            30,
		"mastery_overall":                    45,
		"reviews_due_overall":                3,
	}
	for key, v := range want {
		got, ok := m.Values[key]
		require.True(t, ok, "missing %s", key)
		assert.Equal(t, v, got, key)
	}
	_, ok := m.Values["accuracy_daily_chemistry"]
	assert.False(t, ok, "no chemistry attempts today")

	assert.Equal(t, []string{"biology", "chemistry", "physics"}, m.Subjects)
	assert.Equal(t, 2, m.StreakDays)
	assert.Equal(t, 1, m.PreviousStreakDays)
	assert.Equal(t, 0, m.DaysInactive)
	require.NotNil(t, m.LastActiveAt)
	assert.Equal(t, at(10, 10), *m.LastActiveAt)
	assert.Equal(t, "Asha", m.Context["name"])
}

func TestBuildMetricsForInactiveUser(t *testing.T) {
	m := BuildMetrics(MetricsInput{UserID: uuid.New(), Now: time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC)})
	assert.Equal(t, -1, m.DaysInactive)
	assert.Nil(t, m.LastActiveAt)
	assert.Equal(t, 0.0, m.Values["questions_daily"])
	_, ok := m.Values["accuracy_daily"]
	assert.False(t, ok)
	_, ok = m.Values["test_score_latest"]
	assert.False(t, ok)
}
