package review

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/prepcoach-backend/internal/data/repos"
	"github.com/yungbote/prepcoach-backend/internal/data/repos/testutil"
	"github.com/yungbote/prepcoach-backend/internal/platform/apperr"
)

func newSchedulerDeps(t *testing.T) SchedulerDeps {
	t.Helper()
	db := testutil.FreshDB(t)
	log := testutil.Logger(t)
	return SchedulerDeps{
		DB:        db,
		Log:       log,
		Topics:    repos.NewTopicMasteryRepo(db, log),
		Schedules: repos.NewReviewScheduleRepo(db, log),
	}
}

func TestScheduleRequiresMastery(t *testing.T) {
	deps := newSchedulerDeps(t)
	_, err := Schedule(context.Background(), deps, ScheduleInput{UserID: uuid.New(), TopicID: "kinematics"})
	require.Error(t, err)
	require.True(t, errors.Is(err, apperr.ErrNotFound), "got %v", err)
}

func TestScheduleCreatesThenCarriesState(t *testing.T) {
	deps := newSchedulerDeps(t)
	ctx := context.Background()
	userID := uuid.New()

	practiced := time.Date(2024, 1, 1, 18, 0, 0, 0, time.UTC)
	m := testutil.SeedTopicMastery(t, ctx, deps.DB, userID, "physics", "kinematics", 50, 40)
	require.NoError(t, deps.DB.Model(m).Update("last_practiced_at", practiced).Error)

	first, err := Schedule(ctx, deps, ScheduleInput{UserID: userID, TopicID: "kinematics", Now: practiced.Add(2 * time.Hour)})
	require.NoError(t, err)
	require.True(t, first.Created)
	require.Equal(t, 0, first.Schedule.CompletedReviews)
	require.Equal(t, 0.5, first.Schedule.RetentionStrength)
	require.Equal(t, 28, first.Schedule.ReviewIntervalDays)
	require.True(t, first.Schedule.NextReviewAt.Equal(time.Date(2024, 1, 29, 0, 0, 0, 0, time.UTC)), "got %s", first.Schedule.NextReviewAt)

	// Recomputing without new data keeps the row stable.
	second, err := Schedule(ctx, deps, ScheduleInput{UserID: userID, TopicID: "kinematics", Now: practiced.AddDate(0, 0, 3)})
	require.NoError(t, err)
	require.False(t, second.Created)
	require.Equal(t, first.Schedule.ReviewIntervalDays, second.Schedule.ReviewIntervalDays)
	require.True(t, first.Schedule.NextReviewAt.Equal(second.Schedule.NextReviewAt))

	// Fresh retention replaces the stored value.
	fresh := 1.0
	third, err := Schedule(ctx, deps, ScheduleInput{UserID: userID, TopicID: "kinematics", RetentionStrength: &fresh})
	require.NoError(t, err)
	require.Equal(t, 1.0, third.Schedule.RetentionStrength)
	require.GreaterOrEqual(t, third.Schedule.ReviewIntervalDays, second.Schedule.ReviewIntervalDays)

	bad := 1.5
	_, err = Schedule(ctx, deps, ScheduleInput{UserID: userID, TopicID: "kinematics", RetentionStrength: &bad})
	require.True(t, errors.Is(err, apperr.ErrValidation), "got %v", err)
}

func TestCompleteReview(t *testing.T) {
	deps := newSchedulerDeps(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := CompleteReview(ctx, deps, CompleteReviewInput{UserID: userID, TopicID: "optics", ReviewedAt: time.Now()})
	require.True(t, errors.Is(err, apperr.ErrNotFound), "got %v", err)

	testutil.SeedTopicMastery(t, ctx, deps.DB, userID, "physics", "optics", 20, 0)
	start := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	_, err = Schedule(ctx, deps, ScheduleInput{UserID: userID, TopicID: "optics", Now: start})
	require.NoError(t, err)

	_, err = CompleteReview(ctx, deps, CompleteReviewInput{UserID: userID, TopicID: "kinematics", ReviewedAt: start})
	require.True(t, errors.Is(err, apperr.ErrNotFound), "mastery missing for other topic: %v", err)

	reviewed := start.AddDate(0, 0, 3)
	out, err := CompleteReview(ctx, deps, CompleteReviewInput{UserID: userID, TopicID: "optics", ReviewedAt: reviewed})
	require.NoError(t, err)
	require.Equal(t, 1, out.Schedule.CompletedReviews)
	require.True(t, out.Schedule.LastReviewedAt.Equal(reviewed))
	require.True(t, out.Schedule.NextReviewAt.Equal(StartOfDay(reviewed).AddDate(0, 0, out.Schedule.ReviewIntervalDays)))

	out, err = CompleteReview(ctx, deps, CompleteReviewInput{UserID: userID, TopicID: "optics", ReviewedAt: reviewed.AddDate(0, 0, 2)})
	require.NoError(t, err)
	require.Equal(t, 2, out.Schedule.CompletedReviews)
}

func TestScheduleAllAndDueReviews(t *testing.T) {
	deps := newSchedulerDeps(t)
	ctx := context.Background()
	userID := uuid.New()

	testutil.SeedTopicMastery(t, ctx, deps.DB, userID, "physics", "kinematics", 90, 90)
	testutil.SeedTopicMastery(t, ctx, deps.DB, userID, "physics", "optics", 0, 0)
	testutil.SeedTopicMastery(t, ctx, deps.DB, userID, "chemistry", "bonding", 10, 5)

	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	out, err := ScheduleAll(ctx, deps, ScheduleAllInput{
		UserID:    userID,
		Retention: map[string]float64{"optics": 0},
		Now:       now,
	})
	require.NoError(t, err)
	require.Len(t, out.Schedules, 3)
	require.Equal(t, 3, out.Created)

	// optics: 1 * 1 * 1 = 1 day -> due on 2024-03-02.
	due, err := DueReviews(ctx, deps, userID, now.AddDate(0, 0, 1), 0)
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.Equal(t, "optics", due[0].TopicID)

	due, err = DueReviews(ctx, deps, userID, now.AddDate(0, 0, 90), 2)
	require.NoError(t, err)
	require.Len(t, due, 2)
	require.False(t, due[1].NextReviewAt.Before(due[0].NextReviewAt))

	again, err := ScheduleAll(ctx, deps, ScheduleAllInput{UserID: userID, Now: now})
	require.NoError(t, err)
	require.Equal(t, 3, again.Updated)
}
