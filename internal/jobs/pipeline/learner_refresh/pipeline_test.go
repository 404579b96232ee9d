package learner_refresh

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/prepcoach-backend/internal/data/repos"
	"github.com/yungbote/prepcoach-backend/internal/data/repos/testutil"
	types "github.com/yungbote/prepcoach-backend/internal/domain"
	"github.com/yungbote/prepcoach-backend/internal/modules/learning/coaching"
	"github.com/yungbote/prepcoach-backend/internal/observability"
	"github.com/yungbote/prepcoach-backend/internal/platform/dbctx"
)

// failingAttempts breaks attempt reads for one user.
type failingAttempts struct {
	repos.AttemptRepo
	userID uuid.UUID
}

func (f failingAttempts) ListByUser(dbc dbctx.Context, userID uuid.UUID, since *time.Time) ([]*types.Attempt, error) {
	if userID == f.userID {
		return nil, errors.New("attempt store unavailable")
	}
	return f.AttemptRepo.ListByUser(dbc, userID, since)
}

func newTestPipeline(t *testing.T, wrap func(Repos) Repos) (*Pipeline, Repos, *observability.Metrics) {
	t.Helper()
	db := testutil.FreshDB(t)
	log := testutil.Logger(t)
	r := Repos{
		Attempts:  repos.NewAttemptRepo(db, log),
		Tests:     repos.NewTestResultRepo(db, log),
		Topics:    repos.NewTopicMasteryRepo(db, log),
		Subjects:  repos.NewSubjectMasteryRepo(db, log),
		Schedules: repos.NewReviewScheduleRepo(db, log),
		Snapshots: repos.NewPerformanceSnapshotRepo(db, log),
		Grades:    repos.NewStudentGradeRepo(db, log),
	}
	if wrap != nil {
		r = wrap(r)
	}
	book, err := coaching.Embedded()
	require.NoError(t, err)
	m := observability.NewMetrics()
	p := New(db, log, r, coaching.NewEngine(log, nil), book, WithMetrics(m), WithConcurrency(2))
	return p, r, m
}

func TestRunUserRefreshesEveryStage(t *testing.T) {
	p, r, _ := newTestPipeline(t, nil)
	ctx := context.Background()
	userID := uuid.New()
	now := time.Date(2024, time.January, 10, 20, 0, 0, 0, time.UTC)
	testutil.SeedAttempts(t, ctx, p.db, userID, "physics", "kinematics", testutil.Day(2024, time.January, 10).Add(8*time.Hour), true, false, false, false)

	out, err := p.RunUser(ctx, RunInput{UserID: userID, Now: now})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Topics)
	assert.Equal(t, 1, out.Schedules)
	assert.NotEmpty(t, out.Grade)
	assert.NoError(t, out.RuleErrors)
	assert.Equal(t, 25.0, out.Metrics.Values["accuracy_daily_physics"])

	daily := out.Suggestions[types.TriggerDailyCheck]
	require.Len(t, daily, 1)
	assert.Equal(t, "accuracy_daily_low", daily[0].RuleID)
	assert.Contains(t, daily[0].Message, "physics")
	assert.NotContains(t, out.Suggestions, types.TriggerWeeklySummary)

	dbc := dbctx.Context{Ctx: ctx}
	sched, err := r.Schedules.Get(dbc, userID, "kinematics")
	require.NoError(t, err)
	require.NotNil(t, sched)
	g, err := r.Grades.GetByUser(dbc, userID)
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, out.Grade, g.Grade)
}

func TestRunUserCountsPracticeOnDueTopicAsReview(t *testing.T) {
	p, r, _ := newTestPipeline(t, nil)
	ctx := context.Background()
	userID := uuid.New()
	dbc := dbctx.Context{Ctx: ctx}
	testutil.SeedAttempts(t, ctx, p.db, userID, "physics", "kinematics", testutil.Day(2024, time.January, 10).Add(8*time.Hour), true, true, false)

	first, err := p.RunUser(ctx, RunInput{UserID: userID, Now: time.Date(2024, time.January, 10, 20, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	assert.Equal(t, 0, first.Reviewed)
	sched, err := r.Schedules.Get(dbc, userID, "kinematics")
	require.NoError(t, err)
	require.NotNil(t, sched)
	require.Equal(t, 0, sched.CompletedReviews)

	// Practice again on the day the review falls due.
	due := sched.NextReviewAt
	testutil.SeedAttempts(t, ctx, p.db, userID, "physics", "kinematics", due.Add(9*time.Hour), true, true)
	second, err := p.RunUser(ctx, RunInput{UserID: userID, Now: due.Add(20 * time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, 1, second.Reviewed)
	sched, err = r.Schedules.Get(dbc, userID, "kinematics")
	require.NoError(t, err)
	assert.Equal(t, 1, sched.CompletedReviews)
	assert.True(t, sched.LastReviewedAt.Equal(due.Add(10*time.Hour)), "got %s", sched.LastReviewedAt)
	assert.True(t, sched.NextReviewAt.After(due))

	// Re-running without new practice does not count the same review twice.
	third, err := p.RunUser(ctx, RunInput{UserID: userID, Now: due.Add(21 * time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, 0, third.Reviewed)
	sched, err = r.Schedules.Get(dbc, userID, "kinematics")
	require.NoError(t, err)
	assert.Equal(t, 1, sched.CompletedReviews)
}

func TestRunUserRejectsMissingUser(t *testing.T) {
	p, _, _ := newTestPipeline(t, nil)
	_, err := p.RunUser(context.Background(), RunInput{})
	require.Error(t, err)

	var empty *Pipeline
	_, err = empty.RunUser(context.Background(), RunInput{UserID: uuid.New()})
	require.Error(t, err)
}

func TestSweepIsolatesFailingUsers(t *testing.T) {
	bad := uuid.New()
	p, _, m := newTestPipeline(t, func(r Repos) Repos {
		r.Attempts = failingAttempts{AttemptRepo: r.Attempts, userID: bad}
		return r
	})
	ctx := context.Background()
	now := time.Date(2024, time.January, 10, 20, 0, 0, 0, time.UTC)
	good := []uuid.UUID{uuid.New(), uuid.New()}
	for _, id := range good {
		testutil.SeedAttempts(t, ctx, p.db, id, "chemistry", "bonding", now.Add(-6*time.Hour), true, true)
	}
	testutil.SeedAttempts(t, ctx, p.db, bad, "chemistry", "bonding", now.Add(-6*time.Hour), true)

	sum, err := p.Sweep(ctx, SweepInput{Now: now})
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Users)
	assert.Equal(t, 2, sum.Succeeded)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, []string{bad.String()}, sum.FailedUsers())
	assert.Contains(t, sum.Errors[bad.String()], "attempt store unavailable")
	assert.Equal(t, 2.0, m.SweepUsers("succeeded"))
	assert.Equal(t, 1.0, m.SweepUsers("failed"))
}

func TestEvaluateSingleTrigger(t *testing.T) {
	p, _, _ := newTestPipeline(t, nil)
	ctx := context.Background()
	userID := uuid.New()
	now := time.Date(2024, time.January, 10, 20, 0, 0, 0, time.UTC)
	testutil.SeedTestResult(t, ctx, p.db, userID, 30, now.Add(-time.Hour))

	sugs, err := p.Evaluate(ctx, userID, types.TriggerPostTest, now, nil)
	require.NoError(t, err)
	require.Len(t, sugs, 1)
	assert.Equal(t, "post_test_low", sugs[0].RuleID)
}

func TestTriggersFor(t *testing.T) {
	wednesday := time.Date(2024, time.January, 10, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, []types.Trigger{types.TriggerDailyCheck, types.TriggerInactivity}, TriggersFor(wednesday, 3))

	monday := time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, []types.Trigger{
		types.TriggerDailyCheck, types.TriggerInactivity, types.TriggerWeeklySummary, types.TriggerMonthlyReview,
	}, TriggersFor(monday, 0))

	monthEnd := time.Date(2024, time.February, 29, 9, 0, 0, 0, time.UTC)
	assert.Contains(t, TriggersFor(monthEnd, 0), types.TriggerMonthlyReview)
	assert.Contains(t, TriggersFor(wednesday, 14), types.TriggerStreakMilestone)
	assert.NotContains(t, TriggersFor(wednesday, 0), types.TriggerStreakMilestone)
}
