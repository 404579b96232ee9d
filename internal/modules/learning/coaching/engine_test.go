package coaching

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	types "github.com/yungbote/prepcoach-backend/internal/domain"
	"github.com/yungbote/prepcoach-backend/internal/platform/apperr"
	"github.com/yungbote/prepcoach-backend/internal/platform/logger"
)

func mustParse(t *testing.T, src string) *RuleBook {
	t.Helper()
	book, err := Parse([]byte(src))
	require.NoError(t, err)
	return book
}

const twoRuleBook = `
version: "t1"
categories:
  - id: performance
    rules:
      - id: low_slow
        priority: 20
        condition: {type: threshold, metric: accuracy, period: daily, operator: lt, value: 40, scope: subject}
        action: "second {subject}"
        suggestion_type: GUIDANCE
        duration_days: 1
        triggers: [DAILY_CHECK]
      - id: low_fast
        priority: 10
        condition: {type: threshold, metric: accuracy, period: daily, operator: lt, value: 40, scope: subject}
        action: "first {subject}"
        suggestion_type: WARNING
        duration_days: 1
        triggers: [DAILY_CHECK]
      - id: weekly_only
        priority: 1
        condition: {type: threshold, metric: accuracy, period: daily, operator: lt, value: 40, scope: subject}
        action: "weekly {subject}"
        suggestion_type: WARNING
        duration_days: 1
        triggers: [WEEKLY_SUMMARY]
  - id: engagement
    rules:
      - id: tie_a
        priority: 10
        condition: {type: streak, min_days: 1}
        action: "tie a"
        suggestion_type: MOTIVATION
        duration_days: 0
        triggers: [DAILY_CHECK]
      - id: tie_b
        priority: 10
        condition: {type: streak, min_days: 1}
        action: "tie b"
        suggestion_type: MOTIVATION
        duration_days: 0
        triggers: [DAILY_CHECK]
`

func physicsSnapshot() MetricsSnapshot {
	return MetricsSnapshot{
		UserID:   uuid.New(),
		Now:      wednesday,
		Values:   map[string]float64{"accuracy_daily_physics": 35},
		Subjects: []string{"physics"},
	}
}

func ruleIDs(out []Suggestion) []string {
	ids := make([]string, 0, len(out))
	for _, s := range out {
		ids = append(ids, s.RuleID)
	}
	return ids
}

func TestEvaluateRulesLowDailyAccuracyWarnsForSubject(t *testing.T) {
	book, err := Embedded()
	require.NoError(t, err)

	eng := NewEngine(logger.Nop(), nil)
	out, err := eng.EvaluateRules(context.Background(), types.TriggerDailyCheck, physicsSnapshot(), book)
	require.NoError(t, err)
	require.Len(t, out, 1)

	got := out[0]
	assert.Equal(t, "accuracy_daily_low", got.RuleID)
	assert.Equal(t, types.SuggestionWarning, got.SuggestionType)
	assert.Equal(t, "performance", got.Category)
	assert.Contains(t, got.Message, "accuracy below 40%")
	assert.Contains(t, got.Message, "physics")
	assert.Equal(t, "physics", got.Context["subject"])
	assert.Equal(t, wednesday.AddDate(0, 0, 1), got.ActiveUntil)
	assert.Equal(t, types.TriggerDailyCheck, got.Trigger)
}

func TestEvaluateRulesReadsSubjectsFromMetricKeys(t *testing.T) {
	book, err := Embedded()
	require.NoError(t, err)

	snap := MetricsSnapshot{
		UserID: uuid.New(),
		Now:    wednesday,
		Values: map[string]float64{"accuracy_daily_physics": 35},
	}
	out, err := NewEngine(logger.Nop(), nil).EvaluateRules(context.Background(), types.TriggerDailyCheck, snap, book)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "accuracy_daily_low", out[0].RuleID)
	assert.Equal(t, types.SuggestionWarning, out[0].SuggestionType)
	assert.Equal(t, "physics", out[0].Context["subject"])
}

func TestSubjectsForIgnoresOtherMetricsAndPeriods(t *testing.T) {
	snap := MetricsSnapshot{Values: map[string]float64{
		"accuracy_daily_physics":        35,
		"accuracy_daily":                50,
		"accuracy_weekly_chemistry":     70,
		"accuracy_previous_daily_maths": 40,
		"volume_daily_biology":          3,
	}}
	assert.Equal(t, []string{"physics"}, snap.subjectsFor("accuracy", PeriodDaily))
	assert.Equal(t, []string{"chemistry", "physics"}, snap.subjectsFor("accuracy", PeriodDaily, PeriodWeekly))

	snap.Subjects = []string{"zoology", "art"}
	assert.Equal(t, []string{"art", "zoology"}, snap.subjectsFor("accuracy", PeriodDaily))
}

func TestEvaluateRulesPriorityAndTieBreak(t *testing.T) {
	book := mustParse(t, twoRuleBook)
	eng := NewEngine(logger.Nop(), nil, WithPolicy(Policy{Mode: FanOutTopN}))

	snap := physicsSnapshot()
	snap.StreakDays = 2
	out, err := eng.EvaluateRules(context.Background(), types.TriggerDailyCheck, snap, book)
	require.NoError(t, err)
	assert.Equal(t, []string{"low_fast", "tie_a", "tie_b", "low_slow"}, ruleIDs(out))

	top1 := NewEngine(logger.Nop(), nil)
	out, err = top1.EvaluateRules(context.Background(), types.TriggerDailyCheck, snap, book)
	require.NoError(t, err)
	assert.Equal(t, []string{"low_fast"}, ruleIDs(out))
	assert.Equal(t, "first physics", out[0].Message)
}

func TestEvaluateRulesNeverReturnsRulesForOtherTriggers(t *testing.T) {
	book := mustParse(t, twoRuleBook)
	eng := NewEngine(logger.Nop(), nil, WithPolicy(Policy{Mode: FanOutTopN}))

	out, err := eng.EvaluateRules(context.Background(), types.TriggerDailyCheck, physicsSnapshot(), book)
	require.NoError(t, err)
	assert.NotContains(t, ruleIDs(out), "weekly_only")

	out, err = eng.EvaluateRules(context.Background(), types.TriggerWeeklySummary, physicsSnapshot(), book)
	require.NoError(t, err)
	assert.Equal(t, []string{"weekly_only"}, ruleIDs(out))

	out, err = eng.EvaluateRules(context.Background(), types.TriggerPostTest, physicsSnapshot(), book)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestEvaluateRulesFanOutPolicies(t *testing.T) {
	book := mustParse(t, twoRuleBook)
	snap := physicsSnapshot()
	snap.StreakDays = 3

	perCategory := NewEngine(logger.Nop(), nil, WithPolicy(Policy{Mode: FanOutPerCategory}))
	out, err := perCategory.EvaluateRules(context.Background(), types.TriggerDailyCheck, snap, book)
	require.NoError(t, err)
	assert.Equal(t, []string{"low_fast", "tie_a"}, ruleIDs(out))

	topTwo := NewEngine(logger.Nop(), nil, WithPolicy(Policy{Mode: FanOutTopN, Limit: 2}))
	out, err = topTwo.EvaluateRules(context.Background(), types.TriggerDailyCheck, snap, book)
	require.NoError(t, err)
	assert.Equal(t, []string{"low_fast", "tie_a"}, ruleIDs(out))

	ignored := NewEngine(logger.Nop(), nil, WithPolicy(Policy{Mode: "everything"}))
	assert.Equal(t, FanOutTop1, ignored.Policy().Mode)
}

func TestEvaluateRulesSuppressesRecentlyFiredRules(t *testing.T) {
	book := mustParse(t, twoRuleBook)
	snap := physicsSnapshot()

	var asked []string
	lookup := LastFiredFunc(func(_ context.Context, userID uuid.UUID, ruleID string) (*time.Time, error) {
		assert.Equal(t, snap.UserID, userID)
		asked = append(asked, ruleID)
		if ruleID == "low_fast" {
			fired := wednesday.Add(-12 * time.Hour)
			return &fired, nil
		}
		if ruleID == "low_slow" {
			fired := wednesday.Add(-25 * time.Hour)
			return &fired, nil
		}
		return nil, nil
	})

	eng := NewEngine(logger.Nop(), lookup)
	out, err := eng.EvaluateRules(context.Background(), types.TriggerDailyCheck, snap, book)
	require.NoError(t, err)
	assert.Equal(t, []string{"low_slow"}, ruleIDs(out))
	assert.ElementsMatch(t, []string{"low_slow", "low_fast"}, asked)
}

func TestEvaluateRulesSkipsRuleWhenLookupFails(t *testing.T) {
	book := mustParse(t, twoRuleBook)
	boom := errors.New("store down")
	lookup := LastFiredFunc(func(_ context.Context, _ uuid.UUID, ruleID string) (*time.Time, error) {
		if ruleID == "low_fast" {
			return nil, boom
		}
		return nil, nil
	})

	eng := NewEngine(logger.Nop(), lookup)
	out, err := eng.EvaluateRules(context.Background(), types.TriggerDailyCheck, physicsSnapshot(), book)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"low_slow"}, ruleIDs(out))
}

func TestEvaluateRulesReportsUnresolvedTemplates(t *testing.T) {
	book := mustParse(t, `
version: "t2"
categories:
  - id: engagement
    rules:
      - id: greet
        priority: 1
        condition: {type: streak, min_days: 1}
        action: "{name}, {streak_days} days strong"
        suggestion_type: CELEBRATION
        duration_days: 1
        triggers: [DAILY_CHECK]
      - id: plain
        priority: 2
        condition: {type: streak, min_days: 1}
        action: "keep going"
        suggestion_type: ENCOURAGEMENT
        duration_days: 1
        triggers: [DAILY_CHECK]
`)
	eng := NewEngine(logger.Nop(), nil)
	snap := MetricsSnapshot{UserID: uuid.New(), Now: wednesday, StreakDays: 4}

	out, err := eng.EvaluateRules(context.Background(), types.TriggerDailyCheck, snap, book)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrTemplateResolution))
	assert.Equal(t, []string{"plain"}, ruleIDs(out))

	snap.Context = map[string]string{"name": "Asha"}
	out, err = eng.EvaluateRules(context.Background(), types.TriggerDailyCheck, snap, book)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Asha, 4 days strong", out[0].Message)
}

func TestEvaluateRulesSkipsFailingConditions(t *testing.T) {
	book := mustParse(t, `
version: "t3"
categories:
  - id: mixed
    rules:
      - id: broken_expr
        priority: 1
        condition: {type: expression, expr: 'metrics["nope"] > 1.0'}
        action: "never"
        suggestion_type: WARNING
        duration_days: 1
        triggers: [DAILY_CHECK]
      - id: fine
        priority: 2
        condition: {type: expression, expr: 'streak_days == 0'}
        action: "fine"
        suggestion_type: REMINDER
        duration_days: 1
        triggers: [DAILY_CHECK]
`)
	eng := NewEngine(logger.Nop(), nil)
	out, err := eng.EvaluateRules(context.Background(), types.TriggerDailyCheck, MetricsSnapshot{Now: wednesday}, book)
	require.NoError(t, err)
	assert.Equal(t, []string{"fine"}, ruleIDs(out))
}

func TestEvaluateRulesRejectsBadInput(t *testing.T) {
	eng := NewEngine(nil, nil)
	_, err := eng.EvaluateRules(context.Background(), types.Trigger("HOURLY"), physicsSnapshot(), mustParse(t, twoRuleBook))
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = eng.EvaluateRules(context.Background(), types.TriggerDailyCheck, physicsSnapshot(), nil)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

type captureRecorder struct {
	userID  uuid.UUID
	version string
	firedAt time.Time
	got     []Suggestion
	err     error
}

func (c *captureRecorder) RecordFired(_ context.Context, userID uuid.UUID, version string, firedAt time.Time, out []Suggestion) error {
	c.userID, c.version, c.firedAt, c.got = userID, version, firedAt, out
	return c.err
}

func TestEvaluateRulesRecordsReturnedSuggestions(t *testing.T) {
	book := mustParse(t, twoRuleBook)
	rec := &captureRecorder{}
	eng := NewEngine(logger.Nop(), nil, WithRecorder(rec))
	snap := physicsSnapshot()

	out, err := eng.EvaluateRules(context.Background(), types.TriggerDailyCheck, snap, book)
	require.NoError(t, err)
	assert.Equal(t, out, rec.got)
	assert.Equal(t, snap.UserID, rec.userID)
	assert.Equal(t, "t1", rec.version)
	assert.Equal(t, wednesday, rec.firedAt)

	rec.err = errors.New("disk full")
	out, err = eng.EvaluateRules(context.Background(), types.TriggerDailyCheck, snap, book)
	assert.Error(t, err)
	assert.Len(t, out, 1, "suggestions are still returned when recording fails")
}

func TestEvaluateRulesUsesClockWhenSnapshotHasNoTime(t *testing.T) {
	book := mustParse(t, twoRuleBook)
	eng := NewEngine(logger.Nop(), nil, WithClock(func() time.Time { return wednesday }))
	snap := physicsSnapshot()
	snap.Now = time.Time{}

	out, err := eng.EvaluateRules(context.Background(), types.TriggerDailyCheck, snap, book)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, wednesday.AddDate(0, 0, 1), out[0].ActiveUntil)
}
