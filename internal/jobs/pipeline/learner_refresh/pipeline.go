package learner_refresh

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	types "github.com/yungbote/prepcoach-backend/internal/domain"
	"github.com/yungbote/prepcoach-backend/internal/modules/learning/coaching"
	"github.com/yungbote/prepcoach-backend/internal/modules/learning/grade"
	"github.com/yungbote/prepcoach-backend/internal/modules/learning/mastery"
	"github.com/yungbote/prepcoach-backend/internal/modules/learning/performance"
	"github.com/yungbote/prepcoach-backend/internal/modules/learning/review"
	"github.com/yungbote/prepcoach-backend/internal/observability"
	"github.com/yungbote/prepcoach-backend/internal/platform/apperr"
)

type RunInput struct {
	UserID uuid.UUID
	Now    time.Time
	// Triggers overrides the calendar-derived trigger set.
	Triggers []types.Trigger
	Context  map[string]string
}

type RunOutput struct {
	UserID      uuid.UUID                               `json:"user_id"`
	Topics      int                                     `json:"topics"`
	Schedules   int                                     `json:"schedules"`
	Reviewed    int                                     `json:"reviewed"`
	Grade       types.Grade                             `json:"grade"`
	Degraded    bool                                    `json:"degraded"`
	Metrics     coaching.MetricsSnapshot                `json:"-"`
	Suggestions map[types.Trigger][]coaching.Suggestion `json:"suggestions"`
	// RuleErrors holds per-rule failures; they never fail the run.
	RuleErrors error `json:"-"`
}

// RunUser refreshes one learner end to end: mastery, performance metrics, review schedules,
// grade, then rule evaluation for every due trigger. Stages run in that order because each
// reads what the previous one committed.
func (p *Pipeline) RunUser(ctx context.Context, in RunInput) (RunOutput, error) {
	out := RunOutput{UserID: in.UserID, Suggestions: map[types.Trigger][]coaching.Suggestion{}}
	if p == nil || p.db == nil || p.log == nil || !p.repos.complete() || p.engine == nil || p.book == nil {
		return out, fmt.Errorf("learner_refresh: missing deps")
	}
	if in.UserID == uuid.Nil {
		return out, apperr.Validation("learner_refresh", "missing user_id")
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	ctx, span := observability.StartSpan(ctx, "learner_refresh.run_user", attribute.String("user_id", in.UserID.String()))
	var runErr error
	defer func() { observability.EndSpan(span, runErr) }()

	var agg mastery.AggregateOutput
	runErr = p.stage(ctx, "mastery", func(ctx context.Context) error {
		var err error
		agg, err = mastery.Aggregate(ctx, mastery.AggregateDeps{
			DB:       p.db,
			Log:      p.log,
			Attempts: p.repos.Attempts,
			Topics:   p.repos.Topics,
			Subjects: p.repos.Subjects,
		}, mastery.AggregateInput{UserID: in.UserID, Now: now})
		return err
	})
	if runErr != nil {
		return out, runErr
	}
	out.Topics = len(agg.Topics)

	runErr = p.stage(ctx, "review", func(ctx context.Context) error {
		res, err := review.ScheduleAll(ctx, review.SchedulerDeps{
			DB:        p.db,
			Log:       p.log,
			Topics:    p.repos.Topics,
			Schedules: p.repos.Schedules,
		}, review.ScheduleAllInput{UserID: in.UserID, Retention: agg.Retention, Now: now})
		out.Schedules, out.Reviewed = len(res.Schedules), res.Reviewed
		return err
	})
	if runErr != nil {
		return out, runErr
	}

	var perf performance.RefreshOutput
	runErr = p.stage(ctx, "performance", func(ctx context.Context) error {
		var err error
		perf, err = performance.Refresh(ctx, performance.RefreshDeps{
			DB:        p.db,
			Log:       p.log,
			Attempts:  p.repos.Attempts,
			Tests:     p.repos.Tests,
			Subjects:  p.repos.Subjects,
			Schedules: p.repos.Schedules,
			Snapshots: p.repos.Snapshots,
		}, performance.RefreshInput{UserID: in.UserID, Now: now, Context: in.Context})
		return err
	})
	if runErr != nil {
		return out, runErr
	}
	out.Metrics = perf.Metrics

	runErr = p.stage(ctx, "grade", func(ctx context.Context) error {
		res, err := grade.Compute(ctx, grade.ComputeDeps{
			Log:       p.log,
			Subjects:  p.repos.Subjects,
			Topics:    p.repos.Topics,
			Snapshots: p.repos.Snapshots,
			Tests:     p.repos.Tests,
			Grades:    p.repos.Grades,
		}, grade.ComputeInput{UserID: in.UserID, Now: now})
		out.Grade, out.Degraded = res.Grade, res.Degraded
		if err == nil {
			p.metrics.IncGrade(string(res.Grade), res.Degraded)
		}
		return err
	})
	if runErr != nil {
		return out, runErr
	}

	triggers := in.Triggers
	if len(triggers) == 0 {
		triggers = TriggersFor(now, perf.Metrics.StreakDays)
	}
	var ruleErrs []error
	_ = p.stage(ctx, "rules", func(ctx context.Context) error {
		for _, trig := range triggers {
			sugs, err := p.engine.EvaluateRules(ctx, trig, perf.Metrics, p.book)
			if err != nil {
				ruleErrs = append(ruleErrs, err)
				p.countRuleErrors(err)
			}
			for _, s := range sugs {
				p.metrics.IncSuggestion(string(trig), s.RuleID, string(s.SuggestionType))
			}
			if len(sugs) > 0 {
				out.Suggestions[trig] = sugs
			}
		}
		return errors.Join(ruleErrs...)
	})
	out.RuleErrors = errors.Join(ruleErrs...)
	if out.RuleErrors != nil {
		p.log.Warn("rule evaluation reported errors", "user_id", in.UserID, "error", out.RuleErrors)
	}

	p.log.Debug("learner refreshed",
		"user_id", in.UserID,
		"topics", out.Topics,
		"schedules", out.Schedules,
		"reviewed", out.Reviewed,
		"grade", out.Grade,
		"triggers", len(triggers),
	)
	return out, nil
}

// Evaluate runs one trigger against the user's freshly refreshed metrics without touching
// mastery, schedules or grades.
func (p *Pipeline) Evaluate(ctx context.Context, userID uuid.UUID, trigger types.Trigger, now time.Time, snapCtx map[string]string) ([]coaching.Suggestion, error) {
	if p == nil || p.db == nil || p.log == nil || !p.repos.complete() || p.engine == nil || p.book == nil {
		return nil, fmt.Errorf("learner_refresh: missing deps")
	}
	perf, err := performance.Refresh(ctx, performance.RefreshDeps{
		DB:        p.db,
		Log:       p.log,
		Attempts:  p.repos.Attempts,
		Tests:     p.repos.Tests,
		Subjects:  p.repos.Subjects,
		Schedules: p.repos.Schedules,
		Snapshots: p.repos.Snapshots,
	}, performance.RefreshInput{UserID: userID, Now: now, Context: snapCtx})
	if err != nil {
		return nil, err
	}
	sugs, err := p.engine.EvaluateRules(ctx, trigger, perf.Metrics, p.book)
	for _, s := range sugs {
		p.metrics.IncSuggestion(string(trigger), s.RuleID, string(s.SuggestionType))
	}
	return sugs, err
}

func (p *Pipeline) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := observability.StartSpan(ctx, "learner_refresh."+name, attribute.String("stage", name))
	start := time.Now()
	err := fn(ctx)
	status := "ok"
	if err != nil {
		status = "error"
	}
	p.metrics.ObserveStage(name, status, time.Since(start))
	observability.EndSpan(span, err)
	return err
}

func (p *Pipeline) countRuleErrors(err error) {
	if err == nil {
		return
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			p.countRuleErrors(e)
		}
		return
	}
	p.metrics.IncRuleError(string(apperr.KindOf(err)))
}
