package coaching

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/prepcoach-backend/internal/domain"
	"github.com/yungbote/prepcoach-backend/internal/platform/apperr"
	"github.com/yungbote/prepcoach-backend/internal/platform/logger"
)

// LastFiredLookup answers when a rule last fired for a user. nil means never.
// It is consulted on every evaluation; implementations must not cache.
type LastFiredLookup interface {
	LastFiredAt(ctx context.Context, userID uuid.UUID, ruleID string) (*time.Time, error)
}

type LastFiredFunc func(ctx context.Context, userID uuid.UUID, ruleID string) (*time.Time, error)

func (f LastFiredFunc) LastFiredAt(ctx context.Context, userID uuid.UUID, ruleID string) (*time.Time, error) {
	return f(ctx, userID, ruleID)
}

// FiredRecorder persists suggestions the engine returned so later lookups see them.
type FiredRecorder interface {
	RecordFired(ctx context.Context, userID uuid.UUID, bookVersion string, firedAt time.Time, out []Suggestion) error
}

type FanOut string

const (
	FanOutTop1        FanOut = "top1"
	FanOutTopN        FanOut = "top_n"
	FanOutPerCategory FanOut = "per_category"
)

// Policy decides how many matched rules survive. Limit applies to top_n (<= 0 keeps all)
// and caps per_category output when > 0.
type Policy struct {
	Mode  FanOut
	Limit int
}

func (p Policy) Valid() bool {
	switch p.Mode {
	case FanOutTop1, FanOutTopN, FanOutPerCategory:
		return true
	default:
		return false
	}
}

type Suggestion struct {
	RuleID         string
	Category       string
	Message        string
	SuggestionType types.SuggestionType
	Priority       int
	Trigger        types.Trigger
	ActiveUntil    time.Time
	Context        map[string]string
}

type Engine struct {
	log      *logger.Logger
	lookup   LastFiredLookup
	recorder FiredRecorder
	policy   Policy
	now      func() time.Time
}

type Option func(*Engine)

func WithPolicy(p Policy) Option {
	return func(e *Engine) {
		if p.Valid() {
			e.policy = p
		}
	}
}

func WithRecorder(r FiredRecorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithClock sets the time used when a snapshot carries none.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func NewEngine(baseLog *logger.Logger, lookup LastFiredLookup, opts ...Option) *Engine {
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	e := &Engine{
		log:    baseLog.With("service", "CoachingEngine"),
		lookup: lookup,
		policy: Policy{Mode: FanOutTop1},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Policy() Policy { return e.policy }

type candidate struct {
	rule *Rule
	sug  Suggestion
}

// EvaluateRules returns the suggestions the trigger surfaces for the snapshot's user,
// highest precedence first. Per-rule failures never abort evaluation: condition errors are
// logged and skipped, while template and last-fired lookup failures are skipped and joined
// into the returned error next to whatever suggestions did resolve.
func (e *Engine) EvaluateRules(ctx context.Context, trigger types.Trigger, snap MetricsSnapshot, book *RuleBook) ([]Suggestion, error) {
	if book == nil {
		return nil, apperr.Validation("evaluate_rules", "rule book is required")
	}
	if !trigger.Valid() {
		return nil, apperr.Validation("evaluate_rules", "unknown trigger %q", trigger)
	}
	now := snap.Now
	if now.IsZero() {
		now = e.now()
		snap.Now = now
	}
	log := e.log.With("trigger", string(trigger), "user_id", snap.UserID.String(), "rule_book", book.Version)

	var (
		matched []candidate
		errs    []error
	)
	for _, r := range book.Rules() {
		if !r.HasTrigger(trigger) {
			continue
		}
		ok, binds, err := r.Condition.Evaluate(snap)
		if err != nil {
			log.Warn("rule condition failed; skipping", "rule_id", r.ID, "error", err)
			continue
		}
		if !ok {
			continue
		}
		suppressed, err := e.suppressed(ctx, snap.UserID, r, now)
		if err != nil {
			log.Warn("last-fired lookup failed; skipping", "rule_id", r.ID, "error", err)
			errs = append(errs, fmt.Errorf("rule %s: last fired lookup: %w", r.ID, err))
			continue
		}
		if suppressed {
			log.Debug("rule suppressed", "rule_id", r.ID)
			continue
		}
		vars := templateVars(snap.Context, binds)
		msg, err := Render(r.ID, r.Action, vars)
		if err != nil {
			log.Warn("rule template unresolved; skipping", "rule_id", r.ID, "error", err)
			errs = append(errs, err)
			continue
		}
		matched = append(matched, candidate{
			rule: r,
			sug: Suggestion{
				RuleID:         r.ID,
				Category:       r.Category(),
				Message:        msg,
				SuggestionType: r.SuggestionType,
				Priority:       r.Priority,
				Trigger:        trigger,
				ActiveUntil:    now.AddDate(0, 0, r.DurationDays),
				Context:        binds,
			},
		})
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].rule.Priority != matched[j].rule.Priority {
			return matched[i].rule.Priority < matched[j].rule.Priority
		}
		return matched[i].rule.order < matched[j].rule.order
	})
	out := e.fanOut(matched)

	if e.recorder != nil && len(out) > 0 {
		if err := e.recorder.RecordFired(ctx, snap.UserID, book.Version, now, out); err != nil {
			log.Error("record fired suggestions failed", "error", err)
			errs = append(errs, fmt.Errorf("record fired: %w", err))
		}
	}
	log.Debug("rules evaluated", "matched", len(matched), "returned", len(out))
	return out, errors.Join(errs...)
}

func (e *Engine) suppressed(ctx context.Context, userID uuid.UUID, r *Rule, now time.Time) (bool, error) {
	if e.lookup == nil || r.DurationDays <= 0 {
		return false, nil
	}
	last, err := e.lookup.LastFiredAt(ctx, userID, r.ID)
	if err != nil {
		return false, err
	}
	if last == nil {
		return false, nil
	}
	return now.Before(last.AddDate(0, 0, r.DurationDays)), nil
}

func (e *Engine) fanOut(sorted []candidate) []Suggestion {
	out := []Suggestion{}
	switch e.policy.Mode {
	case FanOutTopN:
		for _, c := range sorted {
			if e.policy.Limit > 0 && len(out) >= e.policy.Limit {
				break
			}
			out = append(out, c.sug)
		}
	case FanOutPerCategory:
		seen := map[string]bool{}
		for _, c := range sorted {
			if seen[c.sug.Category] {
				continue
			}
			if e.policy.Limit > 0 && len(out) >= e.policy.Limit {
				break
			}
			seen[c.sug.Category] = true
			out = append(out, c.sug)
		}
	default:
		if len(sorted) > 0 {
			out = append(out, sorted[0].sug)
		}
	}
	return out
}
