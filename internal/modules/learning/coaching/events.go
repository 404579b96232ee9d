package coaching

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/prepcoach-backend/internal/data/repos"
	types "github.com/yungbote/prepcoach-backend/internal/domain"
	"github.com/yungbote/prepcoach-backend/internal/platform/dbctx"
)

// EventStore backs suppression with the suggestion_event table: LastFiredAt reads the newest
// event per (user, rule) and RecordFired appends one row per returned suggestion.
type EventStore struct {
	Events repos.SuggestionEventRepo
}

func NewEventStore(events repos.SuggestionEventRepo) *EventStore {
	return &EventStore{Events: events}
}

func (s *EventStore) LastFiredAt(ctx context.Context, userID uuid.UUID, ruleID string) (*time.Time, error) {
	return s.Events.LastFiredAt(dbctx.Context{Ctx: ctx}, userID, ruleID)
}

func (s *EventStore) RecordFired(ctx context.Context, userID uuid.UUID, bookVersion string, firedAt time.Time, out []Suggestion) error {
	if userID == uuid.Nil || len(out) == 0 {
		return nil
	}
	rows := make([]*types.SuggestionEvent, 0, len(out))
	for _, s := range out {
		ev := &types.SuggestionEvent{
			UserID:          userID,
			RuleID:          s.RuleID,
			Category:        s.Category,
			Trigger:         s.Trigger,
			SuggestionType:  s.SuggestionType,
			Message:         s.Message,
			RuleBookVersion: bookVersion,
			FiredAt:         firedAt.UTC(),
			ActiveUntil:     s.ActiveUntil.UTC(),
			CreatedAt:       firedAt.UTC(),
		}
		ev.SetContext(s.Context)
		rows = append(rows, ev)
	}
	_, err := s.Events.Create(dbctx.Context{Ctx: ctx}, rows)
	return err
}

// Recorders fans RecordFired out to several stores, e.g. the event log and a cooldown cache.
type Recorders []FiredRecorder

func (rs Recorders) RecordFired(ctx context.Context, userID uuid.UUID, bookVersion string, firedAt time.Time, out []Suggestion) error {
	for _, r := range rs {
		if r == nil {
			continue
		}
		if err := r.RecordFired(ctx, userID, bookVersion, firedAt, out); err != nil {
			return err
		}
	}
	return nil
}

// Lookups asks each store in turn and returns the first recorded fire time. A failing store is
// skipped; the lookup only fails when every store failed.
type Lookups []LastFiredLookup

func (ls Lookups) LastFiredAt(ctx context.Context, userID uuid.UUID, ruleID string) (*time.Time, error) {
	var errs []error
	for _, l := range ls {
		if l == nil {
			continue
		}
		at, err := l.LastFiredAt(ctx, userID, ruleID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if at != nil {
			return at, nil
		}
	}
	if len(errs) > 0 && len(errs) == ls.count() {
		return nil, errors.Join(errs...)
	}
	return nil, nil
}

func (ls Lookups) count() int {
	n := 0
	for _, l := range ls {
		if l != nil {
			n++
		}
	}
	return n
}
