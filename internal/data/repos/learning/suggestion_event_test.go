package learning

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/prepcoach-backend/internal/data/repos/testutil"
	types "github.com/yungbote/prepcoach-backend/internal/domain"
	"github.com/yungbote/prepcoach-backend/internal/platform/dbctx"
)

func TestSuggestionEventRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewSuggestionEventRepo(db, testutil.Logger(t))

	userID := uuid.New()
	if last, err := repo.LastFiredAt(dbc, userID, "low_accuracy_daily"); err != nil || last != nil {
		t.Fatalf("LastFiredAt empty: got=%v err=%v", last, err)
	}

	first := testutil.Day(2024, time.January, 1)
	second := testutil.Day(2024, time.January, 5)
	mk := func(ruleID string, at time.Time) *types.SuggestionEvent {
		ev := &types.SuggestionEvent{
			UserID:         userID,
			RuleID:         ruleID,
			Category:       "performance",
			Trigger:        types.TriggerDailyCheck,
			SuggestionType: types.SuggestionWarning,
			Message:        "msg",
			FiredAt:        at,
			ActiveUntil:    at.AddDate(0, 0, 3),
		}
		ev.SetContext(map[string]string{"subject": "physics"})
		return ev
	}
	if _, err := repo.Create(dbc, []*types.SuggestionEvent{
		mk("low_accuracy_daily", first),
		mk("low_accuracy_daily", second),
		mk("streak_7", first),
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	last, err := repo.LastFiredAt(dbc, userID, "low_accuracy_daily")
	if err != nil || last == nil || !last.Equal(second) {
		t.Fatalf("LastFiredAt: got=%v err=%v", last, err)
	}
	if rows, err := repo.ListByUser(dbc, userID, 2); err != nil || len(rows) != 2 {
		t.Fatalf("ListByUser: err=%v len=%d", err, len(rows))
	}
}
