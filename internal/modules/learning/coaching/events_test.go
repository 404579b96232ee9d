package coaching

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
	"github.com/yungbote/prepcoach-backend/internal/platform/dbctx"
)

func TestEventStoreSuppressesUntilWindowElapses(t *testing.T) {
	db := testutil.FreshDB(t)
	log := testutil.Logger(t)
	events := repos.NewSuggestionEventRepo(db, log)
	store := NewEventStore(events)

	book, err := Embedded()
	require.NoError(t, err)
	eng := NewEngine(log, store, WithRecorder(store))
	ctx := context.Background()
	snap := physicsSnapshot()

	out, err := eng.EvaluateRules(ctx, types.TriggerDailyCheck, snap, book)
	require.NoError(t, err)
	require.Len(t, out, 1)

	stored, err := events.ListByUser(dbctx.Context{Ctx: ctx}, snap.UserID, 0)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "accuracy_daily_low", stored[0].RuleID)
	assert.Equal(t, book.Version, stored[0].RuleBookVersion)

	snap.Now = wednesday.Add(6 * time.Hour)
	out, err = eng.EvaluateRules(ctx, types.TriggerDailyCheck, snap, book)
	require.NoError(t, err)
	assert.Empty(t, out, "same rule inside its one-day window")

	snap.Now = wednesday.AddDate(0, 0, 1)
	out, err = eng.EvaluateRules(ctx, types.TriggerDailyCheck, snap, book)
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestLookupsFallThrough(t *testing.T) {
	fired := time.Date(2024, time.January, 9, 8, 0, 0, 0, time.UTC)
	down := LastFiredFunc(func(context.Context, uuid.UUID, string) (*time.Time, error) {
		return nil, errors.New("redis: connection refused")
	})
	empty := LastFiredFunc(func(context.Context, uuid.UUID, string) (*time.Time, error) { return nil, nil })
	hit := LastFiredFunc(func(context.Context, uuid.UUID, string) (*time.Time, error) { return &fired, nil })

	at, err := Lookups{down, empty, hit}.LastFiredAt(context.Background(), uuid.New(), "r")
	require.NoError(t, err)
	require.NotNil(t, at)
	assert.Equal(t, fired, *at)

	at, err = Lookups{empty, nil}.LastFiredAt(context.Background(), uuid.New(), "r")
	require.NoError(t, err)
	assert.Nil(t, at)

	_, err = Lookups{down}.LastFiredAt(context.Background(), uuid.New(), "r")
	require.Error(t, err)
}
