package performance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/prepcoach-backend/internal/data/repos"
	types "github.com/yungbote/prepcoach-backend/internal/domain"
	"github.com/yungbote/prepcoach-backend/internal/modules/learning/coaching"
	"github.com/yungbote/prepcoach-backend/internal/platform/dbctx"
	"github.com/yungbote/prepcoach-backend/internal/platform/logger"
)

type RefreshDeps struct {
	DB        *gorm.DB
	Log       *logger.Logger
	Attempts  repos.AttemptRepo
	Tests     repos.TestResultRepo
	Subjects  repos.SubjectMasteryRepo
	Schedules repos.ReviewScheduleRepo
	Snapshots repos.PerformanceSnapshotRepo
}

type RefreshInput struct {
	UserID  uuid.UUID
	Now     time.Time
	Context map[string]string
}

type RefreshOutput struct {
	Snapshot *types.UserPerformanceSnapshot
	Metrics  coaching.MetricsSnapshot
}

// Refresh overwrites the user's performance snapshot and returns the metrics the rule engine
// evaluates. It reads subject mastery, so run it after mastery aggregation.
func Refresh(ctx context.Context, deps RefreshDeps, in RefreshInput) (RefreshOutput, error) {
	out := RefreshOutput{}
	if deps.DB == nil || deps.Log == nil || deps.Attempts == nil || deps.Tests == nil ||
		deps.Subjects == nil || deps.Schedules == nil || deps.Snapshots == nil {
		return out, fmt.Errorf("performance_refresh: missing deps")
	}
	if in.UserID == uuid.Nil {
		return out, fmt.Errorf("performance_refresh: missing user_id")
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	err := deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}

		attempts, err := deps.Attempts.ListByUser(dbc, in.UserID, nil)
		if err != nil {
			return fmt.Errorf("list attempts: %w", err)
		}
		tests, err := deps.Tests.ListRecent(dbc, in.UserID, RecentTests)
		if err != nil {
			return fmt.Errorf("list tests: %w", err)
		}
		subjects, err := deps.Subjects.ListByUser(dbc, in.UserID)
		if err != nil {
			return fmt.Errorf("list subject mastery: %w", err)
		}
		due, err := deps.Schedules.ListDue(dbc, in.UserID, now, 0)
		if err != nil {
			return fmt.Errorf("list due reviews: %w", err)
		}

		snap := BuildSnapshot(in.UserID, attempts, tests, now)
		if err := deps.Snapshots.Upsert(dbc, snap); err != nil {
			return fmt.Errorf("upsert snapshot: %w", err)
		}

		out.Snapshot = snap
		out.Metrics = BuildMetrics(MetricsInput{
			UserID:     in.UserID,
			Now:        now,
			Attempts:   attempts,
			Tests:      tests,
			Subjects:   subjects,
			DueReviews: len(due),
			Context:    in.Context,
		})
		return nil
	})
	if err != nil {
		return RefreshOutput{}, err
	}

	deps.Log.Debug("performance refreshed",
		"user_id", in.UserID,
		"accuracy", out.Snapshot.Accuracy,
		"streak_days", out.Snapshot.StreakDays,
	)
	return out, nil
}
