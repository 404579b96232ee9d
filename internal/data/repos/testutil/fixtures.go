package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/prepcoach-backend/internal/domain"
)

// Day returns midnight UTC of the given date.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// SeedAttempts inserts one attempt per entry of outcomes, an hour apart starting at start.
func SeedAttempts(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, subjectID, topicID string, start time.Time, outcomes ...bool) []*types.Attempt {
	tb.Helper()
	rows := make([]*types.Attempt, 0, len(outcomes))
	for i, ok := range outcomes {
		rows = append(rows, &types.Attempt{
			ID:               uuid.New(),
			UserID:           userID,
			SubjectID:        subjectID,
			TopicID:          topicID,
			IsCorrect:        ok,
			TimingSeconds:    50,
			IdealTimeSeconds: 60,
			SolvedAt:         start.Add(time.Duration(i) * time.Hour),
		})
	}
	if len(rows) == 0 {
		return rows
	}
	if err := tx.WithContext(ctx).Create(&rows).Error; err != nil {
		tb.Fatalf("seed attempts: %v", err)
	}
	return rows
}

func SeedTopicMastery(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, subjectID, topicID string, mastery, strength float64) *types.TopicMastery {
	tb.Helper()
	row := &types.TopicMastery{
		ID:            uuid.New(),
		UserID:        userID,
		SubjectID:     subjectID,
		TopicID:       topicID,
		MasteryLevel:  mastery,
		StrengthIndex: strength,
	}
	if err := tx.WithContext(ctx).Create(row).Error; err != nil {
		tb.Fatalf("seed topic mastery: %v", err)
	}
	return row
}

func SeedTestResult(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, score float64, completedAt time.Time) *types.TestResult {
	tb.Helper()
	row := &types.TestResult{
		ID:          uuid.New(),
		UserID:      userID,
		TestID:      "mock-" + uuid.NewString()[:8],
		Score:       score,
		CompletedAt: completedAt,
	}
	if err := tx.WithContext(ctx).Create(row).Error; err != nil {
		tb.Fatalf("seed test result: %v", err)
	}
	return row
}

func PtrTime(t time.Time) *time.Time { return &t }
