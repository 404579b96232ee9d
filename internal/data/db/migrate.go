package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/prepcoach-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		// Attempt log + tests (written by the exam app, read here)
		&types.Attempt{},
		&types.TestResult{},

		// Mastery + scheduling
		&types.TopicMastery{},
		&types.SubjectMastery{},
		&types.ReviewSchedule{},

		// Rolling summaries + grade write-back
		&types.UserPerformanceSnapshot{},
		&types.StudentGrade{},

		// Coaching
		&types.SuggestionEvent{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
