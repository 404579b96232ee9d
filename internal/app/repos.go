package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/prepcoach-backend/internal/data/repos"
	"github.com/yungbote/prepcoach-backend/internal/jobs/pipeline/learner_refresh"
	"github.com/yungbote/prepcoach-backend/internal/platform/logger"
)

type Repos struct {
	learner_refresh.Repos
	Events repos.SuggestionEventRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Repos: learner_refresh.Repos{
			Attempts:  repos.NewAttemptRepo(db, log),
			Tests:     repos.NewTestResultRepo(db, log),
			Topics:    repos.NewTopicMasteryRepo(db, log),
			Subjects:  repos.NewSubjectMasteryRepo(db, log),
			Schedules: repos.NewReviewScheduleRepo(db, log),
			Snapshots: repos.NewPerformanceSnapshotRepo(db, log),
			Grades:    repos.NewStudentGradeRepo(db, log),
		},
		Events: repos.NewSuggestionEventRepo(db, log),
	}
}
