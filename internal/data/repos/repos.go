package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/prepcoach-backend/internal/data/repos/learning"
	"github.com/yungbote/prepcoach-backend/internal/platform/logger"
)

type AttemptRepo = learning.AttemptRepo
type TestResultRepo = learning.TestResultRepo

type TopicMasteryRepo = learning.TopicMasteryRepo
type SubjectMasteryRepo = learning.SubjectMasteryRepo
type ReviewScheduleRepo = learning.ReviewScheduleRepo

type PerformanceSnapshotRepo = learning.PerformanceSnapshotRepo
type StudentGradeRepo = learning.StudentGradeRepo
type SuggestionEventRepo = learning.SuggestionEventRepo

func NewAttemptRepo(db *gorm.DB, baseLog *logger.Logger) AttemptRepo {
	return learning.NewAttemptRepo(db, baseLog)
}
func NewTestResultRepo(db *gorm.DB, baseLog *logger.Logger) TestResultRepo {
	return learning.NewTestResultRepo(db, baseLog)
}

func NewTopicMasteryRepo(db *gorm.DB, baseLog *logger.Logger) TopicMasteryRepo {
	return learning.NewTopicMasteryRepo(db, baseLog)
}
func NewSubjectMasteryRepo(db *gorm.DB, baseLog *logger.Logger) SubjectMasteryRepo {
	return learning.NewSubjectMasteryRepo(db, baseLog)
}
func NewReviewScheduleRepo(db *gorm.DB, baseLog *logger.Logger) ReviewScheduleRepo {
	return learning.NewReviewScheduleRepo(db, baseLog)
}

func NewPerformanceSnapshotRepo(db *gorm.DB, baseLog *logger.Logger) PerformanceSnapshotRepo {
	return learning.NewPerformanceSnapshotRepo(db, baseLog)
}
func NewStudentGradeRepo(db *gorm.DB, baseLog *logger.Logger) StudentGradeRepo {
	return learning.NewStudentGradeRepo(db, baseLog)
}
func NewSuggestionEventRepo(db *gorm.DB, baseLog *logger.Logger) SuggestionEventRepo {
	return learning.NewSuggestionEventRepo(db, baseLog)
}
