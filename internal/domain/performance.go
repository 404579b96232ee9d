package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UserPerformanceSnapshot is the rolling per-user summary. It is overwritten on every refresh.
// Accuracy and AvgScore are percentages (0..100).
type UserPerformanceSnapshot struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	Accuracy   float64   `gorm:"column:accuracy;not null;default:0" json:"accuracy"`
	AvgScore   float64   `gorm:"column:avg_score;not null;default:0" json:"avg_score"`
	StreakDays int       `gorm:"column:streak_days;not null;default:0" json:"streak_days"`

	RecentTestScores    datatypes.JSON `gorm:"type:jsonb;column:recent_test_scores" json:"recent_test_scores"`
	SubjectWiseAccuracy datatypes.JSON `gorm:"type:jsonb;column:subject_wise_accuracy" json:"subject_wise_accuracy"`

	ComputedAt time.Time `gorm:"column:computed_at;not null" json:"computed_at"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`
}

func (UserPerformanceSnapshot) TableName() string { return "user_performance_snapshot" }

func (s *UserPerformanceSnapshot) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (s *UserPerformanceSnapshot) TestScores() []float64 {
	out := []float64{}
	if s == nil {
		return out
	}
	_ = decodeJSON(s.RecentTestScores, &out)
	return out
}

func (s *UserPerformanceSnapshot) SetTestScores(scores []float64) {
	if scores == nil {
		scores = []float64{}
	}
	s.RecentTestScores = encodeJSON(scores)
}

func (s *UserPerformanceSnapshot) SubjectAccuracy() map[string]float64 {
	out := map[string]float64{}
	if s == nil {
		return out
	}
	_ = decodeJSON(s.SubjectWiseAccuracy, &out)
	return out
}

func (s *UserPerformanceSnapshot) SetSubjectAccuracy(m map[string]float64) {
	if m == nil {
		m = map[string]float64{}
	}
	s.SubjectWiseAccuracy = encodeJSON(m)
}
