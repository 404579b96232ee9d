package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Attempt is one solved question. Rows are append-only.
type Attempt struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index:idx_attempt_user_topic,priority:1;index:idx_attempt_user_solved,priority:1" json:"user_id" validate:"required"`
	TopicID   string    `gorm:"column:topic_id;not null;index:idx_attempt_user_topic,priority:2" json:"topic_id" validate:"required"`
	SubjectID string    `gorm:"column:subject_id;not null;index" json:"subject_id" validate:"required"`

	IsCorrect     bool    `gorm:"column:is_correct;not null" json:"is_correct"`
	TimingSeconds float64 `gorm:"column:timing_seconds;not null" json:"timing_seconds" validate:"gte=0"`
	// IdealTimeSeconds is the question's expected solve time; 0 means unknown.
	IdealTimeSeconds float64 `gorm:"column:ideal_time_seconds;not null;default:0" json:"ideal_time_seconds" validate:"gte=0"`

	SolvedAt  time.Time `gorm:"column:solved_at;not null;index:idx_attempt_user_solved,priority:2" json:"solved_at" validate:"required"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (Attempt) TableName() string { return "attempt" }

func (a *Attempt) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// TestResult is a completed mock test, scored 0..100.
type TestResult struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index:idx_test_result_user_completed,priority:1" json:"user_id"`
	TestID      string    `gorm:"column:test_id;not null" json:"test_id"`
	Score       float64   `gorm:"column:score;not null" json:"score"`
	CompletedAt time.Time `gorm:"column:completed_at;not null;index:idx_test_result_user_completed,priority:2" json:"completed_at"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}

func (TestResult) TableName() string { return "test_result" }

func (r *TestResult) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
