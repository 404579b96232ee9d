package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReviewSchedule holds the spaced-repetition state of one (user, topic).
// NextReviewAt is always the start of LastReviewedAt's day plus ReviewIntervalDays.
type ReviewSchedule struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_review_schedule_user_topic,priority:1;index:idx_review_schedule_user_next,priority:1" json:"user_id"`
	TopicID string    `gorm:"column:topic_id;not null;uniqueIndex:idx_review_schedule_user_topic,priority:2" json:"topic_id"`

	LastReviewedAt     time.Time `gorm:"column:last_reviewed_at;not null" json:"last_reviewed_at"`
	NextReviewAt       time.Time `gorm:"column:next_review_at;not null;index:idx_review_schedule_user_next,priority:2" json:"next_review_at"`
	ReviewIntervalDays int       `gorm:"column:review_interval_days;not null;default:1" json:"review_interval_days"`
	RetentionStrength  float64   `gorm:"column:retention_strength;not null" json:"retention_strength"` // 0..1
	CompletedReviews   int       `gorm:"column:completed_reviews;not null;default:0" json:"completed_reviews"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (ReviewSchedule) TableName() string { return "review_schedule" }

func (s *ReviewSchedule) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// IsDue reports whether the topic should be reviewed at now.
func (s *ReviewSchedule) IsDue(now time.Time) bool {
	return s != nil && !s.NextReviewAt.After(now)
}
