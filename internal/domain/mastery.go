package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TopicMastery is one row per (user, topic). Rows are updated in place, never deleted.
type TopicMastery struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_topic_mastery_user_topic,priority:1" json:"user_id"`
	TopicID   string    `gorm:"column:topic_id;not null;uniqueIndex:idx_topic_mastery_user_topic,priority:2" json:"topic_id"`
	SubjectID string    `gorm:"column:subject_id;not null;index" json:"subject_id"`

	MasteryLevel    float64    `gorm:"column:mastery_level;not null;default:0" json:"mastery_level"`   // 0..100
	StrengthIndex   float64    `gorm:"column:strength_index;not null;default:0" json:"strength_index"` // 0..100
	TotalAttempts   int        `gorm:"column:total_attempts;not null;default:0" json:"total_attempts"`
	CorrectAttempts int        `gorm:"column:correct_attempts;not null;default:0" json:"correct_attempts"`
	AvgTimeSeconds  float64    `gorm:"column:avg_time_seconds;not null;default:0" json:"avg_time_seconds"`
	LastPracticedAt *time.Time `gorm:"column:last_practiced_at;index" json:"last_practiced_at,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (TopicMastery) TableName() string { return "topic_mastery" }

func (m *TopicMastery) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Accuracy returns correct/total as a ratio, 0 when nothing was attempted.
func (m *TopicMastery) Accuracy() float64 {
	if m == nil || m.TotalAttempts == 0 {
		return 0
	}
	return float64(m.CorrectAttempts) / float64(m.TotalAttempts)
}

// SubjectMastery is the mean mastery of the topics under a subject.
type SubjectMastery struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_subject_mastery_user_subject,priority:1" json:"user_id"`
	SubjectID    string    `gorm:"column:subject_id;not null;uniqueIndex:idx_subject_mastery_user_subject,priority:2" json:"subject_id"`
	MasteryLevel float64   `gorm:"column:mastery_level;not null;default:0" json:"mastery_level"`
	TopicCount   int       `gorm:"column:topic_count;not null;default:0" json:"topic_count"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null" json:"updated_at"`
}

func (SubjectMastery) TableName() string { return "subject_mastery" }

func (m *SubjectMastery) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
