package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Grade string

const (
	GradeAPlus Grade = "A_PLUS"
	GradeA     Grade = "A"
	GradeB     Grade = "B"
	GradeC     Grade = "C"
	GradeD     Grade = "D"
)

func (g Grade) Valid() bool {
	switch g {
	case GradeAPlus, GradeA, GradeB, GradeC, GradeD:
		return true
	default:
		return false
	}
}

// StudentGrade is the last grade written back for a user. Degraded marks the C fallback
// produced when an upstream read failed.
type StudentGrade struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	Grade         Grade     `gorm:"column:grade;type:varchar(8);not null" json:"grade"`
	WeightedScore float64   `gorm:"column:weighted_score;not null;default:0" json:"weighted_score"`
	Degraded      bool      `gorm:"column:degraded;not null;default:false" json:"degraded"`
	ComputedAt    time.Time `gorm:"column:computed_at;not null" json:"computed_at"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null" json:"updated_at"`
}

func (StudentGrade) TableName() string { return "student_grade" }

func (g *StudentGrade) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}
