package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SuggestionType string

const (
	SuggestionWarning       SuggestionType = "WARNING"
	SuggestionGuidance      SuggestionType = "GUIDANCE"
	SuggestionCelebration   SuggestionType = "CELEBRATION"
	SuggestionEncouragement SuggestionType = "ENCOURAGEMENT"
	SuggestionReminder      SuggestionType = "REMINDER"
	SuggestionMotivation    SuggestionType = "MOTIVATION"
)

func (t SuggestionType) Valid() bool {
	switch t {
	case SuggestionWarning, SuggestionGuidance, SuggestionCelebration,
		SuggestionEncouragement, SuggestionReminder, SuggestionMotivation:
		return true
	default:
		return false
	}
}

type Trigger string

const (
	TriggerDailyCheck      Trigger = "DAILY_CHECK"
	TriggerPostTest        Trigger = "POST_TEST"
	TriggerStreakMilestone Trigger = "STREAK_MILESTONE"
	TriggerInactivity      Trigger = "INACTIVITY"
	TriggerWeeklySummary   Trigger = "WEEKLY_SUMMARY"
	TriggerMonthlyReview   Trigger = "MONTHLY_REVIEW"
	TriggerRealTime        Trigger = "REAL_TIME"
)

var AllTriggers = []Trigger{
	TriggerDailyCheck,
	TriggerPostTest,
	TriggerStreakMilestone,
	TriggerInactivity,
	TriggerWeeklySummary,
	TriggerMonthlyReview,
	TriggerRealTime,
}

func (t Trigger) Valid() bool {
	for _, known := range AllTriggers {
		if t == known {
			return true
		}
	}
	return false
}

// SuggestionEvent records a delivered suggestion. The latest FiredAt per (user, rule)
// drives cooldown suppression.
type SuggestionEvent struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID      `gorm:"type:uuid;not null;index:idx_suggestion_event_user_rule,priority:1" json:"user_id"`
	RuleID          string         `gorm:"column:rule_id;not null;index:idx_suggestion_event_user_rule,priority:2" json:"rule_id"`
	Category        string         `gorm:"column:category;not null" json:"category"`
	Trigger         Trigger        `gorm:"column:trigger;type:varchar(32);not null" json:"trigger"`
	SuggestionType  SuggestionType `gorm:"column:suggestion_type;type:varchar(32);not null" json:"suggestion_type"`
	Message         string         `gorm:"column:message;not null" json:"message"`
	Context         datatypes.JSON `gorm:"type:jsonb;column:context" json:"context,omitempty"`
	RuleBookVersion string         `gorm:"column:rule_book_version" json:"rule_book_version"`
	FiredAt         time.Time      `gorm:"column:fired_at;not null;index:idx_suggestion_event_user_rule,priority:3" json:"fired_at"`
	ActiveUntil     time.Time      `gorm:"column:active_until;not null" json:"active_until"`
	CreatedAt       time.Time      `gorm:"not null" json:"created_at"`
}

func (SuggestionEvent) TableName() string { return "suggestion_event" }

func (e *SuggestionEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

func (e *SuggestionEvent) SetContext(ctx map[string]string) {
	e.Context = encodeJSON(ctx)
}
