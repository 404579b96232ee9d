package learner_refresh

import (
	"time"

	types "github.com/yungbote/prepcoach-backend/internal/domain"
)

// StreakMilestoneEvery is the streak length, in days, whose multiples raise STREAK_MILESTONE.
const StreakMilestoneEvery = 7

// TriggersFor lists the scheduled triggers a sweep evaluates for one user on now's calendar
// day. POST_TEST and REAL_TIME come from user actions and are never scheduled.
func TriggersFor(now time.Time, streakDays int) []types.Trigger {
	out := []types.Trigger{types.TriggerDailyCheck, types.TriggerInactivity}
	if now.Weekday() == time.Monday {
		out = append(out, types.TriggerWeeklySummary)
	}
	if now.Day() == 1 || now.AddDate(0, 0, 1).Day() == 1 {
		out = append(out, types.TriggerMonthlyReview)
	}
	if streakDays > 0 && streakDays%StreakMilestoneEvery == 0 {
		out = append(out, types.TriggerStreakMilestone)
	}
	return out
}
