package performance

import (
	"sort"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/prepcoach-backend/internal/domain"
	"github.com/yungbote/prepcoach-backend/internal/modules/learning/coaching"
)

type window struct {
	period   string
	from, to time.Time // [from, to)
}

// windows are anchored on calendar days in now's location; "daily" is today so far.
func windows(now time.Time) []window {
	today := startOfDay(now)
	end := now.Add(time.Nanosecond)
	return []window{
		{coaching.PeriodDaily, today, end},
		{coaching.PeriodPreviousDaily, today.AddDate(0, 0, -1), today},
		{coaching.PeriodThreeDay, today.AddDate(0, 0, -2), end},
		{coaching.PeriodWeekly, today.AddDate(0, 0, -6), end},
		{coaching.PeriodPreviousWeekly, today.AddDate(0, 0, -13), today.AddDate(0, 0, -6)},
		{coaching.PeriodMonthly, today.AddDate(0, 0, -29), end},
		{coaching.PeriodOverall, time.Time{}, end},
	}
}

type MetricsInput struct {
	UserID   uuid.UUID
	Now      time.Time
	Attempts []*types.Attempt
	Tests    []*types.TestResult
	Subjects []*types.SubjectMastery
	// DueReviews is how many review schedules are due at Now.
	DueReviews int
	Context    map[string]string
}

type tally struct {
	total, correct int
	seconds        float64
}

func (t *tally) add(a *types.Attempt) {
	t.total++
	if a.IsCorrect {
		t.correct++
	}
	t.seconds += a.TimingSeconds
}

// BuildMetrics computes the rule engine's view of a user:
//
//	accuracy, avg_time        per window, overall and per subject, when there were attempts
//	questions, study_minutes  per window overall (zero included) and per subject with attempts
//	test_score                latest and recent (mean of the recent tests), overall
//	mastery                   overall, per subject and averaged
//	reviews_due               overall
func BuildMetrics(in MetricsInput) coaching.MetricsSnapshot {
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	snap := coaching.MetricsSnapshot{
		UserID:       in.UserID,
		Now:          now,
		Values:       map[string]float64{},
		DaysInactive: -1,
		Context:      in.Context,
	}

	subjects := map[string]bool{}
	var times []time.Time
	var last time.Time
	for _, a := range in.Attempts {
		if a == nil {
			continue
		}
		if a.SubjectID != "" {
			subjects[a.SubjectID] = true
		}
		times = append(times, a.SolvedAt)
		if a.SolvedAt.After(last) {
			last = a.SolvedAt
		}
	}
	for _, s := range in.Subjects {
		if s != nil && s.SubjectID != "" {
			subjects[s.SubjectID] = true
		}
	}
	for s := range subjects {
		snap.Subjects = append(snap.Subjects, s)
	}
	sort.Strings(snap.Subjects)

	for _, w := range windows(now) {
		overall := tally{}
		bySubject := map[string]*tally{}
		for _, a := range in.Attempts {
			if a == nil || a.SolvedAt.Before(w.from) || !a.SolvedAt.Before(w.to) {
				continue
			}
			overall.add(a)
			if a.SubjectID != "" {
				t := bySubject[a.SubjectID]
				if t == nil {
					t = &tally{}
					bySubject[a.SubjectID] = t
				}
				t.add(a)
			}
		}
		setTally(&snap, w.period, "", overall, true)
		for subject, t := range bySubject {
			setTally(&snap, w.period, subject, *t, false)
		}
	}

	recent := newestTests(in.Tests, RecentTests)
	if len(recent) > 0 {
		sum := 0.0
		for _, t := range recent {
			sum += t.Score
		}
		snap.Set("test_score", coaching.PeriodLatest, "", recent[0].Score)
		snap.Set("test_score", coaching.PeriodRecent, "", round2(sum/float64(len(recent))))
	}

	masterySum, masteryN := 0.0, 0
	for _, s := range in.Subjects {
		if s == nil || s.SubjectID == "" {
			continue
		}
		snap.Set("mastery", coaching.PeriodOverall, s.SubjectID, s.MasteryLevel)
		masterySum += s.MasteryLevel
		masteryN++
	}
	if masteryN > 0 {
		snap.Set("mastery", coaching.PeriodOverall, "", round2(masterySum/float64(masteryN)))
	}
	snap.Set("reviews_due", coaching.PeriodOverall, "", float64(in.DueReviews))

	snap.StreakDays, snap.PreviousStreakDays = Streaks(ActiveDays(times, now.Location()), now)
	if !last.IsZero() {
		at := last
		snap.LastActiveAt = &at
		snap.DaysInactive = DaysBetween(last, now)
	}
	return snap
}

func setTally(snap *coaching.MetricsSnapshot, period, subject string, t tally, withZero bool) {
	if t.total == 0 {
		if withZero {
			snap.Set("questions", period, subject, 0)
			snap.Set("study_minutes", period, subject, 0)
		}
		return
	}
	snap.Set("questions", period, subject, float64(t.total))
	snap.Set("study_minutes", period, subject, round2(t.seconds/60))
	snap.Set("accuracy", period, subject, percent(t.correct, t.total))
	snap.Set("avg_time", period, subject, round2(t.seconds/float64(t.total)))
}
