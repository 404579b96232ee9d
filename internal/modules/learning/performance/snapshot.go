package performance

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/prepcoach-backend/internal/domain"
)

// RecentTests is how many test scores the snapshot keeps.
const RecentTests = 10

// BuildSnapshot summarises a user's lifetime attempts and recent tests. tests may arrive in
// any order; the snapshot keeps the newest RecentTests scores oldest first.
func BuildSnapshot(userID uuid.UUID, attempts []*types.Attempt, tests []*types.TestResult, now time.Time) *types.UserPerformanceSnapshot {
	snap := &types.UserPerformanceSnapshot{
		UserID:     userID,
		ComputedAt: now,
		UpdatedAt:  now,
	}

	total, correct := 0, 0
	perSubject := map[string][2]int{}
	times := make([]time.Time, 0, len(attempts))
	for _, a := range attempts {
		if a == nil {
			continue
		}
		total++
		c := perSubject[a.SubjectID]
		c[1]++
		if a.IsCorrect {
			correct++
			c[0]++
		}
		perSubject[a.SubjectID] = c
		times = append(times, a.SolvedAt)
	}
	snap.Accuracy = percent(correct, total)

	subjectAcc := make(map[string]float64, len(perSubject))
	for subject, c := range perSubject {
		if subject == "" {
			continue
		}
		subjectAcc[subject] = percent(c[0], c[1])
	}
	snap.SetSubjectAccuracy(subjectAcc)

	recent := newestTests(tests, RecentTests)
	scores := make([]float64, 0, len(recent))
	sum := 0.0
	for i := len(recent) - 1; i >= 0; i-- {
		scores = append(scores, recent[i].Score)
		sum += recent[i].Score
	}
	if len(scores) > 0 {
		snap.AvgScore = round2(sum / float64(len(scores)))
	}
	snap.SetTestScores(scores)

	snap.StreakDays, _ = Streaks(ActiveDays(times, now.Location()), now)
	return snap
}

// newestTests returns up to n tests, newest first.
func newestTests(tests []*types.TestResult, n int) []*types.TestResult {
	out := make([]*types.TestResult, 0, len(tests))
	for _, t := range tests {
		if t != nil {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CompletedAt.After(out[j].CompletedAt)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func percent(num, den int) float64 {
	if den <= 0 {
		return 0
	}
	return round2(float64(num) / float64(den) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
