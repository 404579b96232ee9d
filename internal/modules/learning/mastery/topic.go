package mastery

import (
	"sort"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/prepcoach-backend/internal/domain"
	"github.com/yungbote/prepcoach-backend/internal/platform/apperr"
	"github.com/yungbote/prepcoach-backend/internal/platform/validate"
)

const (
	// RecentWindow is how many of the latest attempts feed the consistency half of the strength index.
	RecentWindow = 10

	strengthLifetimeWeight = 0.6
	strengthRecentWeight   = 0.4
)

// ComputeTopicMastery derives one TopicMastery row from a user's attempts on a topic.
//
// MasteryLevel is lifetime accuracy on a 0..100 scale. StrengthIndex blends lifetime accuracy
// with accuracy over the last RecentWindow attempts. Both are monotonic in accuracy and clamped
// to [0,100]. The result depends only on the attempt set, so recomputation is idempotent.
func ComputeTopicMastery(userID uuid.UUID, topicID string, attempts []*types.Attempt, now time.Time) (*types.TopicMastery, error) {
	if userID == uuid.Nil {
		return nil, apperr.Validation("topic_mastery", "missing user_id")
	}
	if topicID == "" {
		return nil, apperr.Validation("topic_mastery", "missing topic_id")
	}

	row := &types.TopicMastery{
		UserID:    userID,
		TopicID:   topicID,
		UpdatedAt: now.UTC(),
	}

	ordered := make([]*types.Attempt, 0, len(attempts))
	for _, a := range attempts {
		if a == nil {
			continue
		}
		if err := validate.Struct("attempt", a); err != nil {
			return nil, err
		}
		if a.UserID != userID || a.TopicID != topicID {
			return nil, apperr.Validation("attempt", "attempt %s belongs to %s/%s, not %s/%s", a.ID, a.UserID, a.TopicID, userID, topicID)
		}
		ordered = append(ordered, a)
	}
	if len(ordered) == 0 {
		return row, nil
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].SolvedAt.Equal(ordered[j].SolvedAt) {
			return ordered[i].ID.String() < ordered[j].ID.String()
		}
		return ordered[i].SolvedAt.Before(ordered[j].SolvedAt)
	})

	correct := 0
	totalTime := 0.0
	for _, a := range ordered {
		if a.IsCorrect {
			correct++
		}
		totalTime += a.TimingSeconds
	}
	total := len(ordered)
	accuracy := float64(correct) / float64(total)

	recent := ordered
	if len(recent) > RecentWindow {
		recent = recent[len(recent)-RecentWindow:]
	}
	recentCorrect := 0
	for _, a := range recent {
		if a.IsCorrect {
			recentCorrect++
		}
	}
	recentAccuracy := float64(recentCorrect) / float64(len(recent))

	last := ordered[len(ordered)-1].SolvedAt.UTC()

	row.SubjectID = ordered[len(ordered)-1].SubjectID
	row.TotalAttempts = total
	row.CorrectAttempts = correct
	row.AvgTimeSeconds = round2(totalTime / float64(total))
	row.MasteryLevel = clampRange(round2(accuracy*100), 0, 100)
	row.StrengthIndex = clampRange(round2((strengthLifetimeWeight*accuracy+strengthRecentWeight*recentAccuracy)*100), 0, 100)
	row.LastPracticedAt = &last
	return row, nil
}

// IdealTimeFor returns the mean known ideal time of the attempts, or fallback when none carry one.
func IdealTimeFor(attempts []*types.Attempt, fallback float64) float64 {
	sum := 0.0
	n := 0
	for _, a := range attempts {
		if a == nil || a.IdealTimeSeconds <= 0 {
			continue
		}
		sum += a.IdealTimeSeconds
		n++
	}
	if n == 0 {
		return fallback
	}
	return sum / float64(n)
}

// RetentionFor is ComputeRetentionStrength over a topic's attempts. The mean solve time is taken
// unrounded; the stored AvgTimeSeconds is rounded for display only.
func RetentionFor(attempts []*types.Attempt, fallbackIdealSeconds float64) float64 {
	correct, total := 0, 0
	totalTime := 0.0
	for _, a := range attempts {
		if a == nil {
			continue
		}
		total++
		if a.IsCorrect {
			correct++
		}
		totalTime += a.TimingSeconds
	}
	if total == 0 {
		return NeutralRetention
	}
	return ComputeRetentionStrength(correct, total, totalTime/float64(total), IdealTimeFor(attempts, fallbackIdealSeconds))
}

// SubjectMasteryFrom averages the topics of each subject. Output is ordered by subject id.
func SubjectMasteryFrom(userID uuid.UUID, topics []*types.TopicMastery) []*types.SubjectMastery {
	type acc struct {
		sum float64
		n   int
	}
	bySubject := map[string]*acc{}
	for _, t := range topics {
		if t == nil || t.SubjectID == "" {
			continue
		}
		a := bySubject[t.SubjectID]
		if a == nil {
			a = &acc{}
			bySubject[t.SubjectID] = a
		}
		a.sum += t.MasteryLevel
		a.n++
	}
	subjects := make([]string, 0, len(bySubject))
	for s := range bySubject {
		subjects = append(subjects, s)
	}
	sort.Strings(subjects)

	out := make([]*types.SubjectMastery, 0, len(subjects))
	for _, s := range subjects {
		a := bySubject[s]
		out = append(out, &types.SubjectMastery{
			UserID:       userID,
			SubjectID:    s,
			MasteryLevel: clampRange(round2(a.sum/float64(a.n)), 0, 100),
			TopicCount:   a.n,
		})
	}
	return out
}
