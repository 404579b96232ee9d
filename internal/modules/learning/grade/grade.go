package grade

import (
	"math"

	types "github.com/yungbote/prepcoach-backend/internal/domain"
)

const (
	masteryWeight    = 0.30
	strengthWeight   = 0.20
	accuracyWeight   = 0.35
	recentTestWeight = 0.15

	// RecentTests is how many completed tests feed the recent test average.
	RecentTests = 5
)

var bands = []struct {
	min   float64
	grade types.Grade
}{
	{0.90, types.GradeAPlus},
	{0.75, types.GradeA},
	{0.60, types.GradeB},
	{0.40, types.GradeC},
}

// WeightedScore normalizes the 0..100 inputs to [0,1] and blends them 30/20/35/15.
func WeightedScore(masteryAvg, strengthAvg, accuracy, recentTestAvg float64) float64 {
	return masteryWeight*norm(masteryAvg) +
		strengthWeight*norm(strengthAvg) +
		accuracyWeight*norm(accuracy) +
		recentTestWeight*norm(recentTestAvg)
}

// CalculateGrade maps the weighted score to a band. Lower bounds are inclusive.
func CalculateGrade(masteryAvg, strengthAvg, accuracy, recentTestAvg float64) types.Grade {
	return GradeFor(WeightedScore(masteryAvg, strengthAvg, accuracy, recentTestAvg))
}

func GradeFor(score float64) types.Grade {
	// Scores are compared at 1e-9 so 0.75 built from float sums still lands in A.
	s := math.Round(score*1e9) / 1e9
	for _, b := range bands {
		if s >= b.min {
			return b.grade
		}
	}
	return types.GradeD
}

func norm(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 1
	}
	return v / 100
}
