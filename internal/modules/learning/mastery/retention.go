package mastery

import "math"

const (
	// NeutralRetention is returned when a topic has no attempts so untried topics still get scheduled.
	NeutralRetention = 0.5

	retentionAccuracyWeight = 0.7
	retentionTimeWeight     = 0.3
)

// ComputeRetentionStrength estimates how well a topic will persist, in [0,1].
//
// accuracy = correct/total, timeEfficiency = clamp(ideal/max(avg,1), 0, 1) and
// retention = 0.7*accuracy + 0.3*timeEfficiency. With no attempts it returns NeutralRetention.
func ComputeRetentionStrength(correct, total int, avgTimeSeconds, idealTimeSeconds float64) float64 {
	if total <= 0 {
		return NeutralRetention
	}
	accuracy := clamp01(float64(correct) / float64(total))
	timeEfficiency := clamp01(idealTimeSeconds / math.Max(avgTimeSeconds, 1))
	return clamp01(retentionAccuracyWeight*accuracy + retentionTimeWeight*timeEfficiency)
}

// ComputeForgettingProbability returns exp(-k*t) with k = 1/(1+10*retention), clamped to [0,1].
// Higher retention gives a smaller decay constant. Negative elapsed time counts as zero.
func ComputeForgettingProbability(retentionStrength, daysSinceReview float64) float64 {
	r := clamp01(retentionStrength)
	t := daysSinceReview
	if math.IsNaN(t) || t < 0 {
		t = 0
	}
	k := 1 / (1 + 10*r)
	return clamp01(math.Exp(-k * t))
}

func clamp01(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func clampRange(x float64, lo float64, hi float64) float64 {
	if math.IsNaN(x) {
		return lo
	}
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
