package mastery

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeRetentionStrength(t *testing.T) {
	tests := []struct {
		name    string
		correct int
		total   int
		avg     float64
		ideal   float64
		want    float64
	}{
		{name: "fast and mostly correct", correct: 8, total: 10, avg: 50, ideal: 60, want: 0.86},
		{name: "no attempts is neutral", correct: 0, total: 0, avg: 0, ideal: 60, want: 0.5},
		{name: "slow solver", correct: 10, total: 10, avg: 120, ideal: 60, want: 0.85},
		{name: "all wrong instant", correct: 0, total: 4, avg: 0, ideal: 0, want: 0},
		{name: "sub-second avg treated as one second", correct: 5, total: 10, avg: 0.2, ideal: 0.5, want: 0.35 + 0.15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeRetentionStrength(tt.correct, tt.total, tt.avg, tt.ideal)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestComputeRetentionStrengthZeroTotalIsExact(t *testing.T) {
	if got := ComputeRetentionStrength(0, 0, 40, 60); got != 0.5 {
		t.Fatalf("retention with no attempts = %v, want exactly 0.5", got)
	}
}

func TestRetentionBounds(t *testing.T) {
	for total := 0; total <= 12; total++ {
		for correct := 0; correct <= total; correct++ {
			for _, avg := range []float64{0, 1, 30, 60, 600} {
				r := ComputeRetentionStrength(correct, total, avg, 60)
				if r < 0 || r > 1 || math.IsNaN(r) {
					t.Fatalf("retention out of bounds: correct=%d total=%d avg=%v -> %v", correct, total, avg, r)
				}
			}
		}
	}
}

func TestComputeForgettingProbability(t *testing.T) {
	assert.Equal(t, 1.0, ComputeForgettingProbability(0.5, 0))
	assert.InDelta(t, math.Exp(-1.0/6.0*3), ComputeForgettingProbability(0.5, 3), 1e-12)
	assert.Equal(t, 1.0, ComputeForgettingProbability(0.8, -4), "negative elapsed time counts as zero")

	// Higher retention decays more slowly.
	low := ComputeForgettingProbability(0.1, 10)
	high := ComputeForgettingProbability(0.9, 10)
	assert.Greater(t, high, low)

	for _, r := range []float64{-1, 0, 0.3, 1, 2} {
		for _, d := range []float64{0, 1, 30, 365} {
			p := ComputeForgettingProbability(r, d)
			assert.GreaterOrEqual(t, p, 0.0)
			assert.LessOrEqual(t, p, 1.0)
		}
	}
}
