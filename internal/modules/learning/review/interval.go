package review

import (
	"math"
	"time"

	"github.com/yungbote/prepcoach-backend/internal/platform/apperr"
)

const (
	BaseIntervalDays   = 1.0
	MaxIntervalDays    = 60
	DecayFactor        = 0.9
	StrengthMultiplier = 0.15

	// Intervals above this many days grow at DecayFactor of their excess.
	diminishingAfterDays = 7.0
	reviewsBonusWeight   = 0.3
)

type Input struct {
	MasteryLevel      float64 // 0..100
	StrengthIndex     float64 // 0..100
	LastReviewedAt    time.Time
	CompletedReviews  int
	RetentionStrength float64 // 0..1
}

type Result struct {
	NextReviewAt       time.Time `json:"next_review_at"`
	ReviewIntervalDays int       `json:"review_interval_days"`
}

// CalculateNextReview is the spaced-repetition law. It is pure: equal inputs give equal results.
//
//	interval = base * (1 + mastery/20) * (1 + retention/2) * (1 + 0.15*strength + 0.3*log10(reviews))
//
// Intervals past 7 days are damped, the result is rounded and bounded to [1, MaxIntervalDays],
// and the next review lands at the start of the last review's day plus the interval.
func CalculateNextReview(in Input) (Result, error) {
	if in.LastReviewedAt.IsZero() {
		return Result{}, apperr.Validation("next_review", "missing last_reviewed_at")
	}
	if in.CompletedReviews < 0 {
		return Result{}, apperr.Validation("next_review", "completed_reviews must be >= 0, got %d", in.CompletedReviews)
	}
	for _, f := range []float64{in.MasteryLevel, in.StrengthIndex, in.RetentionStrength} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return Result{}, apperr.Validation("next_review", "non-finite input")
		}
	}

	days := IntervalDays(in.MasteryLevel, in.StrengthIndex, in.CompletedReviews, in.RetentionStrength)
	return Result{
		NextReviewAt:       StartOfDay(in.LastReviewedAt).AddDate(0, 0, days),
		ReviewIntervalDays: days,
	}, nil
}

// IntervalDays returns the bounded interval in whole days. Inputs are clamped to their ranges.
func IntervalDays(masteryLevel, strengthIndex float64, completedReviews int, retentionStrength float64) int {
	mastery := clampRange(masteryLevel, 0, 100)
	strength := clampRange(strengthIndex, 0, 100)
	retention := clampRange(retentionStrength, 0, 1)

	baseMultiplier := 1 + mastery/20
	strengthBonus := strength * StrengthMultiplier
	reviewsBonus := 0.0
	if completedReviews > 0 {
		reviewsBonus = math.Log10(float64(completedReviews)) * reviewsBonusWeight
	}
	retentionFactor := 1 + retention/2

	interval := BaseIntervalDays * baseMultiplier * retentionFactor * (1 + strengthBonus + reviewsBonus)
	if interval > diminishingAfterDays {
		interval = diminishingAfterDays + (interval-diminishingAfterDays)*DecayFactor
	}

	days := int(math.Round(math.Min(interval, MaxIntervalDays)))
	if days < 1 {
		days = 1
	}
	return days
}

// StartOfDay truncates t to midnight in t's own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
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
