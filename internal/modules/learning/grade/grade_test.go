package grade

import (
	"testing"

	types "github.com/yungbote/prepcoach-backend/internal/domain"
)

func TestCalculateGradeWorkedExample(t *testing.T) {
	score := WeightedScore(80, 70, 90, 60)
	if score < 0.784999 || score > 0.785001 {
		t.Fatalf("WeightedScore = %v, want 0.785", score)
	}
	if got := CalculateGrade(80, 70, 90, 60); got != types.GradeA {
		t.Fatalf("CalculateGrade = %s, want A", got)
	}
}

func TestGradeBands(t *testing.T) {
	tests := []struct {
		score float64
		want  types.Grade
	}{
		{1.0, types.GradeAPlus},
		{0.90, types.GradeAPlus},
		{0.8999, types.GradeA},
		{0.75, types.GradeA},
		{0.7499, types.GradeB},
		{0.60, types.GradeB},
		{0.5999, types.GradeC},
		{0.40, types.GradeC},
		{0.3999, types.GradeD},
		{0, types.GradeD},
	}
	for _, tt := range tests {
		if got := GradeFor(tt.score); got != tt.want {
			t.Fatalf("GradeFor(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestCalculateGradeExtremes(t *testing.T) {
	if got := CalculateGrade(100, 100, 100, 100); got != types.GradeAPlus {
		t.Fatalf("all max = %s", got)
	}
	if got := CalculateGrade(0, 0, 0, 0); got != types.GradeD {
		t.Fatalf("all zero = %s", got)
	}
	// Inputs outside 0..100 are clamped by normalization.
	if got := CalculateGrade(500, 500, 500, 500); got != types.GradeAPlus {
		t.Fatalf("over max = %s", got)
	}
	if got := CalculateGrade(-10, -10, -10, -10); got != types.GradeD {
		t.Fatalf("negative = %s", got)
	}
	// 75 everywhere sums to exactly the A boundary.
	if got := CalculateGrade(75, 75, 75, 75); got != types.GradeA {
		t.Fatalf("boundary = %s", got)
	}
}
