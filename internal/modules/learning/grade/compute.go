package grade

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/prepcoach-backend/internal/data/repos"
	types "github.com/yungbote/prepcoach-backend/internal/domain"
	"github.com/yungbote/prepcoach-backend/internal/platform/apperr"
	"github.com/yungbote/prepcoach-backend/internal/platform/dbctx"
	"github.com/yungbote/prepcoach-backend/internal/platform/logger"
)

// FallbackGrade is returned when any input cannot be read.
const FallbackGrade = types.GradeC

type ComputeDeps struct {
	Log       *logger.Logger
	Subjects  repos.SubjectMasteryRepo
	Topics    repos.TopicMasteryRepo
	Snapshots repos.PerformanceSnapshotRepo
	Tests     repos.TestResultRepo
	// Grades is optional; when set the result is written back.
	Grades repos.StudentGradeRepo
}

type ComputeInput struct {
	UserID uuid.UUID
	Now    time.Time
}

type ComputeOutput struct {
	Grade         types.Grade `json:"grade"`
	WeightedScore float64     `json:"weighted_score"`
	MasteryAvg    float64     `json:"mastery_avg"`
	StrengthAvg   float64     `json:"strength_avg"`
	Accuracy      float64     `json:"accuracy"`
	RecentTestAvg float64     `json:"recent_test_avg"`
	// Degraded marks the fallback grade; DegradedErr holds the upstream failure behind it.
	Degraded    bool  `json:"degraded"`
	DegradedErr error `json:"-"`
}

// Compute grades one user from stored mastery, the performance snapshot and recent tests.
// Read failures never propagate: the user gets FallbackGrade with Degraded set and a warning is
// logged. Only a failed write-back is returned as an error.
func Compute(ctx context.Context, deps ComputeDeps, in ComputeInput) (ComputeOutput, error) {
	if deps.Log == nil || deps.Subjects == nil || deps.Topics == nil || deps.Snapshots == nil || deps.Tests == nil {
		return ComputeOutput{}, fmt.Errorf("grade_compute: missing deps")
	}
	if in.UserID == uuid.Nil {
		return ComputeOutput{}, apperr.Validation("grade_compute", "missing user_id")
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	out, err := gather(dbctx.Context{Ctx: ctx}, deps, in.UserID)
	if err != nil {
		out = ComputeOutput{
			Grade:       FallbackGrade,
			Degraded:    true,
			DegradedErr: apperr.Degraded("grade_fallback", err),
		}
		deps.Log.Warn("grade fell back to default",
			"user_id", in.UserID,
			"grade", FallbackGrade,
			"degraded", true,
			"error", err,
		)
	} else {
		out.WeightedScore = WeightedScore(out.MasteryAvg, out.StrengthAvg, out.Accuracy, out.RecentTestAvg)
		out.Grade = GradeFor(out.WeightedScore)
	}

	if deps.Grades != nil {
		row := &types.StudentGrade{
			UserID:        in.UserID,
			Grade:         out.Grade,
			WeightedScore: out.WeightedScore,
			Degraded:      out.Degraded,
			ComputedAt:    now.UTC(),
		}
		if err := deps.Grades.Upsert(dbctx.Context{Ctx: ctx}, row); err != nil {
			return out, fmt.Errorf("grade_compute: write back: %w", err)
		}
	}
	return out, nil
}

func gather(dbc dbctx.Context, deps ComputeDeps, userID uuid.UUID) (ComputeOutput, error) {
	out := ComputeOutput{}

	subjects, err := deps.Subjects.ListByUser(dbc, userID)
	if err != nil {
		return out, fmt.Errorf("subject mastery: %w", err)
	}
	sum := 0.0
	for _, s := range subjects {
		sum += s.MasteryLevel
	}
	if len(subjects) > 0 {
		out.MasteryAvg = sum / float64(len(subjects))
	}

	topics, err := deps.Topics.ListByUser(dbc, userID)
	if err != nil {
		return out, fmt.Errorf("topic mastery: %w", err)
	}
	sum = 0
	for _, t := range topics {
		sum += t.StrengthIndex
	}
	if len(topics) > 0 {
		out.StrengthAvg = sum / float64(len(topics))
	}

	snap, err := deps.Snapshots.GetByUser(dbc, userID)
	if err != nil {
		return out, fmt.Errorf("performance snapshot: %w", err)
	}
	if snap != nil {
		out.Accuracy = snap.Accuracy
	}

	tests, err := deps.Tests.ListRecent(dbc, userID, RecentTests)
	if err != nil {
		return out, fmt.Errorf("recent tests: %w", err)
	}
	sum = 0
	for _, t := range tests {
		sum += t.Score
	}
	if len(tests) > 0 {
		out.RecentTestAvg = sum / float64(len(tests))
	}
	return out, nil
}
