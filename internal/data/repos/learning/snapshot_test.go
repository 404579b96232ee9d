package learning

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/prepcoach-backend/internal/data/repos/testutil"
	types "github.com/yungbote/prepcoach-backend/internal/domain"
	"github.com/yungbote/prepcoach-backend/internal/platform/dbctx"
)

func TestPerformanceSnapshotRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewPerformanceSnapshotRepo(db, testutil.Logger(t))

	userID := uuid.New()
	snap := &types.UserPerformanceSnapshot{UserID: userID, Accuracy: 62.5, AvgScore: 70, StreakDays: 3}
	snap.SetTestScores([]float64{70, 80})
	snap.SetSubjectAccuracy(map[string]float64{"physics": 35})
	if err := repo.Upsert(dbc, snap); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	snap2 := &types.UserPerformanceSnapshot{UserID: userID, Accuracy: 80, AvgScore: 75, StreakDays: 4}
	snap2.SetTestScores([]float64{70, 80, 75})
	snap2.SetSubjectAccuracy(map[string]float64{"physics": 50, "chemistry": 90})
	if err := repo.Upsert(dbc, snap2); err != nil {
		t.Fatalf("Upsert again: %v", err)
	}

	got, err := repo.GetByUser(dbc, userID)
	if err != nil || got == nil {
		t.Fatalf("GetByUser: got=%v err=%v", got, err)
	}
	if got.Accuracy != 80 || got.StreakDays != 4 {
		t.Fatalf("snapshot not overwritten: %+v", got)
	}
	if scores := got.TestScores(); len(scores) != 3 {
		t.Fatalf("TestScores = %v", scores)
	}
	if acc := got.SubjectAccuracy(); acc["chemistry"] != 90 {
		t.Fatalf("SubjectAccuracy = %v", acc)
	}
}

func TestTestResultRepoListRecent(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewTestResultRepo(db, testutil.Logger(t))

	userID := uuid.New()
	base := testutil.Day(2024, time.February, 1)
	for i := 0; i < 7; i++ {
		testutil.SeedTestResult(t, ctx, tx, userID, float64(50+i*5), base.AddDate(0, 0, i))
	}

	rows, err := repo.ListRecent(dbc, userID, 5)
	if err != nil || len(rows) != 5 {
		t.Fatalf("ListRecent: err=%v len=%d", err, len(rows))
	}
	if rows[0].Score != 80 {
		t.Fatalf("ListRecent newest first: got %v", rows[0].Score)
	}
}

func TestStudentGradeRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewStudentGradeRepo(db, testutil.Logger(t))

	userID := uuid.New()
	if err := repo.Upsert(dbc, &types.StudentGrade{UserID: userID, Grade: types.GradeC, Degraded: true}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := repo.Upsert(dbc, &types.StudentGrade{UserID: userID, Grade: types.GradeA, WeightedScore: 0.785}); err != nil {
		t.Fatalf("Upsert again: %v", err)
	}
	got, err := repo.GetByUser(dbc, userID)
	if err != nil || got == nil {
		t.Fatalf("GetByUser: got=%v err=%v", got, err)
	}
	if got.Grade != types.GradeA || got.Degraded {
		t.Fatalf("grade not overwritten: %+v", got)
	}
}
