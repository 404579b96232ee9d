package learning

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/prepcoach-backend/internal/domain"
	"github.com/yungbote/prepcoach-backend/internal/platform/dbctx"
	"github.com/yungbote/prepcoach-backend/internal/platform/logger"
)

type TestResultRepo interface {
	Create(dbc dbctx.Context, rows []*types.TestResult) ([]*types.TestResult, error)
	// ListRecent returns the user's latest completed tests, newest first.
	ListRecent(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.TestResult, error)
}

type testResultRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTestResultRepo(db *gorm.DB, baseLog *logger.Logger) TestResultRepo {
	return &testResultRepo{db: db, log: baseLog.With("repo", "TestResultRepo")}
}

func (r *testResultRepo) dbx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *testResultRepo) Create(dbc dbctx.Context, rows []*types.TestResult) ([]*types.TestResult, error) {
	if len(rows) == 0 {
		return []*types.TestResult{}, nil
	}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *testResultRepo) ListRecent(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.TestResult, error) {
	out := []*types.TestResult{}
	if userID == uuid.Nil {
		return out, nil
	}
	if limit <= 0 {
		limit = 5
	}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("completed_at DESC, id DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
