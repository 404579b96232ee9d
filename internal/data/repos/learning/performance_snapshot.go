package learning

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/prepcoach-backend/internal/domain"
	"github.com/yungbote/prepcoach-backend/internal/platform/dbctx"
	"github.com/yungbote/prepcoach-backend/internal/platform/logger"
)

type PerformanceSnapshotRepo interface {
	GetByUser(dbc dbctx.Context, userID uuid.UUID) (*types.UserPerformanceSnapshot, error)
	Upsert(dbc dbctx.Context, row *types.UserPerformanceSnapshot) error
}

type performanceSnapshotRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPerformanceSnapshotRepo(db *gorm.DB, baseLog *logger.Logger) PerformanceSnapshotRepo {
	return &performanceSnapshotRepo{db: db, log: baseLog.With("repo", "PerformanceSnapshotRepo")}
}

func (r *performanceSnapshotRepo) dbx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *performanceSnapshotRepo) GetByUser(dbc dbctx.Context, userID uuid.UUID) (*types.UserPerformanceSnapshot, error) {
	if userID == uuid.Nil {
		return nil, nil
	}
	var row types.UserPerformanceSnapshot
	err := r.dbx(dbc).WithContext(dbc.Ctx).Where("user_id = ?", userID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *performanceSnapshotRepo) Upsert(dbc dbctx.Context, row *types.UserPerformanceSnapshot) error {
	if row == nil || row.UserID == uuid.Nil {
		return nil
	}
	now := time.Now().UTC()
	row.UpdatedAt = now
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	if row.ComputedAt.IsZero() {
		row.ComputedAt = now
	}
	return r.dbx(dbc).WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"accuracy",
				"avg_score",
				"streak_days",
				"recent_test_scores",
				"subject_wise_accuracy",
				"computed_at",
				"updated_at",
			}),
		}).
		Create(row).Error
}
