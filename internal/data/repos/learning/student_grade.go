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

type StudentGradeRepo interface {
	GetByUser(dbc dbctx.Context, userID uuid.UUID) (*types.StudentGrade, error)
	Upsert(dbc dbctx.Context, row *types.StudentGrade) error
}

type studentGradeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStudentGradeRepo(db *gorm.DB, baseLog *logger.Logger) StudentGradeRepo {
	return &studentGradeRepo{db: db, log: baseLog.With("repo", "StudentGradeRepo")}
}

func (r *studentGradeRepo) dbx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *studentGradeRepo) GetByUser(dbc dbctx.Context, userID uuid.UUID) (*types.StudentGrade, error) {
	if userID == uuid.Nil {
		return nil, nil
	}
	var row types.StudentGrade
	err := r.dbx(dbc).WithContext(dbc.Ctx).Where("user_id = ?", userID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *studentGradeRepo) Upsert(dbc dbctx.Context, row *types.StudentGrade) error {
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
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"grade", "weighted_score", "degraded", "computed_at", "updated_at"}),
		}).
		Create(row).Error
}
