package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/prepcoach-backend/internal/domain"
	"github.com/yungbote/prepcoach-backend/internal/platform/dbctx"
	"github.com/yungbote/prepcoach-backend/internal/platform/logger"
)

type SubjectMasteryRepo interface {
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.SubjectMastery, error)
	Upsert(dbc dbctx.Context, row *types.SubjectMastery) error
}

type subjectMasteryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSubjectMasteryRepo(db *gorm.DB, baseLog *logger.Logger) SubjectMasteryRepo {
	return &subjectMasteryRepo{db: db, log: baseLog.With("repo", "SubjectMasteryRepo")}
}

func (r *subjectMasteryRepo) dbx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *subjectMasteryRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.SubjectMastery, error) {
	out := []*types.SubjectMastery{}
	if userID == uuid.Nil {
		return out, nil
	}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("subject_id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *subjectMasteryRepo) Upsert(dbc dbctx.Context, row *types.SubjectMastery) error {
	if row == nil || row.UserID == uuid.Nil || row.SubjectID == "" {
		return nil
	}
	now := time.Now().UTC()
	row.UpdatedAt = now
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	return r.dbx(dbc).WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "subject_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"mastery_level", "topic_count", "updated_at"}),
		}).
		Create(row).Error
}
