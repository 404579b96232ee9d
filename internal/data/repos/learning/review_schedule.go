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

type ReviewScheduleRepo interface {
	Get(dbc dbctx.Context, userID uuid.UUID, topicID string) (*types.ReviewSchedule, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.ReviewSchedule, error)
	// ListDue returns schedules with next_review_at <= now, most overdue first. limit <= 0 means no limit.
	ListDue(dbc dbctx.Context, userID uuid.UUID, now time.Time, limit int) ([]*types.ReviewSchedule, error)
	Upsert(dbc dbctx.Context, row *types.ReviewSchedule) error
}

type reviewScheduleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReviewScheduleRepo(db *gorm.DB, baseLog *logger.Logger) ReviewScheduleRepo {
	return &reviewScheduleRepo{db: db, log: baseLog.With("repo", "ReviewScheduleRepo")}
}

func (r *reviewScheduleRepo) dbx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *reviewScheduleRepo) Get(dbc dbctx.Context, userID uuid.UUID, topicID string) (*types.ReviewSchedule, error) {
	if userID == uuid.Nil || topicID == "" {
		return nil, nil
	}
	var row types.ReviewSchedule
	err := r.dbx(dbc).WithContext(dbc.Ctx).
		Where("user_id = ? AND topic_id = ?", userID, topicID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *reviewScheduleRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.ReviewSchedule, error) {
	out := []*types.ReviewSchedule{}
	if userID == uuid.Nil {
		return out, nil
	}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("next_review_at ASC, topic_id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *reviewScheduleRepo) ListDue(dbc dbctx.Context, userID uuid.UUID, now time.Time, limit int) ([]*types.ReviewSchedule, error) {
	out := []*types.ReviewSchedule{}
	if userID == uuid.Nil {
		return out, nil
	}
	q := r.dbx(dbc).WithContext(dbc.Ctx).
		Where("user_id = ? AND next_review_at <= ?", userID, now.UTC()).
		Order("next_review_at ASC, topic_id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *reviewScheduleRepo) Upsert(dbc dbctx.Context, row *types.ReviewSchedule) error {
	if row == nil || row.UserID == uuid.Nil || row.TopicID == "" {
		return nil
	}
	now := time.Now().UTC()
	row.UpdatedAt = now
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	return r.dbx(dbc).WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "topic_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"last_reviewed_at",
				"next_review_at",
				"review_interval_days",
				"retention_strength",
				"completed_reviews",
				"updated_at",
			}),
		}).
		Create(row).Error
}
