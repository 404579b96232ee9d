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

type TopicMasteryRepo interface {
	Get(dbc dbctx.Context, userID uuid.UUID, topicID string) (*types.TopicMastery, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.TopicMastery, error)
	ListByUserSubject(dbc dbctx.Context, userID uuid.UUID, subjectID string) ([]*types.TopicMastery, error)
	Upsert(dbc dbctx.Context, row *types.TopicMastery) error
}

type topicMasteryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTopicMasteryRepo(db *gorm.DB, baseLog *logger.Logger) TopicMasteryRepo {
	return &topicMasteryRepo{db: db, log: baseLog.With("repo", "TopicMasteryRepo")}
}

func (r *topicMasteryRepo) dbx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

// Get returns (nil, nil) when the user has no mastery row for the topic.
func (r *topicMasteryRepo) Get(dbc dbctx.Context, userID uuid.UUID, topicID string) (*types.TopicMastery, error) {
	if userID == uuid.Nil || topicID == "" {
		return nil, nil
	}
	var row types.TopicMastery
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

func (r *topicMasteryRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.TopicMastery, error) {
	out := []*types.TopicMastery{}
	if userID == uuid.Nil {
		return out, nil
	}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("subject_id ASC, topic_id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *topicMasteryRepo) ListByUserSubject(dbc dbctx.Context, userID uuid.UUID, subjectID string) ([]*types.TopicMastery, error) {
	out := []*types.TopicMastery{}
	if userID == uuid.Nil || subjectID == "" {
		return out, nil
	}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).
		Where("user_id = ? AND subject_id = ?", userID, subjectID).
		Order("topic_id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *topicMasteryRepo) Upsert(dbc dbctx.Context, row *types.TopicMastery) error {
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
			Columns: []clause.Column{
				{Name: "user_id"},
				{Name: "topic_id"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"subject_id",
				"mastery_level",
				"strength_index",
				"total_attempts",
				"correct_attempts",
				"avg_time_seconds",
				"last_practiced_at",
				"updated_at",
			}),
		}).
		Create(row).Error
}
