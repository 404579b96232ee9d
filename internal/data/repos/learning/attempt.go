package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/prepcoach-backend/internal/domain"
	"github.com/yungbote/prepcoach-backend/internal/platform/dbctx"
	"github.com/yungbote/prepcoach-backend/internal/platform/logger"
)

// AttemptRepo reads the attempt log. Create exists for the exam app and for fixtures; the
// engine itself never writes attempts.
type AttemptRepo interface {
	Create(dbc dbctx.Context, rows []*types.Attempt) ([]*types.Attempt, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID, since *time.Time) ([]*types.Attempt, error)
	ListByUserTopic(dbc dbctx.Context, userID uuid.UUID, topicID string, since *time.Time) ([]*types.Attempt, error)
	ListUserIDs(dbc dbctx.Context, since *time.Time) ([]uuid.UUID, error)
	LastSolvedAt(dbc dbctx.Context, userID uuid.UUID) (*time.Time, error)
}

type attemptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAttemptRepo(db *gorm.DB, baseLog *logger.Logger) AttemptRepo {
	return &attemptRepo{db: db, log: baseLog.With("repo", "AttemptRepo")}
}

func (r *attemptRepo) dbx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *attemptRepo) Create(dbc dbctx.Context, rows []*types.Attempt) ([]*types.Attempt, error) {
	if len(rows) == 0 {
		return []*types.Attempt{}, nil
	}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByUser returns the user's attempts oldest first.
func (r *attemptRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID, since *time.Time) ([]*types.Attempt, error) {
	out := []*types.Attempt{}
	if userID == uuid.Nil {
		return out, nil
	}
	q := r.dbx(dbc).WithContext(dbc.Ctx).Where("user_id = ?", userID)
	if since != nil && !since.IsZero() {
		q = q.Where("solved_at >= ?", since.UTC())
	}
	if err := q.Order("solved_at ASC, id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *attemptRepo) ListByUserTopic(dbc dbctx.Context, userID uuid.UUID, topicID string, since *time.Time) ([]*types.Attempt, error) {
	out := []*types.Attempt{}
	if userID == uuid.Nil || topicID == "" {
		return out, nil
	}
	q := r.dbx(dbc).WithContext(dbc.Ctx).
		Where("user_id = ? AND topic_id = ?", userID, topicID)
	if since != nil && !since.IsZero() {
		q = q.Where("solved_at >= ?", since.UTC())
	}
	if err := q.Order("solved_at ASC, id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListUserIDs returns every user with at least one attempt since the cutoff (all time when nil).
func (r *attemptRepo) ListUserIDs(dbc dbctx.Context, since *time.Time) ([]uuid.UUID, error) {
	out := []uuid.UUID{}
	q := r.dbx(dbc).WithContext(dbc.Ctx).Model(&types.Attempt{})
	if since != nil && !since.IsZero() {
		q = q.Where("solved_at >= ?", since.UTC())
	}
	if err := q.Distinct("user_id").Order("user_id ASC").Pluck("user_id", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *attemptRepo) LastSolvedAt(dbc dbctx.Context, userID uuid.UUID) (*time.Time, error) {
	if userID == uuid.Nil {
		return nil, nil
	}
	var row types.Attempt
	err := r.dbx(dbc).WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("solved_at DESC").
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	t := row.SolvedAt.UTC()
	return &t, nil
}
