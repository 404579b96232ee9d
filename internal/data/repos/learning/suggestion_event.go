package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/prepcoach-backend/internal/domain"
	"github.com/yungbote/prepcoach-backend/internal/platform/dbctx"
	"github.com/yungbote/prepcoach-backend/internal/platform/logger"
)

type SuggestionEventRepo interface {
	Create(dbc dbctx.Context, rows []*types.SuggestionEvent) ([]*types.SuggestionEvent, error)
	// LastFiredAt returns nil when the rule never fired for the user.
	LastFiredAt(dbc dbctx.Context, userID uuid.UUID, ruleID string) (*time.Time, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.SuggestionEvent, error)
}

type suggestionEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSuggestionEventRepo(db *gorm.DB, baseLog *logger.Logger) SuggestionEventRepo {
	return &suggestionEventRepo{db: db, log: baseLog.With("repo", "SuggestionEventRepo")}
}

func (r *suggestionEventRepo) dbx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *suggestionEventRepo) Create(dbc dbctx.Context, rows []*types.SuggestionEvent) ([]*types.SuggestionEvent, error) {
	if len(rows) == 0 {
		return []*types.SuggestionEvent{}, nil
	}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *suggestionEventRepo) LastFiredAt(dbc dbctx.Context, userID uuid.UUID, ruleID string) (*time.Time, error) {
	if userID == uuid.Nil || ruleID == "" {
		return nil, nil
	}
	var rows []*types.SuggestionEvent
	if err := r.dbx(dbc).WithContext(dbc.Ctx).
		Where("user_id = ? AND rule_id = ?", userID, ruleID).
		Order("fired_at DESC").
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	t := rows[0].FiredAt.UTC()
	return &t, nil
}

func (r *suggestionEventRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.SuggestionEvent, error) {
	out := []*types.SuggestionEvent{}
	if userID == uuid.Nil {
		return out, nil
	}
	q := r.dbx(dbc).WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("fired_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
