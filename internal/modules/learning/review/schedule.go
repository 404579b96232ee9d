package review

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/prepcoach-backend/internal/data/repos"
	types "github.com/yungbote/prepcoach-backend/internal/domain"
	"github.com/yungbote/prepcoach-backend/internal/modules/learning/mastery"
	"github.com/yungbote/prepcoach-backend/internal/platform/apperr"
	"github.com/yungbote/prepcoach-backend/internal/platform/dbctx"
	"github.com/yungbote/prepcoach-backend/internal/platform/logger"
	"github.com/yungbote/prepcoach-backend/internal/platform/validate"
)

type SchedulerDeps struct {
	DB        *gorm.DB
	Log       *logger.Logger
	Topics    repos.TopicMasteryRepo
	Schedules repos.ReviewScheduleRepo
}

func (d SchedulerDeps) check(op string) error {
	if d.DB == nil || d.Log == nil || d.Topics == nil || d.Schedules == nil {
		return fmt.Errorf("%s: missing deps", op)
	}
	return nil
}

type ScheduleInput struct {
	UserID  uuid.UUID
	TopicID string
	// RetentionStrength replaces the stored retention when set (fresh from new attempts).
	RetentionStrength *float64
	// ReviewedAt overrides the review anchor. By default the anchor is the later of the stored
	// last review and the topic's last practice.
	ReviewedAt *time.Time
	Now        time.Time
}

type ScheduleOutput struct {
	Schedule *types.ReviewSchedule `json:"schedule"`
	Created  bool                  `json:"created"`
	// Completed is set when this call counted a review.
	Completed bool `json:"completed"`
}

// Schedule creates or recomputes the review schedule of one (user, topic). The topic must
// already have a mastery row.
func Schedule(ctx context.Context, deps SchedulerDeps, in ScheduleInput) (ScheduleOutput, error) {
	if err := deps.check("review_schedule"); err != nil {
		return ScheduleOutput{}, err
	}
	var out ScheduleOutput
	err := deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		out, err = scheduleTx(dbctx.Context{Ctx: ctx, Tx: tx}, deps, in, false)
		return err
	})
	if err != nil {
		return ScheduleOutput{}, err
	}
	return out, nil
}

type CompleteReviewInput struct {
	UserID            uuid.UUID
	TopicID           string
	ReviewedAt        time.Time
	RetentionStrength *float64
}

// CompleteReview records a finished review: the count goes up by one, the anchor moves to
// ReviewedAt and the next review is recomputed. The schedule must exist.
func CompleteReview(ctx context.Context, deps SchedulerDeps, in CompleteReviewInput) (ScheduleOutput, error) {
	if err := deps.check("review_complete"); err != nil {
		return ScheduleOutput{}, err
	}
	reviewedAt := in.ReviewedAt
	if reviewedAt.IsZero() {
		reviewedAt = time.Now().UTC()
	}
	var out ScheduleOutput
	err := deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		out, err = scheduleTx(dbctx.Context{Ctx: ctx, Tx: tx}, deps, ScheduleInput{
			UserID:            in.UserID,
			TopicID:           in.TopicID,
			RetentionStrength: in.RetentionStrength,
			ReviewedAt:        &reviewedAt,
			Now:               reviewedAt,
		}, true)
		return err
	})
	if err != nil {
		return ScheduleOutput{}, err
	}
	deps.Log.Debug("review completed",
		"user_id", in.UserID,
		"topic_id", in.TopicID,
		"completed_reviews", out.Schedule.CompletedReviews,
		"next_review_at", out.Schedule.NextReviewAt,
	)
	return out, nil
}

type ScheduleAllInput struct {
	UserID uuid.UUID
	// Retention holds freshly computed retention per topic; topics absent keep their stored value.
	Retention map[string]float64
	Now       time.Time
}

type ScheduleAllOutput struct {
	Schedules []*types.ReviewSchedule `json:"schedules"`
	Created   int                     `json:"created"`
	Updated   int                     `json:"updated"`
	Reviewed  int                     `json:"reviewed"`
}

// ScheduleAll recomputes the schedule of every topic the user has mastery for.
func ScheduleAll(ctx context.Context, deps SchedulerDeps, in ScheduleAllInput) (ScheduleAllOutput, error) {
	out := ScheduleAllOutput{}
	if err := deps.check("review_schedule_all"); err != nil {
		return out, err
	}
	if in.UserID == uuid.Nil {
		return out, fmt.Errorf("review_schedule_all: missing user_id")
	}
	err := deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		topics, err := deps.Topics.ListByUser(dbc, in.UserID)
		if err != nil {
			return fmt.Errorf("list topic mastery: %w", err)
		}
		for _, t := range topics {
			sin := ScheduleInput{UserID: in.UserID, TopicID: t.TopicID, Now: in.Now}
			if r, ok := in.Retention[t.TopicID]; ok {
				r := r
				sin.RetentionStrength = &r
			}
			res, err := scheduleTx(dbc, deps, sin, false)
			if err != nil {
				return err
			}
			out.Schedules = append(out.Schedules, res.Schedule)
			if res.Created {
				out.Created++
			} else {
				out.Updated++
			}
			if res.Completed {
				out.Reviewed++
			}
		}
		return nil
	})
	if err != nil {
		return ScheduleAllOutput{}, err
	}
	return out, nil
}

// DueReviews lists the user's schedules due at now, most overdue first.
func DueReviews(ctx context.Context, deps SchedulerDeps, userID uuid.UUID, now time.Time, limit int) ([]*types.ReviewSchedule, error) {
	if deps.Schedules == nil {
		return nil, fmt.Errorf("review_due: missing deps")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	rows, err := deps.Schedules.ListDue(dbctx.Context{Ctx: ctx}, userID, now, limit)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].NextReviewAt.Before(rows[j].NextReviewAt) })
	return rows, nil
}

func scheduleTx(dbc dbctx.Context, deps SchedulerDeps, in ScheduleInput, completing bool) (ScheduleOutput, error) {
	if in.UserID == uuid.Nil || in.TopicID == "" {
		return ScheduleOutput{}, apperr.Validation("review_schedule", "missing user_id or topic_id")
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	m, err := deps.Topics.Get(dbc, in.UserID, in.TopicID)
	if err != nil {
		return ScheduleOutput{}, fmt.Errorf("load topic mastery: %w", err)
	}
	if m == nil {
		return ScheduleOutput{}, apperr.NotFound("topic_mastery", "no mastery for user %s topic %s", in.UserID, in.TopicID)
	}
	if err := validate.Var("topic_mastery", "mastery_level", m.MasteryLevel, "gte=0,lte=100"); err != nil {
		return ScheduleOutput{}, err
	}
	if err := validate.Var("topic_mastery", "strength_index", m.StrengthIndex, "gte=0,lte=100"); err != nil {
		return ScheduleOutput{}, err
	}
	if in.RetentionStrength != nil {
		if err := validate.Var("review_schedule", "retention_strength", *in.RetentionStrength, "gte=0,lte=1"); err != nil {
			return ScheduleOutput{}, err
		}
	}

	existing, err := deps.Schedules.Get(dbc, in.UserID, in.TopicID)
	if err != nil {
		return ScheduleOutput{}, fmt.Errorf("load review schedule: %w", err)
	}
	if existing == nil && completing {
		return ScheduleOutput{}, apperr.NotFound("review_schedule", "no schedule for user %s topic %s", in.UserID, in.TopicID)
	}

	// Practising a topic once its review fell due counts as doing that review. The anchor moves
	// to the practice time, so a later recompute does not count it again.
	if !completing && existing != nil && in.ReviewedAt == nil && m.LastPracticedAt != nil {
		practiced := m.LastPracticedAt.UTC()
		if practiced.After(existing.LastReviewedAt) && !practiced.Before(existing.NextReviewAt) {
			completing = true
			in.ReviewedAt = &practiced
		}
	}

	row := existing
	created := false
	if row == nil {
		created = true
		row = &types.ReviewSchedule{
			UserID:            in.UserID,
			TopicID:           in.TopicID,
			RetentionStrength: mastery.NeutralRetention,
			CompletedReviews:  0,
		}
	}
	if in.RetentionStrength != nil {
		row.RetentionStrength = *in.RetentionStrength
	}
	if completing {
		row.CompletedReviews++
	}

	switch {
	case in.ReviewedAt != nil && !in.ReviewedAt.IsZero():
		row.LastReviewedAt = in.ReviewedAt.UTC()
	default:
		anchor := row.LastReviewedAt
		if m.LastPracticedAt != nil && m.LastPracticedAt.After(anchor) {
			anchor = m.LastPracticedAt.UTC()
		}
		if anchor.IsZero() {
			anchor = now.UTC()
		}
		row.LastReviewedAt = anchor
	}

	res, err := CalculateNextReview(Input{
		MasteryLevel:      m.MasteryLevel,
		StrengthIndex:     m.StrengthIndex,
		LastReviewedAt:    row.LastReviewedAt,
		CompletedReviews:  row.CompletedReviews,
		RetentionStrength: row.RetentionStrength,
	})
	if err != nil {
		return ScheduleOutput{}, err
	}
	row.NextReviewAt = res.NextReviewAt
	row.ReviewIntervalDays = res.ReviewIntervalDays

	if err := deps.Schedules.Upsert(dbc, row); err != nil {
		return ScheduleOutput{}, fmt.Errorf("upsert review schedule: %w", err)
	}
	return ScheduleOutput{Schedule: row, Created: created, Completed: completing}, nil
}
