package mastery

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/prepcoach-backend/internal/data/repos"
	types "github.com/yungbote/prepcoach-backend/internal/domain"
	"github.com/yungbote/prepcoach-backend/internal/platform/dbctx"
	"github.com/yungbote/prepcoach-backend/internal/platform/logger"
)

// DefaultIdealTimeSeconds is used for retention when no attempt carries an ideal time.
const DefaultIdealTimeSeconds = 60.0

type AggregateDeps struct {
	DB       *gorm.DB
	Log      *logger.Logger
	Attempts repos.AttemptRepo
	Topics   repos.TopicMasteryRepo
	Subjects repos.SubjectMasteryRepo

	DefaultIdealTimeSeconds float64
}

type AggregateInput struct {
	UserID uuid.UUID
	// TopicIDs limits recomputation to these topics. Subject mastery always covers every stored topic.
	TopicIDs []string
	Now      time.Time
}

type AggregateOutput struct {
	Topics    []*types.TopicMastery   `json:"topics"`
	Subjects  []*types.SubjectMastery `json:"subjects"`
	Retention map[string]float64      `json:"retention"`
}

// Aggregate recomputes a user's topic and subject mastery from the attempt log and commits it
// in one transaction, so a scheduler reading afterwards sees the new rows.
func Aggregate(ctx context.Context, deps AggregateDeps, in AggregateInput) (AggregateOutput, error) {
	out := AggregateOutput{Retention: map[string]float64{}}
	if deps.DB == nil || deps.Log == nil || deps.Attempts == nil || deps.Topics == nil || deps.Subjects == nil {
		return out, fmt.Errorf("mastery_aggregate: missing deps")
	}
	if in.UserID == uuid.Nil {
		return out, fmt.Errorf("mastery_aggregate: missing user_id")
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	idealDefault := deps.DefaultIdealTimeSeconds
	if idealDefault <= 0 {
		idealDefault = DefaultIdealTimeSeconds
	}

	only := map[string]bool{}
	for _, id := range in.TopicIDs {
		if id != "" {
			only[id] = true
		}
	}

	err := deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}

		attempts, err := deps.Attempts.ListByUser(dbc, in.UserID, nil)
		if err != nil {
			return fmt.Errorf("list attempts: %w", err)
		}
		byTopic := map[string][]*types.Attempt{}
		for _, a := range attempts {
			if a == nil || a.TopicID == "" {
				continue
			}
			if len(only) > 0 && !only[a.TopicID] {
				continue
			}
			byTopic[a.TopicID] = append(byTopic[a.TopicID], a)
		}
		topicIDs := make([]string, 0, len(byTopic))
		for id := range byTopic {
			topicIDs = append(topicIDs, id)
		}
		sort.Strings(topicIDs)

		for _, topicID := range topicIDs {
			rows := byTopic[topicID]
			row, err := ComputeTopicMastery(in.UserID, topicID, rows, now)
			if err != nil {
				return err
			}
			if err := deps.Topics.Upsert(dbc, row); err != nil {
				return fmt.Errorf("upsert topic mastery %s: %w", topicID, err)
			}
			out.Topics = append(out.Topics, row)
			out.Retention[topicID] = RetentionFor(rows, idealDefault)
		}

		stored, err := deps.Topics.ListByUser(dbc, in.UserID)
		if err != nil {
			return fmt.Errorf("list topic mastery: %w", err)
		}
		out.Subjects = SubjectMasteryFrom(in.UserID, stored)
		for _, s := range out.Subjects {
			if err := deps.Subjects.Upsert(dbc, s); err != nil {
				return fmt.Errorf("upsert subject mastery %s: %w", s.SubjectID, err)
			}
		}
		return nil
	})
	if err != nil {
		return AggregateOutput{Retention: map[string]float64{}}, err
	}

	deps.Log.Debug("mastery aggregated",
		"user_id", in.UserID,
		"topics", len(out.Topics),
		"subjects", len(out.Subjects),
	)
	return out, nil
}
