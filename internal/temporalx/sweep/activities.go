package sweep

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/temporal"

	"github.com/yungbote/prepcoach-backend/internal/jobs/pipeline/learner_refresh"
	"github.com/yungbote/prepcoach-backend/internal/platform/apperr"
	"github.com/yungbote/prepcoach-backend/internal/platform/logger"
)

// Refresher is the slice of the learner_refresh pipeline the activities drive.
type Refresher interface {
	ListUsers(ctx context.Context, since *time.Time) ([]uuid.UUID, error)
	RunUser(ctx context.Context, in learner_refresh.RunInput) (learner_refresh.RunOutput, error)
}

type Activities struct {
	Log      *logger.Logger
	Pipeline Refresher
}

func (a *Activities) ListUsers(ctx context.Context, in ListUsersInput) ([]string, error) {
	if a == nil || a.Pipeline == nil {
		return nil, fmt.Errorf("sweep: activity not configured")
	}
	ids, err := a.Pipeline.ListUsers(ctx, in.Since)
	if err != nil {
		return nil, err
	}
	all := make([]string, 0, len(ids))
	for _, id := range ids {
		all = append(all, id.String())
	}
	sort.Strings(all)
	// Page by id so users added mid-sweep neither shift nor repeat earlier pages.
	start := sort.SearchStrings(all, in.After)
	if in.After != "" && start < len(all) && all[start] == in.After {
		start++
	}
	out := all[start:]
	if in.Limit > 0 && len(out) > in.Limit {
		out = out[:in.Limit]
	}
	return out, nil
}

func (a *Activities) RefreshUser(ctx context.Context, in RefreshUserInput) (RefreshUserResult, error) {
	res := RefreshUserResult{UserID: strings.TrimSpace(in.UserID)}
	if a == nil || a.Pipeline == nil {
		return res, fmt.Errorf("sweep: activity not configured")
	}
	userID, err := uuid.Parse(res.UserID)
	if err != nil || userID == uuid.Nil {
		return res, temporal.NewNonRetryableApplicationError("invalid user_id", "validation", err)
	}
	out, err := a.Pipeline.RunUser(ctx, learner_refresh.RunInput{UserID: userID, Now: in.Now})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindValidation {
			return res, temporal.NewNonRetryableApplicationError(err.Error(), "validation", err)
		}
		return res, err
	}
	res.Grade = string(out.Grade)
	res.Degraded = out.Degraded
	for _, sugs := range out.Suggestions {
		res.Suggestions += len(sugs)
	}
	if a.Log != nil {
		a.Log.Debug("sweep refreshed user", "user_id", userID, "grade", res.Grade, "suggestions", res.Suggestions)
	}
	return res, nil
}
