package sweep

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	defaultParallelism    = 8
	defaultPageSize       = 500
	defaultMaxPagesPerRun = 10
	// Continue well before the server's hard history limit.
	maxHistoryEvents = 20000
)

// Workflow refreshes every listed learner, one page of users at a time. A user whose activity
// exhausts its retries is recorded in the result; the sweep itself fails only when listing
// users fails. Long sweeps continue as new with a cursor so history stays bounded.
func Workflow(ctx workflow.Context, in Input) (Result, error) {
	res := Result{}
	if in.Carry != nil {
		res = *in.Carry
	}
	res.Runs++
	now := in.Now
	if now.IsZero() {
		now = workflow.Now(ctx).UTC()
	}
	parallelism := in.Parallelism
	if parallelism <= 0 {
		parallelism = defaultParallelism
	}
	pageSize := in.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	maxPages := in.MaxPagesPerRun
	if maxPages <= 0 {
		maxPages = defaultMaxPagesPerRun
	}

	listCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 5},
	})
	var since *time.Time
	if in.ActiveWithinDays > 0 {
		t := now.AddDate(0, 0, -in.ActiveWithinDays)
		since = &t
	}
	userCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        time.Second,
			BackoffCoefficient:     2,
			MaximumAttempts:        3,
			NonRetryableErrorTypes: []string{"validation"},
		},
	})

	cursor := in.Cursor
	for pages := 0; ; pages++ {
		if shouldContinueAsNew(ctx, pages, maxPages, maxHistoryEvents) {
			next := in
			next.Now = now
			next.Cursor = cursor
			carry := res
			next.Carry = &carry
			workflow.GetLogger(ctx).Info("learner sweep continuing as new",
				"cursor", cursor, "users", res.Users, "runs", res.Runs)
			return res, workflow.NewContinueAsNewError(ctx, Workflow, next)
		}

		var users []string
		if err := workflow.ExecuteActivity(listCtx, ActivityListUsers, ListUsersInput{Since: since, After: cursor, Limit: pageSize}).Get(ctx, &users); err != nil {
			return res, err
		}
		res.Users += len(users)
		refreshBatches(ctx, userCtx, users, parallelism, now, &res)
		if len(users) > 0 {
			cursor = users[len(users)-1]
		}
		if len(users) < pageSize {
			break
		}
	}

	workflow.GetLogger(ctx).Info("learner sweep finished",
		"users", res.Users, "succeeded", res.Succeeded, "failed", res.Failed, "runs", res.Runs)
	return res, nil
}

func refreshBatches(ctx, userCtx workflow.Context, users []string, parallelism int, now time.Time, res *Result) {
	for start := 0; start < len(users); start += parallelism {
		end := start + parallelism
		if end > len(users) {
			end = len(users)
		}
		batch := users[start:end]
		futures := make([]workflow.Future, len(batch))
		for i, id := range batch {
			futures[i] = workflow.ExecuteActivity(userCtx, ActivityRefreshUser, RefreshUserInput{UserID: id, Now: now})
		}
		for i, f := range futures {
			var out RefreshUserResult
			if err := f.Get(ctx, &out); err != nil {
				res.recordFailure(batch[i], err)
				continue
			}
			res.Succeeded++
			res.Suggestions += out.Suggestions
		}
	}
}

func shouldContinueAsNew(ctx workflow.Context, pages int, maxPages int, maxHistory int) bool {
	if pages >= maxPages && maxPages > 0 {
		return true
	}
	info := workflow.GetInfo(ctx)
	if info == nil || maxHistory <= 0 {
		return false
	}
	return info.GetCurrentHistoryLength() >= maxHistory
}
