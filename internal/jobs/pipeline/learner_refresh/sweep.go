package learner_refresh

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/prepcoach-backend/internal/platform/dbctx"
)

type SweepInput struct {
	Now time.Time
	// Since limits the sweep to users with attempts after it; nil sweeps everyone.
	Since *time.Time
}

type SweepSummary struct {
	Users       int               `json:"users"`
	Succeeded   int               `json:"succeeded"`
	Failed      int               `json:"failed"`
	Suggestions int               `json:"suggestions"`
	Errors      map[string]string `json:"errors,omitempty"`
}

// ListUsers returns the users a sweep covers.
func (p *Pipeline) ListUsers(ctx context.Context, since *time.Time) ([]uuid.UUID, error) {
	if p == nil || p.repos.Attempts == nil {
		return nil, fmt.Errorf("learner_refresh: missing deps")
	}
	return p.repos.Attempts.ListUserIDs(dbctx.Context{Ctx: ctx}, since)
}

// Sweep refreshes every user with bounded concurrency. A failing user is recorded in the
// summary and never stops the others; only listing users can fail the sweep.
func (p *Pipeline) Sweep(ctx context.Context, in SweepInput) (SweepSummary, error) {
	sum := SweepSummary{Errors: map[string]string{}}
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	users, err := p.ListUsers(ctx, in.Since)
	if err != nil {
		p.metrics.MarkSweepFinished("error", time.Now())
		return sum, fmt.Errorf("learner_refresh: list users: %w", err)
	}
	sum.Users = len(users)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for _, userID := range users {
		userID := userID
		g.Go(func() error {
			res, err := p.RunUser(gctx, RunInput{UserID: userID, Now: now})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				sum.Failed++
				sum.Errors[userID.String()] = err.Error()
				p.metrics.IncSweepUser("failed")
				p.log.Warn("learner refresh failed", "user_id", userID, "error", err)
				return nil
			}
			sum.Succeeded++
			for _, sugs := range res.Suggestions {
				sum.Suggestions += len(sugs)
			}
			p.metrics.IncSweepUser("succeeded")
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		p.metrics.MarkSweepFinished("canceled", time.Now())
		return sum, err
	}
	outcome := "ok"
	if sum.Failed > 0 {
		outcome = "partial"
	}
	p.metrics.MarkSweepFinished(outcome, time.Now())
	p.log.Info("learner sweep finished",
		"users", sum.Users,
		"succeeded", sum.Succeeded,
		"failed", sum.Failed,
		"suggestions", sum.Suggestions,
	)
	return sum, nil
}

// FailedUsers lists the users whose refresh failed, in id order.
func (s SweepSummary) FailedUsers() []string {
	out := make([]string, 0, len(s.Errors))
	for id := range s.Errors {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
