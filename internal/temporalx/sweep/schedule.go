package sweep

import (
	"context"
	"errors"
	"strings"

	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"

	"github.com/yungbote/prepcoach-backend/internal/platform/logger"
	"github.com/yungbote/prepcoach-backend/internal/temporalx"
)

// EnsureSchedule creates the cron schedule that starts Workflow. An existing schedule with the
// same id is left untouched.
func EnsureSchedule(ctx context.Context, c temporalsdkclient.Client, cfg temporalx.Config, log *logger.Logger) error {
	if c == nil || strings.TrimSpace(cfg.SweepCron) == "" {
		return nil
	}
	_, err := c.ScheduleClient().Create(ctx, temporalsdkclient.ScheduleOptions{
		ID: cfg.SweepScheduleID,
		Spec: temporalsdkclient.ScheduleSpec{
			CronExpressions: []string{cfg.SweepCron},
		},
		Action: &temporalsdkclient.ScheduleWorkflowAction{
			ID:        cfg.SweepScheduleID + "-run",
			Workflow:  WorkflowName,
			TaskQueue: cfg.TaskQueue,
			Args:      []interface{}{Input{}},
		},
	})
	if errors.Is(err, temporal.ErrScheduleAlreadyRunning) {
		return nil
	}
	if err != nil {
		return err
	}
	if log != nil {
		log.Info("Created learner sweep schedule", "schedule_id", cfg.SweepScheduleID, "cron", cfg.SweepCron)
	}
	return nil
}
