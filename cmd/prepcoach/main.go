package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/prepcoach-backend/internal/app"
	"github.com/yungbote/prepcoach-backend/internal/data/db"
	types "github.com/yungbote/prepcoach-backend/internal/domain"
	"github.com/yungbote/prepcoach-backend/internal/jobs/pipeline/learner_refresh"
	"github.com/yungbote/prepcoach-backend/internal/modules/learning/grade"
	"github.com/yungbote/prepcoach-backend/internal/modules/learning/review"
	"github.com/yungbote/prepcoach-backend/internal/temporalx"
	"github.com/yungbote/prepcoach-backend/internal/temporalx/temporalworker"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "prepcoach",
		Short:         "Adaptive mastery, review scheduling and coaching suggestions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	root.AddCommand(migrateCmd(), sweepCmd(), workerCmd(), gradeCmd(), dueCmd(), suggestCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseUser(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("invalid --user %q", raw)
	}
	return id, nil
}

func parseAt(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now().UTC(), nil
	}
	return time.Parse(time.RFC3339, raw)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(_ context.Context, a *app.App) error {
				if err := db.AutoMigrateAll(a.DB); err != nil {
					return err
				}
				a.Log.Info("Schema migrated", "driver", a.Cfg.Database.Driver)
				return nil
			})
		},
	}
}

func sweepCmd() *cobra.Command {
	var activeWithinDays int
	var at string
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Refresh every learner in-process and evaluate scheduled triggers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			now, err := parseAt(at)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				a.Start(ctx)
				in := learner_refresh.SweepInput{Now: now}
				days := activeWithinDays
				if days == 0 {
					days = a.Cfg.Sweep.ActiveWithinDays
				}
				if days > 0 {
					since := now.AddDate(0, 0, -days)
					in.Since = &since
				}
				sum, err := a.Pipeline.Sweep(ctx, in)
				if err != nil {
					return err
				}
				return printJSON(sum)
			})
		},
	}
	cmd.Flags().IntVar(&activeWithinDays, "active-within-days", 0, "only users with attempts in the last N days")
	cmd.Flags().StringVar(&at, "at", "", "evaluation time (RFC3339), defaults to now")
	return cmd
}

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the Temporal worker that executes scheduled learner sweeps",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				tc, err := temporalx.NewClient(a.Log)
				if err != nil {
					return err
				}
				if tc == nil {
					return fmt.Errorf("TEMPORAL_ADDRESS is required for the worker")
				}
				defer tc.Close()
				a.Start(ctx)
				runner, err := temporalworker.NewRunner(a.Log, tc, a.Pipeline)
				if err != nil {
					return err
				}
				if err := runner.Start(ctx); err != nil {
					return err
				}
				<-ctx.Done()
				a.Log.Info("Worker shutting down")
				return nil
			})
		},
	}
}

func gradeCmd() *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "grade",
		Short: "Compute and store one learner's letter grade",
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := parseUser(user)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				out, err := grade.Compute(ctx, grade.ComputeDeps{
					Log:       a.Log,
					Subjects:  a.Repos.Subjects,
					Topics:    a.Repos.Topics,
					Snapshots: a.Repos.Snapshots,
					Tests:     a.Repos.Tests,
					Grades:    a.Repos.Grades,
				}, grade.ComputeInput{UserID: userID})
				if err != nil {
					return err
				}
				a.Metrics.IncGrade(string(out.Grade), out.Degraded)
				return printJSON(out)
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "learner id")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func dueCmd() *cobra.Command {
	var user string
	var limit int
	cmd := &cobra.Command{
		Use:   "due",
		Short: "List a learner's due reviews, most overdue first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := parseUser(user)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				rows, err := review.DueReviews(ctx, review.SchedulerDeps{
					DB:        a.DB,
					Log:       a.Log,
					Topics:    a.Repos.Topics,
					Schedules: a.Repos.Schedules,
				}, userID, time.Now().UTC(), limit)
				if err != nil {
					return err
				}
				return printJSON(rows)
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "learner id")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum rows (0 for all)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func suggestCmd() *cobra.Command {
	var user, trigger, at string
	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Evaluate the rule book for one learner and trigger",
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := parseUser(user)
			if err != nil {
				return err
			}
			trig := types.Trigger(trigger)
			if !trig.Valid() {
				return fmt.Errorf("unknown --trigger %q", trigger)
			}
			now, err := parseAt(at)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				sugs, err := a.Pipeline.Evaluate(ctx, userID, trig, now, nil)
				if err != nil && len(sugs) == 0 {
					return err
				}
				if err != nil {
					a.Log.Warn("some rules failed", "error", err)
				}
				return printJSON(sugs)
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "learner id")
	cmd.Flags().StringVar(&trigger, "trigger", string(types.TriggerDailyCheck), "trigger to evaluate")
	cmd.Flags().StringVar(&at, "at", "", "evaluation time (RFC3339), defaults to now")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
