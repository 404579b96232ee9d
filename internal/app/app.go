package app

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/prepcoach-backend/internal/data/db"
	"github.com/yungbote/prepcoach-backend/internal/jobs/pipeline/learner_refresh"
	"github.com/yungbote/prepcoach-backend/internal/modules/learning/coaching"
	"github.com/yungbote/prepcoach-backend/internal/observability"
	"github.com/yungbote/prepcoach-backend/internal/platform/envutil"
	"github.com/yungbote/prepcoach-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Repos    Repos
	Clients  Clients
	Book     *coaching.RuleBook
	Engine   *coaching.Engine
	Pipeline *learner_refresh.Pipeline
	Metrics  *observability.Metrics

	closeDB       func() error
	shutdownOTel  func(context.Context) error
	cancelRuntime context.CancelFunc
}

func New(ctx context.Context, cfg Config) (*App, error) {
	log, err := logger.New(cfg.Mode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &App{Log: log, Cfg: cfg}
	if err := a.openDB(); err != nil {
		log.Sync()
		return nil, err
	}
	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrateAll(a.DB); err != nil {
			a.Close()
			return nil, fmt.Errorf("automigrate: %w", err)
		}
	}

	a.shutdownOTel = observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "prepcoach",
		Environment: cfg.Mode,
		Version:     envutil.String("APP_VERSION", ""),
	})
	a.Metrics = observability.Init(log)

	a.Repos = wireRepos(a.DB, log)
	if a.Clients, err = wireClients(log); err != nil {
		a.Close()
		return nil, err
	}

	if a.Book, err = coaching.Load(log); err != nil {
		a.Close()
		return nil, fmt.Errorf("load rule book: %w", err)
	}
	a.Engine = wireEngine(log, a.Repos, a.Clients)
	a.Pipeline = learner_refresh.New(a.DB, log, a.Repos.Repos, a.Engine, a.Book,
		learner_refresh.WithMetrics(a.Metrics),
		learner_refresh.WithConcurrency(cfg.Sweep.Concurrency),
	)
	log.Info("App wired", "db_driver", cfg.Database.Driver, "rule_book", a.Book.Version, "fan_out", a.Engine.Policy().Mode)
	return a, nil
}

func (a *App) openDB() error {
	switch a.Cfg.Database.Driver {
	case "postgres":
		pg, err := db.NewPostgresService(a.Log)
		if err != nil {
			return fmt.Errorf("init postgres: %w", err)
		}
		a.DB, a.closeDB = pg.DB(), pg.Close
	default:
		gdb, err := db.OpenSQLite(a.Cfg.Database.SQLitePath, a.Log)
		if err != nil {
			return fmt.Errorf("init sqlite: %w", err)
		}
		a.DB = gdb
		a.closeDB = func() error {
			sqlDB, err := gdb.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		}
	}
	return nil
}

// wireEngine consults the Redis cooldown cache before the event log, and records fired rules
// in both.
func wireEngine(log *logger.Logger, r Repos, c Clients) *coaching.Engine {
	events := coaching.NewEventStore(r.Events)
	lookups := coaching.Lookups{}
	recorders := coaching.Recorders{events}
	if c.Cooldown != nil {
		lookups = append(lookups, c.Cooldown)
		recorders = append(recorders, c.Cooldown)
	}
	lookups = append(lookups, events)
	return coaching.NewEngine(log, lookups,
		coaching.WithPolicy(coaching.PolicyFromEnv()),
		coaching.WithRecorder(recorders),
	)
}

// Start launches background collectors and the metrics endpoint.
func (a *App) Start(ctx context.Context) {
	if a == nil || a.cancelRuntime != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	a.cancelRuntime = cancel
	a.Metrics.StartServer(ctx, a.Log, a.Cfg.Metrics.Addr)
	a.Metrics.StartDBCollector(ctx, a.Log, a.DB)
	a.Metrics.StartRedisCollector(ctx, a.Log, envutil.String("REDIS_ADDR", ""))
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancelRuntime != nil {
		a.cancelRuntime()
		a.cancelRuntime = nil
	}
	if a.shutdownOTel != nil {
		_ = a.shutdownOTel(context.Background())
	}
	a.Clients.Close()
	if a.closeDB != nil {
		if err := a.closeDB(); err != nil && a.Log != nil {
			a.Log.Warn("close database failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
