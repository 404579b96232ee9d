package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/prepcoach-backend/internal/platform/envutil"
	"github.com/yungbote/prepcoach-backend/internal/platform/logger"
)

// Metrics is the process-wide registry for sweep and rule-engine telemetry. Every method is
// safe on a nil receiver, so callers never branch on METRICS_ENABLED.
type Metrics struct {
	sweepUsers     *CounterVec
	stageDuration  *HistogramVec
	suggestions    *CounterVec
	ruleErrors     *CounterVec
	grades         *CounterVec
	sweepLastRun   *GaugeVec
	dbStats        *GaugeVec
	redisUp        *GaugeVec
	collectorEvery time.Duration
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool { return envutil.Bool("METRICS_ENABLED", false) }

// Current returns the registry, or nil when metrics are disabled.
func Current() *Metrics { return instance }

func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = NewMetrics()
		if log != nil {
			log.Info("Observability metrics enabled")
		}
	})
	return instance
}

// NewMetrics builds an unregistered registry; Init is the usual entry point.
func NewMetrics() *Metrics {
	return &Metrics{
		sweepUsers: NewCounterVec("pc_sweep_users_total", "Users processed by learner sweeps, by status.", []string{"status"}),
		stageDuration: NewHistogramVec(
			"pc_learner_stage_duration_seconds",
			"Per-user learner refresh stage duration in seconds.",
			[]string{"stage", "status"},
			[]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		),
		suggestions:    NewCounterVec("pc_suggestions_total", "Suggestions returned by the rule engine.", []string{"trigger", "rule", "suggestion_type"}),
		ruleErrors:     NewCounterVec("pc_rule_errors_total", "Rule engine per-rule failures by kind.", []string{"kind"}),
		grades:         NewCounterVec("pc_grades_total", "Computed grades by grade and degraded flag.", []string{"grade", "degraded"}),
		sweepLastRun:   NewGaugeVec("pc_sweep_last_run_timestamp_seconds", "Unix time of the last finished sweep, by outcome.", []string{"outcome"}),
		dbStats:        NewGaugeVec("pc_db_stats", "Database pool stats.", []string{"metric"}),
		redisUp:        NewGaugeVec("pc_redis_up", "Redis connectivity (1=up, 0=down).", []string{}),
		collectorEvery: envutil.Duration("METRICS_SCRAPE_INTERVAL_SECONDS", 10*time.Second),
	}
}

func (m *Metrics) ObserveStage(stage, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.Observe(dur.Seconds(), stage, status)
}

func (m *Metrics) IncSweepUser(status string) {
	if m == nil {
		return
	}
	m.sweepUsers.Inc(status)
}

func (m *Metrics) SweepUsers(status string) float64 {
	if m == nil {
		return 0
	}
	return m.sweepUsers.Value(status)
}

func (m *Metrics) MarkSweepFinished(outcome string, at time.Time) {
	if m == nil {
		return
	}
	m.sweepLastRun.Set(float64(at.Unix()), outcome)
}

func (m *Metrics) IncSuggestion(trigger, ruleID, suggestionType string) {
	if m == nil {
		return
	}
	m.suggestions.Inc(trigger, ruleID, suggestionType)
}

func (m *Metrics) IncRuleError(kind string) {
	if m == nil {
		return
	}
	if strings.TrimSpace(kind) == "" {
		kind = "other"
	}
	m.ruleErrors.Inc(kind)
}

func (m *Metrics) IncGrade(grade string, degraded bool) {
	if m == nil {
		return
	}
	d := "false"
	if degraded {
		d = "true"
	}
	m.grades.Inc(grade, d)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	writers := []interface{ WritePrometheus(io.Writer) error }{
		m.sweepUsers, m.stageDuration, m.suggestions, m.ruleErrors, m.grades, m.sweepLastRun, m.dbStats, m.redisUp,
	}
	for _, mw := range writers {
		if err := mw.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, _ *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

// StartServer serves /metrics on addr until ctx is done.
func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil || strings.TrimSpace(addr) == "" {
		return
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", m.WriteHTTP)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed && log != nil {
			log.Error("metrics server failed", "error", err, "addr", addr)
		}
	}()
}

func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(m.collectorEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: db stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.dbStats.Set(float64(stats.OpenConnections), "open_connections")
				m.dbStats.Set(float64(stats.InUse), "in_use")
				m.dbStats.Set(float64(stats.Idle), "idle")
				m.dbStats.Set(float64(stats.WaitCount), "wait_count")
				m.dbStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
			}
		}
	}()
}

func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil || strings.TrimSpace(addr) == "" {
		return
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	go func() {
		ticker := time.NewTicker(m.collectorEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = rdb.Close()
				return
			case <-ticker.C:
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
			}
		}
	}()
}
