package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/prepcoach-backend/internal/modules/learning/coaching"
	"github.com/yungbote/prepcoach-backend/internal/platform/envutil"
	"github.com/yungbote/prepcoach-backend/internal/platform/logger"
)

// CooldownStore keeps the last fire time of each (user, rule) in Redis. Keys expire when the
// rule's suppression window ends, so a missing key and an elapsed window read the same.
type CooldownStore struct {
	log    *logger.Logger
	rdb    *goredis.Client
	prefix string
}

// NewCooldownStore dials REDIS_ADDR. Keys are namespaced by REDIS_COOLDOWN_PREFIX.
func NewCooldownStore(log *logger.Logger) (*CooldownStore, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := envutil.String("REDIS_ADDR", "")
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    envutil.String("REDIS_PASSWORD", ""),
		DB:          envutil.Int("REDIS_DB", 0),
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewCooldownStoreFromClient(log, rdb, envutil.String("REDIS_COOLDOWN_PREFIX", "")), nil
}

func NewCooldownStoreFromClient(log *logger.Logger, rdb *goredis.Client, prefix string) *CooldownStore {
	if log == nil {
		log = logger.Nop()
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "prepcoach:cooldown"
	}
	return &CooldownStore{
		log:    log.With("service", "RedisCooldownStore"),
		rdb:    rdb,
		prefix: prefix,
	}
}

func (s *CooldownStore) key(userID uuid.UUID, ruleID string) string {
	return s.prefix + ":" + userID.String() + ":" + ruleID
}

func (s *CooldownStore) LastFiredAt(ctx context.Context, userID uuid.UUID, ruleID string) (*time.Time, error) {
	if s == nil || s.rdb == nil {
		return nil, fmt.Errorf("redis cooldown store not initialized")
	}
	raw, err := s.rdb.Get(ctx, s.key(userID, ruleID)).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, fmt.Errorf("cooldown %s: bad timestamp %q: %w", ruleID, raw, err)
	}
	return &t, nil
}

// RecordFired stores every suggestion that has a suppression window. Suggestions whose window
// is already over are skipped.
func (s *CooldownStore) RecordFired(ctx context.Context, userID uuid.UUID, _ string, firedAt time.Time, out []coaching.Suggestion) error {
	if s == nil || s.rdb == nil {
		return fmt.Errorf("redis cooldown store not initialized")
	}
	pipe := s.rdb.TxPipeline()
	queued := 0
	for _, sug := range out {
		ttl := sug.ActiveUntil.Sub(firedAt)
		if ttl <= 0 {
			continue
		}
		pipe.Set(ctx, s.key(userID, sug.RuleID), firedAt.UTC().Format(time.RFC3339Nano), ttl)
		queued++
	}
	if queued == 0 {
		return nil
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis cooldown write: %w", err)
	}
	s.log.Debug("cooldowns recorded", "user_id", userID, "count", queued)
	return nil
}

func (s *CooldownStore) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}
