package app

import (
	"fmt"

	"github.com/yungbote/prepcoach-backend/internal/clients/redis"
	"github.com/yungbote/prepcoach-backend/internal/platform/envutil"
	"github.com/yungbote/prepcoach-backend/internal/platform/logger"
)

type Clients struct {
	// Cooldown is nil when REDIS_ADDR is unset.
	Cooldown *redis.CooldownStore
}

func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")

	var cooldown *redis.CooldownStore
	if envutil.String("REDIS_ADDR", "") != "" {
		c, err := redis.NewCooldownStore(log)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis cooldown store: %w", err)
		}
		cooldown = c
	}
	return Clients{Cooldown: cooldown}, nil
}

func (c Clients) Close() {
	if c.Cooldown != nil {
		_ = c.Cooldown.Close()
	}
}
