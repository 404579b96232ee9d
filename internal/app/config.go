package app

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/yungbote/prepcoach-backend/internal/platform/validate"
)

type Config struct {
	Mode     string         `mapstructure:"mode" validate:"required,oneof=development production test"`
	Database DatabaseConfig `mapstructure:"database"`
	Sweep    SweepConfig    `mapstructure:"sweep"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type DatabaseConfig struct {
	Driver      string `mapstructure:"driver" validate:"required,oneof=sqlite postgres"`
	SQLitePath  string `mapstructure:"sqlite_path"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

type SweepConfig struct {
	Concurrency      int `mapstructure:"concurrency" validate:"gte=1,lte=64"`
	ActiveWithinDays int `mapstructure:"active_within_days" validate:"gte=0"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoadConfig layers defaults, an optional YAML file, a local .env and PREPCOACH_* variables,
// later sources winning. Driver-level settings (POSTGRES_*, REDIS_*, TEMPORAL_*) stay plain
// env vars read by the packages that own them.
func LoadConfig(path string) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("prepcoach")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if strings.TrimSpace(path) != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Mode = strings.ToLower(strings.TrimSpace(cfg.Mode))
	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	if err := validate.Struct("config", cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "development")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.sqlite_path", "")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("sweep.concurrency", 4)
	v.SetDefault("sweep.active_within_days", 0)
	v.SetDefault("metrics.addr", "")
}
