package temporalx

import (
	"github.com/yungbote/prepcoach-backend/internal/platform/envutil"
)

type Config struct {
	Address   string
	Namespace string
	TaskQueue string

	ClientCertPath string
	ClientKeyPath  string
	ClientCAPath   string

	// SweepCron schedules the learner sweep; empty leaves scheduling to an operator.
	SweepCron       string
	SweepScheduleID string
}

func LoadConfig() Config {
	return Config{
		Address:   envutil.String("TEMPORAL_ADDRESS", ""),
		Namespace: envutil.String("TEMPORAL_NAMESPACE", "prepcoach"),
		TaskQueue: envutil.String("TEMPORAL_TASK_QUEUE", "prepcoach"),

		ClientCertPath: envutil.String("TEMPORAL_CLIENT_CERT_PATH", ""),
		ClientKeyPath:  envutil.String("TEMPORAL_CLIENT_KEY_PATH", ""),
		ClientCAPath:   envutil.String("TEMPORAL_CLIENT_CA_PATH", ""),

		SweepCron:       envutil.String("TEMPORAL_SWEEP_CRON", "0 2 * * *"),
		SweepScheduleID: envutil.String("TEMPORAL_SWEEP_SCHEDULE_ID", "prepcoach-learner-sweep"),
	}
}

func (c Config) mtls() bool {
	return c.ClientCertPath != "" || c.ClientKeyPath != "" || c.ClientCAPath != ""
}
