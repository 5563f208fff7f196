// internal/workers/application/assess-application-risk/config.go
package assessapplicationrisk

import (
	"time"

	"creative-funding/internal/common/config"
)

type Config struct {
	CacheTTL time.Duration
	Timeout  time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	timeout := config.GetDuration(config.GetWorkerConfig(cfg, TaskType).Timeout)
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Config{
		CacheTTL: 30 * time.Minute,
		Timeout:  timeout,
	}
}
