// internal/workers/application/send-decision-notification/config.go
package senddecisionnotification

import (
	"time"

	"creative-funding/internal/common/config"
)

type Config struct {
	EmailEnabled bool
	SMSEnabled   bool
	FromEmail    string
	PortalURL    string
	Timeout      time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	timeout := config.GetDuration(config.GetWorkerConfig(cfg, TaskType).Timeout)
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Config{
		EmailEnabled: cfg.Integrations.AWS.SES.Enabled,
		SMSEnabled:   cfg.Integrations.AWS.SNS.Enabled,
		FromEmail:    cfg.Integrations.AWS.SES.FromEmail,
		PortalURL:    cfg.App.PublicURL,
		Timeout:      timeout,
	}
}
