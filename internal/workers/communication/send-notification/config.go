// internal/workers/communication/send-notification/config.go
package sendnotification

import (
	"time"

	"broker-backoffice/internal/common/config"
)

type Config struct {
	EmailEnabled bool
	SMSEnabled   bool
	FromEmail    string
	AlertPhone   string
	SMSSenderID  string
	BatchSize    int
	Timeout      time.Duration
}

func LoadConfig() *Config {
	return &Config{
		BatchSize: 20,
		Timeout:   30 * time.Second,
	}
}

// ConfigFromApp reads mail and SMS settings. SES's own sender overrides the
// notifications sender when both are set.
func ConfigFromApp(cfg *config.Config) *Config {
	out := LoadConfig()
	if cfg == nil {
		return out
	}
	out.EmailEnabled = cfg.Notifications.Email.Enabled && cfg.Integrations.AWS.SES.Enabled
	out.FromEmail = cfg.Notifications.Email.FromEmail
	if cfg.Integrations.AWS.SES.FromEmail != "" {
		out.FromEmail = cfg.Integrations.AWS.SES.FromEmail
	}
	out.SMSEnabled = cfg.Notifications.SMS.Enabled && cfg.Integrations.AWS.SNS.Enabled
	out.AlertPhone = cfg.Integrations.AWS.SNS.AlertPhone
	out.SMSSenderID = cfg.Integrations.AWS.SNS.DefaultSMSSenderID
	if cfg.Notifications.BatchSize > 0 {
		out.BatchSize = cfg.Notifications.BatchSize
	}
	if wc := config.GetWorkerConfig(cfg, TaskType); wc.Timeout > 0 {
		out.Timeout = config.GetDuration(wc.Timeout)
	}
	return out
}
