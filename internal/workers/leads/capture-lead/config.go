package capturelead

import (
	"fmt"
	"time"

	"broker-backoffice/internal/common/config"
)

type Config struct {
	Enabled       bool
	MaxJobsActive int
	Timeout       time.Duration
	ContentName   string
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30 * time.Second,
		ContentName:   "Formulário de Contato",
	}
}

// ConfigFromApp overlays the worker section and contact settings of cfg.
func ConfigFromApp(cfg *config.Config) *Config {
	out := DefaultConfig()
	if cfg == nil {
		return out
	}
	wc := config.GetWorkerConfig(cfg, TaskType)
	out.Enabled = wc.Enabled
	if wc.MaxJobsActive > 0 {
		out.MaxJobsActive = wc.MaxJobsActive
	}
	if wc.Timeout > 0 {
		out.Timeout = config.GetDuration(wc.Timeout)
	}
	if cfg.Contact.ContentName != "" {
		out.ContentName = cfg.Contact.ContentName
	}
	return out
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	return nil
}
