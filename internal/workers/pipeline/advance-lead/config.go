package advancelead

import (
	"fmt"
	"time"

	"broker-backoffice/internal/common/config"
)

type Config struct {
	Enabled       bool
	MaxJobsActive int
	Timeout       time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       15 * time.Second,
	}
}

func ConfigFromApp(cfg *config.Config) *Config {
	out := DefaultConfig()
	if cfg == nil {
		return out
	}
	wc := config.GetWorkerConfig(cfg, TaskType)
	out.Enabled = wc.Enabled
	out.MaxJobsActive = wc.MaxJobsActive
	if wc.Timeout > 0 {
		out.Timeout = config.GetDuration(wc.Timeout)
	}
	return out
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}
