package config

import (
	"errors"
	"time"
)

type AuditConfig struct {
	PollingInterval time.Duration `mapstructure:"polling-interval"`
}

func (cfg *AuditConfig) Validate() error {
	if cfg.PollingInterval <= 0 {
		return errors.New("polling-interval must be positive")
	}

	return nil
}
