package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Staking StakingConfig `mapstructure:"staking"`
	Db      DbConfig      `mapstructure:"db"`
	Api     ApiConfig     `mapstructure:"api"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Queue   QueueConfig   `mapstructure:"queue"`
	Audit   AuditConfig   `mapstructure:"audit"`
}

func (cfg *Config) Validate() error {
	if err := cfg.Staking.Validate(); err != nil {
		return fmt.Errorf("invalid staking config: %w", err)
	}
	if err := cfg.Db.Validate(); err != nil {
		return fmt.Errorf("invalid db config: %w", err)
	}
	if err := cfg.Api.Validate(); err != nil {
		return fmt.Errorf("invalid api config: %w", err)
	}
	if err := cfg.Metrics.Validate(); err != nil {
		return fmt.Errorf("invalid metrics config: %w", err)
	}
	if err := cfg.Queue.Validate(); err != nil {
		return fmt.Errorf("invalid queue config: %w", err)
	}
	if err := cfg.Audit.Validate(); err != nil {
		return fmt.Errorf("invalid audit config: %w", err)
	}
	return nil
}

// New returns a fully parsed and validated Config from the given file.
// Environment variables override file values, dots replaced by underscores
// (STAKING_LOCK-PERIOD style keys).
func New(cfgFile string) (*Config, error) {
	viper.SetConfigFile(cfgFile)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", cfgFile, err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
