package config

import "fmt"

// QueueConfig wires the AMQP event publisher. Disabled queues skip
// publishing entirely; the event log in the database is still written.
type QueueConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Url      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

func (cfg *QueueConfig) Validate() error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Url == "" {
		return fmt.Errorf("missing queue url")
	}
	if cfg.Exchange == "" {
		return fmt.Errorf("missing queue exchange")
	}

	return nil
}
