package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mcdev12/placehub/go/internal/dbconfig"
	"github.com/mcdev12/placehub/go/internal/eventbus"
	"github.com/mcdev12/placehub/go/internal/eventlog"
)

type Config struct {
	Broker struct {
		URL           string `yaml:"url"`
		Name          string `yaml:"name"`
		MaxRetries    int    `yaml:"max_retries"`
		RetryBaseWait string `yaml:"retry_base_wait"`
	} `yaml:"broker"`
	Stream struct {
		Name            string `yaml:"name"`
		SubjectPrefix   string `yaml:"subject_prefix"`
		ConsumerGroup   string `yaml:"consumer_group"`
		MaxDeliver      int    `yaml:"max_deliver"`
		AckWait         string `yaml:"ack_wait"`
		DuplicateWindow string `yaml:"duplicate_window"`
	} `yaml:"stream"`
	Redelivery struct {
		FallbackInterval string `yaml:"fallback_interval"`
		GracePeriod      string `yaml:"grace_period"`
		BatchSize        int    `yaml:"batch_size"`
	} `yaml:"redelivery"`
	Redis struct {
		Addr string `yaml:"addr"`
	} `yaml:"redis"`
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// durationOr parses a duration string from config, keeping the default when
// the value is absent or malformed.
func durationOr(value string, defaultValue time.Duration) time.Duration {
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

func connectionConfig(cfg *Config) eventbus.ConnectionConfig {
	cc := eventbus.DefaultConnectionConfig()
	if cfg.Broker.URL != "" {
		cc.URL = cfg.Broker.URL
	}
	if cfg.Broker.Name != "" {
		cc.Name = cfg.Broker.Name
	}
	if cfg.Broker.MaxRetries > 0 {
		cc.MaxRetries = cfg.Broker.MaxRetries
	}
	cc.RetryBaseWait = durationOr(cfg.Broker.RetryBaseWait, cc.RetryBaseWait)
	cc.URL = getEnv("NATS_URL", cc.URL)
	return cc
}

func busConfig(cfg *Config) eventbus.Config {
	bc := eventbus.DefaultConfig()
	if cfg.Stream.Name != "" {
		bc.StreamName = cfg.Stream.Name
	}
	if cfg.Stream.SubjectPrefix != "" {
		bc.SubjectPrefix = cfg.Stream.SubjectPrefix
	}
	if cfg.Stream.ConsumerGroup != "" {
		bc.ConsumerGroup = cfg.Stream.ConsumerGroup
	}
	if cfg.Stream.MaxDeliver > 0 {
		bc.MaxDeliver = cfg.Stream.MaxDeliver
	}
	bc.AckWait = durationOr(cfg.Stream.AckWait, bc.AckWait)
	bc.DuplicateWindow = durationOr(cfg.Stream.DuplicateWindow, bc.DuplicateWindow)
	return bc
}

func listenerConfig(cfg *Config, dbcfg dbconfig.Config) eventlog.ListenerConfig {
	lc := eventlog.DefaultListenerConfig()
	lc.DatabaseURL = dbcfg.DSN()
	lc.FallbackInterval = durationOr(cfg.Redelivery.FallbackInterval, lc.FallbackInterval)
	lc.GracePeriod = durationOr(cfg.Redelivery.GracePeriod, lc.GracePeriod)
	if cfg.Redelivery.BatchSize > 0 {
		lc.BatchSize = cfg.Redelivery.BatchSize
	}
	return lc
}
