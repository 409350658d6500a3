package store

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	UserAgent  string   `yaml:"user_agent"`
	WebhookURL string   `yaml:"webhook_url"`
	DBPath     string   `yaml:"db_path"`
	Watchlist  []string `yaml:"watchlist"`
	Feeds      struct {
		PollMinutes    int `yaml:"poll_minutes"`
		LookbackDays   int `yaml:"lookback_days"`
		MaxConcurrent  int `yaml:"max_concurrent"`
		TimeoutSeconds int `yaml:"timeout_seconds"`
		RequestsPerSec int `yaml:"requests_per_sec"`
		BackoffSeconds int `yaml:"backoff_seconds"`
	} `yaml:"feeds"`
	Webhook struct {
		TimeoutSeconds int `yaml:"timeout_seconds"`
	} `yaml:"webhook"`
	Details struct {
		// FetchDocuments controls whether filing bodies are downloaded and
		// parsed into transactions; metadata-only monitoring works without it.
		FetchDocuments bool `yaml:"fetch_documents"`
	} `yaml:"details"`
}

func (c *Config) Validate() error {
	if c.UserAgent == "" {
		return errors.New("user_agent is required (SEC requires contact information)")
	}
	if c.Feeds.PollMinutes <= 0 {
		return fmt.Errorf("feeds.poll_minutes must be positive, got %d", c.Feeds.PollMinutes)
	}
	if c.Feeds.LookbackDays <= 0 {
		return fmt.Errorf("feeds.lookback_days must be positive, got %d", c.Feeds.LookbackDays)
	}
	if c.Feeds.MaxConcurrent < 1 {
		return fmt.Errorf("feeds.max_concurrent must be at least 1, got %d", c.Feeds.MaxConcurrent)
	}
	if c.Feeds.TimeoutSeconds < 1 {
		return fmt.Errorf("feeds.timeout_seconds must be at least 1, got %d", c.Feeds.TimeoutSeconds)
	}
	if c.Webhook.TimeoutSeconds < 1 {
		return fmt.Errorf("webhook.timeout_seconds must be at least 1, got %d", c.Webhook.TimeoutSeconds)
	}
	return nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	applyDefaults(&c)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}

// DefaultConfig returns a config with all defaults filled, for callers that
// run without a config file.
func DefaultConfig() *Config {
	var c Config
	applyDefaults(&c)
	return &c
}

func applyDefaults(c *Config) {
	if c.UserAgent == "" {
		c.UserAgent = "insider-monitor/1.0 (contact@example.com)"
	}
	if c.DBPath == "" {
		c.DBPath = "insider_monitor.db"
	}
	if c.Feeds.PollMinutes == 0 {
		c.Feeds.PollMinutes = 30
	}
	if c.Feeds.LookbackDays == 0 {
		c.Feeds.LookbackDays = 7
	}
	if c.Feeds.MaxConcurrent == 0 {
		c.Feeds.MaxConcurrent = 10
	}
	if c.Feeds.TimeoutSeconds == 0 {
		c.Feeds.TimeoutSeconds = 30
	}
	if c.Feeds.RequestsPerSec == 0 {
		c.Feeds.RequestsPerSec = 10
	}
	if c.Feeds.BackoffSeconds == 0 {
		c.Feeds.BackoffSeconds = 60
	}
	if c.Webhook.TimeoutSeconds == 0 {
		c.Webhook.TimeoutSeconds = 10
	}
}
