package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/vitos/momentum_pulse/internal/usecase"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Logging struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"logging"`
	Broker  BrokerConfig  `yaml:"broker"`
	Trading TradingConfig `yaml:"trading"`
	Feed    FeedConfig    `yaml:"feed"`
	Storage struct {
		JournalPath string `yaml:"journal_path"`
	} `yaml:"storage"`
}

type BrokerConfig struct {
	BaseURL     string `yaml:"base_url"`
	AppID       string `yaml:"app_id"`
	APIKey      string `yaml:"api_key"`
	AccessToken string `yaml:"access_token"`
	UserID      string `yaml:"user_id"`
	TimeoutMs   int    `yaml:"timeout_ms"`
}

// TradingConfig describes the session window signals are accepted in.
// An empty Weekdays list means every day.
type TradingConfig struct {
	DryRun   bool     `yaml:"dry_run"`
	Timezone string   `yaml:"timezone"`
	Open     string   `yaml:"open"`
	Close    string   `yaml:"close"`
	Weekdays []string `yaml:"weekdays"`
	Holidays []string `yaml:"holidays"`
}

// FeedConfig controls the price sources. An empty WSURL disables the
// WebSocket feed.
type FeedConfig struct {
	WSURL               string `yaml:"ws_url"`
	PollIntervalMs      int    `yaml:"poll_interval_ms"`
	SubscribeIntervalMs int    `yaml:"subscribe_interval_ms"`
}

const (
	defaultPort                = 8000
	defaultLogLevel            = "info"
	defaultTimeoutMs           = 10000
	defaultTimezone            = "Asia/Kolkata"
	defaultOpen                = "09:00"
	defaultClose               = "16:00"
	defaultPollIntervalMs      = 5000
	defaultSubscribeIntervalMs = 5000
)

var defaultWeekdays = []string{"Mon", "Tue", "Wed", "Thu", "Fri"}

// Load reads envFile (if present) into the process environment, decodes the
// YAML file at path (if present), applies defaults and environment overrides
// and validates the result.
func Load(path, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	cfg.applyDefaults()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = defaultPort
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Broker.TimeoutMs == 0 {
		c.Broker.TimeoutMs = defaultTimeoutMs
	}
	if c.Trading.Timezone == "" {
		c.Trading.Timezone = defaultTimezone
	}
	if c.Trading.Open == "" {
		c.Trading.Open = defaultOpen
	}
	if c.Trading.Close == "" {
		c.Trading.Close = defaultClose
	}
	if c.Trading.Weekdays == nil {
		c.Trading.Weekdays = append([]string(nil), defaultWeekdays...)
	}
	if c.Feed.PollIntervalMs == 0 {
		c.Feed.PollIntervalMs = defaultPollIntervalMs
	}
	if c.Feed.SubscribeIntervalMs == 0 {
		c.Feed.SubscribeIntervalMs = defaultSubscribeIntervalMs
	}
}

func (c *Config) applyEnv() error {
	overrides := map[string]*string{
		"ALICE_APP_ID":       &c.Broker.AppID,
		"ALICE_API_KEY":      &c.Broker.APIKey,
		"ALICE_ACCESS_TOKEN": &c.Broker.AccessToken,
		"ALICE_USER_ID":      &c.Broker.UserID,
	}
	for key, dst := range overrides {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := os.LookupEnv("DRY_RUN"); ok && v != "" {
		dryRun, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("DRY_RUN: %w", err)
		}
		c.Trading.DryRun = dryRun
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Broker.TimeoutMs < 0 {
		return fmt.Errorf("broker.timeout_ms must not be negative")
	}
	if c.Feed.PollIntervalMs < 0 || c.Feed.SubscribeIntervalMs < 0 {
		return fmt.Errorf("feed intervals must not be negative")
	}
	if _, err := time.LoadLocation(c.Trading.Timezone); err != nil {
		return fmt.Errorf("trading.timezone: %w", err)
	}
	if _, err := c.Calendar(); err != nil {
		return err
	}

	if !c.Trading.DryRun {
		missing := []string{}
		if c.Broker.AppID == "" {
			missing = append(missing, "app_id")
		}
		if c.Broker.AccessToken == "" {
			missing = append(missing, "access_token")
		}
		if c.Broker.UserID == "" {
			missing = append(missing, "user_id")
		}
		if len(missing) > 0 {
			return fmt.Errorf("broker credentials required in live mode: %s", strings.Join(missing, ", "))
		}
	}
	return nil
}

// Calendar builds the trading session calendar from the trading section.
func (c *Config) Calendar() (*usecase.SessionCalendar, error) {
	cal, err := usecase.NewSessionCalendar(c.Trading.Timezone, c.Trading.Open, c.Trading.Close, c.Trading.Weekdays, c.Trading.Holidays)
	if err != nil {
		return nil, fmt.Errorf("trading: %w", err)
	}
	return cal, nil
}

func (c *Config) BrokerTimeout() time.Duration {
	return time.Duration(c.Broker.TimeoutMs) * time.Millisecond
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Feed.PollIntervalMs) * time.Millisecond
}

func (c *Config) SubscribeInterval() time.Duration {
	return time.Duration(c.Feed.SubscribeIntervalMs) * time.Millisecond
}
