// Package config loads the trader configuration from YAML and the environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"PresenceTrader/internal/logger"
)

// Broker kinds.
const (
	BrokerREST  = "rest"
	BrokerPaper = "paper"
)

// Paper broker price sources.
const (
	QuoteSourceFixed = "fixed"
	QuoteSourceREST  = "rest"
	QuoteSourceYahoo = "yahoo"
)

// Detector kinds.
const (
	DetectorCamera = "camera"
	DetectorHTTP   = "http"
	DetectorNone   = "none"
)

// Config holds all application configuration.
type Config struct {
	Trading struct {
		PeriodSeconds     int           `yaml:"period_seconds"`
		PresenceThreshold int           `yaml:"presence_threshold"`
		Capacity          int           `yaml:"capacity"`
		QuantityPrecision int           `yaml:"quantity_precision"` // 0 selects the default of 5
		TickInterval      time.Duration `yaml:"tick_interval"`
		CatalogPath       string        `yaml:"catalog_path"`
		StartIndex        int           `yaml:"start_index"`
	} `yaml:"trading"`
	Broker struct {
		Kind                   string          `yaml:"kind"`
		BaseURL                string          `yaml:"base_url"`
		APIKey                 string          `yaml:"api_key"`
		Timeout                time.Duration   `yaml:"timeout"`
		RatePerSecond          float64         `yaml:"rate_per_second"`
		Burst                  int             `yaml:"burst"`
		MaxConsecutiveFailures uint32          `yaml:"max_consecutive_failures"`
		BreakerTimeout         time.Duration   `yaml:"breaker_timeout"`
		PaperCash              decimal.Decimal `yaml:"paper_cash"`
		PaperPrice             decimal.Decimal `yaml:"paper_price"`
		PaperQuotes            string          `yaml:"paper_quotes"` // fixed | rest | yahoo
	} `yaml:"broker"`
	Detector struct {
		Kind         string  `yaml:"kind"`
		Device       int     `yaml:"device"`
		CascadePath  string  `yaml:"cascade_path"`
		Resolution   int     `yaml:"resolution"`
		MinNeighbors int     `yaml:"min_neighbors"`
		FPS          float64 `yaml:"fps"`
		Brightness   int     `yaml:"brightness"` // percent, 0 keeps the device default
		RecordPath   string  `yaml:"record_path"`
	} `yaml:"detector"`
	Telegram struct {
		Enabled  bool   `yaml:"enabled"`
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Server struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr"`
	} `yaml:"server"`
	Schedule struct {
		SummaryCron string `yaml:"summary_cron"`
	} `yaml:"schedule"`
	Display struct {
		TUI bool `yaml:"tui"`
	} `yaml:"display"`
	Logging struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"logging"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file yields a config built from the
// environment and defaults alone.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("BROKER_BASE_URL"); v != "" {
		c.Broker.BaseURL = v
	}
	if v := os.Getenv("BROKER_API_KEY"); v != "" {
		c.Broker.APIKey = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
}

func (c *Config) applyDefaults() {
	t := &c.Trading
	if t.PeriodSeconds == 0 {
		t.PeriodSeconds = 60
	}
	if t.PresenceThreshold == 0 {
		t.PresenceThreshold = 60
	}
	if t.Capacity == 0 {
		t.Capacity = 10
	}
	if t.QuantityPrecision == 0 {
		t.QuantityPrecision = 5
	}
	if t.TickInterval == 0 {
		t.TickInterval = 100 * time.Millisecond
	}
	if t.CatalogPath == "" {
		t.CatalogPath = "configs/instruments.csv"
	}

	b := &c.Broker
	b.Kind = strings.ToLower(b.Kind)
	if b.Kind == "" {
		b.Kind = BrokerPaper
	}
	if b.Timeout == 0 {
		b.Timeout = 10 * time.Second
	}
	if b.RatePerSecond == 0 {
		b.RatePerSecond = 5
	}
	if b.Burst == 0 {
		b.Burst = 5
	}
	if b.MaxConsecutiveFailures == 0 {
		b.MaxConsecutiveFailures = 5
	}
	if b.BreakerTimeout == 0 {
		b.BreakerTimeout = 30 * time.Second
	}
	if b.PaperCash.IsZero() {
		b.PaperCash = decimal.NewFromInt(100000)
	}
	if b.PaperPrice.IsZero() {
		b.PaperPrice = decimal.NewFromInt(100)
	}
	b.PaperQuotes = strings.ToLower(b.PaperQuotes)
	if b.PaperQuotes == "" {
		b.PaperQuotes = QuoteSourceFixed
		if b.BaseURL != "" {
			b.PaperQuotes = QuoteSourceREST
		}
	}

	c.Detector.Kind = strings.ToLower(c.Detector.Kind)
	if c.Detector.Kind == "" {
		c.Detector.Kind = DetectorNone
	}
	if c.Detector.MinNeighbors == 0 {
		c.Detector.MinNeighbors = 3
	}

	if c.Telegram.BotToken != "" && c.Telegram.ChatID != "" {
		c.Telegram.Enabled = true
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/presence_trader.db"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Schedule.SummaryCron == "" {
		c.Schedule.SummaryCron = "0 0 * * * *"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.File == "" {
		c.Logging.File = "logs/presence_trader.log"
	}
}

// Validate checks ranges and that the selected backends are fully configured.
func (c *Config) Validate() error {
	t := c.Trading
	if t.PeriodSeconds < 1 || t.PeriodSeconds > 3600 {
		return fmt.Errorf("trading.period_seconds must be in [1, 3600], got %d", t.PeriodSeconds)
	}
	if t.PresenceThreshold <= 0 {
		return fmt.Errorf("trading.presence_threshold must be positive")
	}
	if t.Capacity < 1 {
		return fmt.Errorf("trading.capacity must be at least 1")
	}
	if t.QuantityPrecision < 0 || t.QuantityPrecision > 9 {
		return fmt.Errorf("trading.quantity_precision must be in [0, 9]")
	}
	if t.TickInterval <= 0 {
		return fmt.Errorf("trading.tick_interval must be positive")
	}
	if t.StartIndex < 0 {
		return fmt.Errorf("trading.start_index must not be negative")
	}

	switch c.Broker.Kind {
	case BrokerREST:
		if c.Broker.BaseURL == "" {
			return fmt.Errorf("broker.base_url is required for the rest broker")
		}
		if c.Broker.APIKey == "" {
			return fmt.Errorf("broker.api_key is required for the rest broker")
		}
	case BrokerPaper:
		if c.Broker.PaperCash.IsNegative() || !c.Broker.PaperPrice.IsPositive() {
			return fmt.Errorf("broker.paper_cash must not be negative and broker.paper_price must be positive")
		}
		switch c.Broker.PaperQuotes {
		case QuoteSourceFixed, QuoteSourceYahoo:
		case QuoteSourceREST:
			if c.Broker.BaseURL == "" {
				return fmt.Errorf("broker.base_url is required for rest paper quotes")
			}
		default:
			return fmt.Errorf("broker.paper_quotes must be fixed, rest or yahoo, got %q", c.Broker.PaperQuotes)
		}
	default:
		return fmt.Errorf("broker.kind must be %q or %q, got %q", BrokerREST, BrokerPaper, c.Broker.Kind)
	}

	switch c.Detector.Kind {
	case DetectorCamera:
		if c.Detector.CascadePath == "" {
			return fmt.Errorf("detector.cascade_path is required for the camera detector")
		}
		if c.Detector.FPS < 0 {
			return fmt.Errorf("detector.fps must not be negative")
		}
		if c.Detector.Brightness < 0 || c.Detector.Brightness > 100 {
			return fmt.Errorf("detector.brightness must be in [0, 100]")
		}
	case DetectorHTTP:
		if !c.Server.Enabled {
			return fmt.Errorf("detector.kind http requires server.enabled")
		}
	case DetectorNone:
	default:
		return fmt.Errorf("detector.kind must be camera, http or none, got %q", c.Detector.Kind)
	}

	if c.Telegram.Enabled && (c.Telegram.BotToken == "" || c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id are required when telegram is enabled")
	}
	return nil
}

// LoggerConfig maps the logging section onto the logger package. Console
// output is suppressed while the terminal display owns the screen.
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{
		Level:      c.Logging.Level,
		OutputFile: c.Logging.File,
		MaxSize:    c.Logging.MaxSizeMB,
		MaxBackups: c.Logging.MaxBackups,
		MaxAge:     c.Logging.MaxAgeDays,
		Compress:   c.Logging.Compress,
		Quiet:      c.Display.TUI,
	}
}
