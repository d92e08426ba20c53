package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for solsignal.
type Config struct {
	General  GeneralConfig  `yaml:"general"`
	Telegram TelegramConfig `yaml:"telegram"`
	Feeds    FeedsConfig    `yaml:"feeds"`
	Market   MarketConfig   `yaml:"market"`
	Safety   SafetyConfig   `yaml:"safety"`
	Gate     GateConfig     `yaml:"gate"`
	Alerts   AlertsConfig   `yaml:"alerts"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	HTTP     HTTPConfig     `yaml:"http"`
}

type GeneralConfig struct {
	InstanceID string `yaml:"instance_id"`
	LogLevel   string `yaml:"log_level"`
	LogFormat  string `yaml:"log_format"` // json|text
	Debug      bool   `yaml:"debug"`      // log per-candidate gate rejections
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	GroupID  int64  `yaml:"group_id"` // supergroup chat ID (negative number)

	// Topic (message thread) per follower tier. Zero = not configured.
	// TopicAll receives every alert regardless of tier.
	TopicAll  int `yaml:"topic_all"`
	Topic50K  int `yaml:"topic_50k"`
	Topic100K int `yaml:"topic_100k"`
	Topic500K int `yaml:"topic_500k"`
	Topic1M   int `yaml:"topic_1m"`
	Topic10M  int `yaml:"topic_10m"`
}

// FeedEndpoint is one upstream feed query variant. Authoritative
// endpoints (sorted by recency) short-circuit the fallback chain once
// they return documents; the rest are merged cumulatively.
type FeedEndpoint struct {
	URL           string `yaml:"url"`
	Authoritative bool   `yaml:"authoritative"`
}

type FeedsConfig struct {
	Endpoints      []FeedEndpoint `yaml:"endpoints"`
	TimeoutSeconds int            `yaml:"timeout_seconds"`

	// Optional bonding-curve launch stream (WebSocket).
	LaunchStreamEnabled  bool   `yaml:"launch_stream_enabled"`
	LaunchStreamEndpoint string `yaml:"launch_stream_endpoint"`
	LaunchStreamPlatform string `yaml:"launch_stream_platform"`
}

type MarketConfig struct {
	BaseURL        string `yaml:"base_url"`
	ChainID        string `yaml:"chain_id"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`

	SOLPriceURL     string  `yaml:"sol_price_url"`
	DefaultSOLPrice float64 `yaml:"default_sol_price"`
}

type SafetyConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type GateConfig struct {
	// Venues a candidate must trade on to be eligible.
	AllowedVenues []string `yaml:"allowed_venues"`

	// Liquidity floor: max(MinLiquidityUnits * SOL price, AbsoluteFloorUSD).
	MinLiquidityUnits float64 `yaml:"min_liquidity_units"`
	AbsoluteFloorUSD  float64 `yaml:"absolute_floor_usd"`

	MaxAgeMinutes int `yaml:"max_age_minutes"`
}

type AlertsConfig struct {
	// Mark a mint as alerted only after at least one destination send
	// succeeded. The historical behavior (false) marks before sending,
	// so a total send failure permanently suppresses that mint.
	MarkAfterSend bool `yaml:"mark_after_send"`

	SendsPerSecond float64 `yaml:"sends_per_second"`
	BatchSize      int     `yaml:"batch_size"`
	BatchPauseMs   int     `yaml:"batch_pause_ms"`
}

type MonitorConfig struct {
	PollIntervalSeconds   int `yaml:"poll_interval_seconds"`
	UpdateIntervalSeconds int `yaml:"update_interval_seconds"`
	UpdateBudgetMinutes   int `yaml:"update_budget_minutes"`

	// SOL price refresh happens every N refresh ticks.
	SOLPriceEveryNTicks int `yaml:"sol_price_every_n_ticks"`
}

// PollInterval returns the discovery cadence as a duration.
func (m MonitorConfig) PollInterval() time.Duration {
	return time.Duration(m.PollIntervalSeconds) * time.Second
}

// UpdateInterval returns the live-refresh cadence as a duration.
func (m MonitorConfig) UpdateInterval() time.Duration {
	return time.Duration(m.UpdateIntervalSeconds) * time.Second
}

// UpdateBudget returns how long an alert stays under live refresh.
func (m MonitorConfig) UpdateBudget() time.Duration {
	return time.Duration(m.UpdateBudgetMinutes) * time.Minute
}

type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(cfg)

	return cfg, nil
}

// Validate checks the fields that would make the process useless.
// Only transport credentials are fatal; everything else has defaults.
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Telegram.GroupID == 0 {
		return fmt.Errorf("telegram.group_id is required")
	}
	if c.Monitor.PollIntervalSeconds <= 0 {
		return fmt.Errorf("monitor.poll_interval_seconds must be positive")
	}
	if c.Monitor.UpdateIntervalSeconds <= 0 {
		return fmt.Errorf("monitor.update_interval_seconds must be positive")
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.General.InstanceID == "" {
		cfg.General.InstanceID = "solsignal-1"
	}
	if cfg.General.LogLevel == "" {
		cfg.General.LogLevel = "info"
	}
	if cfg.General.LogFormat == "" {
		cfg.General.LogFormat = "json"
	}
	if len(cfg.Feeds.Endpoints) == 0 {
		cfg.Feeds.Endpoints = []FeedEndpoint{
			{URL: "https://api.dubdub.tv/v1/feeds?limit=50&sortBy=addedOn&chainType=solana", Authoritative: true},
			{URL: "https://api.dubdub.tv/v1/feeds?limit=50&sortBy=trending&chainType=solana"},
			{URL: "https://api.dubdub.tv/v1/feeds?limit=50&sortBy=addedOn", Authoritative: true},
			{URL: "https://api.dubdub.tv/v1/feeds?limit=50&sortBy=trending"},
		}
	}
	if cfg.Feeds.TimeoutSeconds == 0 {
		cfg.Feeds.TimeoutSeconds = 15
	}
	if cfg.Feeds.LaunchStreamPlatform == "" {
		cfg.Feeds.LaunchStreamPlatform = "Pump.fun"
	}
	if cfg.Market.BaseURL == "" {
		cfg.Market.BaseURL = "https://api.dexscreener.com"
	}
	if cfg.Market.ChainID == "" {
		cfg.Market.ChainID = "solana"
	}
	if cfg.Market.TimeoutSeconds == 0 {
		cfg.Market.TimeoutSeconds = 10
	}
	if cfg.Market.SOLPriceURL == "" {
		cfg.Market.SOLPriceURL = "https://api.coingecko.com/api/v3/simple/price?ids=solana&vs_currencies=usd"
	}
	if cfg.Market.DefaultSOLPrice == 0 {
		cfg.Market.DefaultSOLPrice = 140.0
	}
	if cfg.Safety.BaseURL == "" {
		cfg.Safety.BaseURL = "https://api.rugcheck.xyz"
	}
	if cfg.Safety.TimeoutSeconds == 0 {
		cfg.Safety.TimeoutSeconds = 10
	}
	if len(cfg.Gate.AllowedVenues) == 0 {
		cfg.Gate.AllowedVenues = []string{"raydium", "orca", "meteora", "pumpswap"}
	}
	if cfg.Gate.MinLiquidityUnits == 0 {
		cfg.Gate.MinLiquidityUnits = 1.0
	}
	if cfg.Gate.AbsoluteFloorUSD == 0 {
		cfg.Gate.AbsoluteFloorUSD = 10.0
	}
	if cfg.Gate.MaxAgeMinutes == 0 {
		cfg.Gate.MaxAgeMinutes = 120
	}
	if cfg.Alerts.SendsPerSecond == 0 {
		cfg.Alerts.SendsPerSecond = 3.0
	}
	if cfg.Alerts.BatchSize == 0 {
		cfg.Alerts.BatchSize = 5
	}
	if cfg.Alerts.BatchPauseMs == 0 {
		cfg.Alerts.BatchPauseMs = 500
	}
	if cfg.Monitor.PollIntervalSeconds == 0 {
		cfg.Monitor.PollIntervalSeconds = 15
	}
	if cfg.Monitor.UpdateIntervalSeconds == 0 {
		cfg.Monitor.UpdateIntervalSeconds = 30
	}
	if cfg.Monitor.UpdateBudgetMinutes == 0 {
		cfg.Monitor.UpdateBudgetMinutes = 60
	}
	if cfg.Monitor.SOLPriceEveryNTicks == 0 {
		cfg.Monitor.SOLPriceEveryNTicks = 20
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 9190
	}
}
