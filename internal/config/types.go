package config

import (
	"strings"
	"time"
)

// Config is the root of the positionsizer configuration.
type Config struct {
	App      AppConfig      `yaml:"app"`
	Sizing   SizingConfig   `yaml:"sizing"`
	Session  SessionConfig  `yaml:"session"`
	Journal  JournalConfig  `yaml:"journal"`
	Notify   NotifyConfig   `yaml:"notify"`
	Binance  BinanceConfig  `yaml:"binance"`
	StopLoss StopLossConfig `yaml:"stop_loss"`
}

type AppConfig struct {
	Env      string `yaml:"env"`
	LogLevel string `yaml:"log_level"`
	HTTPAddr string `yaml:"http_addr"`
	LogPath  string `yaml:"log_path"`
}

// SizingConfig selects the offered choices. ChoicesPath, when set, replaces
// the built-in lists and is watched for changes.
type SizingConfig struct {
	RiskVariant       string  `yaml:"risk_variant"`
	DefaultRiskPct    float64 `yaml:"default_risk_pct"`
	DefaultCommission string  `yaml:"default_commission"`
	ChoicesPath       string  `yaml:"choices_path"`
	WatchChoices      bool    `yaml:"watch_choices"`
}

type SessionConfig struct {
	TTLMinutes           int `yaml:"ttl_minutes"`
	SweepIntervalSeconds int `yaml:"sweep_interval_seconds"`
}

func (s SessionConfig) TTL() time.Duration {
	return time.Duration(s.TTLMinutes) * time.Minute
}

func (s SessionConfig) SweepInterval() time.Duration {
	return time.Duration(s.SweepIntervalSeconds) * time.Second
}

type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

type TelegramConfig struct {
	Enabled    bool   `yaml:"enabled"`
	BotToken   string `yaml:"bot_token"`
	ChatID     string `yaml:"chat_id"`
	ErrorsOnly bool   `yaml:"errors_only"`
}

type BinanceConfig struct {
	Enabled                bool   `yaml:"enabled"`
	APIKey                 string `yaml:"api_key"`
	APISecret              string `yaml:"api_secret"`
	RESTBaseURL            string `yaml:"rest_base_url"`
	TimeoutSeconds         int    `yaml:"timeout_seconds"`
	Asset                  string `yaml:"asset"`
	ProxyURL               string `yaml:"proxy_url"`
	BreakerThreshold       int    `yaml:"breaker_threshold"`
	BreakerCooldownSeconds int    `yaml:"breaker_cooldown_seconds"`
}

func (b BinanceConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSeconds) * time.Second
}

func (b BinanceConfig) BreakerCooldown() time.Duration {
	return time.Duration(b.BreakerCooldownSeconds) * time.Second
}

// StopLossConfig drives the ATR based stop-loss suggestion.
type StopLossConfig struct {
	Enabled       bool    `yaml:"enabled"`
	Interval      string  `yaml:"interval"`
	Candles       int     `yaml:"candles"`
	ATRPeriod     int     `yaml:"atr_period"`
	ATRMultiplier float64 `yaml:"atr_multiplier"`
}

// keySet tracks the key paths set explicitly in the config files.
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
