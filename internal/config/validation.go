package config

import (
	"fmt"
	"math"
	"strings"
)

// validate runs the per-section checks.
func validate(c *Config) error {
	if err := c.App.validate(); err != nil {
		return err
	}
	if err := c.Sizing.validate(); err != nil {
		return err
	}
	if err := c.Session.validate(); err != nil {
		return err
	}
	if err := c.Journal.validate(); err != nil {
		return err
	}
	if err := c.Notify.validate(); err != nil {
		return err
	}
	if err := c.Binance.validate(); err != nil {
		return err
	}
	if err := c.StopLoss.validate(c.Binance); err != nil {
		return err
	}
	return nil
}

func (a *AppConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(a.LogLevel)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("app.log_level must be debug, info, warn or error, got %q", a.LogLevel)
	}
	if strings.TrimSpace(a.HTTPAddr) == "" {
		return fmt.Errorf("app.http_addr cannot be empty")
	}
	return nil
}

func (s *SizingConfig) validate() error {
	switch s.RiskVariant {
	case "standard", "extended":
	default:
		return fmt.Errorf("sizing.risk_variant must be standard or extended, got %q", s.RiskVariant)
	}
	if math.IsNaN(s.DefaultRiskPct) || s.DefaultRiskPct <= 0 || s.DefaultRiskPct > 100 {
		return fmt.Errorf("sizing.default_risk_pct must be in (0, 100]")
	}
	if s.DefaultCommission == "" {
		return fmt.Errorf("sizing.default_commission cannot be empty")
	}
	return nil
}

func (s *SessionConfig) validate() error {
	if s.TTLMinutes <= 0 {
		return fmt.Errorf("session.ttl_minutes must be > 0")
	}
	if s.SweepIntervalSeconds <= 0 {
		return fmt.Errorf("session.sweep_interval_seconds must be > 0")
	}
	return nil
}

func (j *JournalConfig) validate() error {
	if j.Enabled && strings.TrimSpace(j.Path) == "" {
		return fmt.Errorf("journal.path is required when journal is enabled")
	}
	return nil
}

func (n *NotifyConfig) validate() error {
	tg := n.Telegram
	if !tg.Enabled {
		return nil
	}
	if strings.TrimSpace(tg.BotToken) == "" || strings.TrimSpace(tg.ChatID) == "" {
		return fmt.Errorf("notify.telegram requires bot_token and chat_id when enabled")
	}
	return nil
}

func (b *BinanceConfig) validate() error {
	if !b.Enabled {
		return nil
	}
	if (b.APIKey == "") != (b.APISecret == "") {
		return fmt.Errorf("binance.api_key and binance.api_secret must be set together")
	}
	if b.TimeoutSeconds <= 0 {
		return fmt.Errorf("binance.timeout_seconds must be > 0")
	}
	return nil
}

func (s *StopLossConfig) validate(b BinanceConfig) error {
	if !s.Enabled {
		return nil
	}
	if !b.Enabled {
		return fmt.Errorf("stop_loss requires binance.enabled for candles")
	}
	if strings.TrimSpace(s.Interval) == "" {
		return fmt.Errorf("stop_loss.interval cannot be empty")
	}
	if s.ATRPeriod <= 0 || s.Candles < s.ATRPeriod+1 {
		return fmt.Errorf("stop_loss.candles must be at least atr_period+1 (%d)", s.ATRPeriod+1)
	}
	if s.ATRMultiplier <= 0 {
		return fmt.Errorf("stop_loss.atr_multiplier must be > 0")
	}
	return nil
}
