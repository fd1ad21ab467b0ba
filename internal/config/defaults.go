package config

import (
	"strings"
)

const (
	defaultAppEnv            = "dev"
	defaultAppLogLevel       = "info"
	defaultAppHTTPAddr       = ":9992"
	defaultAppLogPath        = "data/logs/positionsizer.log"
	defaultRiskVariant       = "standard"
	defaultRiskPct           = 0.5
	defaultCommission        = "maker"
	defaultSessionTTL        = 120
	defaultSessionSweep      = 60
	defaultJournalPath       = "data/db/journal.db"
	defaultBinanceREST       = "https://fapi.binance.com"
	defaultBinanceTimeout    = 15
	defaultBinanceAsset      = "USDT"
	defaultBreakerThreshold  = 3
	defaultBreakerCooldown   = 30
	defaultStopLossInterval  = "1h"
	defaultStopLossCandles   = 100
	defaultStopLossATRPeriod = 14
	defaultStopLossATRMult   = 1.5
)

// applyDefaults fills every section; explicitly set keys are left alone.
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Sizing.applyDefaults(keys)
	c.Session.applyDefaults(keys)
	c.Journal.applyDefaults(keys)
	c.Binance.applyDefaults(keys)
	c.StopLoss.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		stringFieldDefault("app.log_path", &a.LogPath, defaultAppLogPath),
	)
}

func (s *SizingConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("sizing.risk_variant", &s.RiskVariant, defaultRiskVariant),
		fieldDefault{
			key:   "sizing.default_risk_pct",
			need:  func() bool { return s.DefaultRiskPct <= 0 },
			apply: func() { s.DefaultRiskPct = defaultRiskPct },
		},
		stringFieldDefault("sizing.default_commission", &s.DefaultCommission, defaultCommission),
		boolFieldDefault("sizing.watch_choices", &s.WatchChoices, true),
	)
	s.RiskVariant = strings.ToLower(strings.TrimSpace(s.RiskVariant))
	s.DefaultCommission = strings.ToLower(strings.TrimSpace(s.DefaultCommission))
	s.ChoicesPath = strings.TrimSpace(s.ChoicesPath)
}

func (s *SessionConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "session.ttl_minutes",
			need:  func() bool { return s.TTLMinutes <= 0 },
			apply: func() { s.TTLMinutes = defaultSessionTTL },
		},
		fieldDefault{
			key:   "session.sweep_interval_seconds",
			need:  func() bool { return s.SweepIntervalSeconds <= 0 },
			apply: func() { s.SweepIntervalSeconds = defaultSessionSweep },
		},
	)
}

func (j *JournalConfig) applyDefaults(keys keySet) {
	if j == nil {
		return
	}
	applyFieldDefaults(keys,
		boolFieldDefault("journal.enabled", &j.Enabled, true),
		stringFieldDefault("journal.path", &j.Path, defaultJournalPath),
	)
}

func (b *BinanceConfig) applyDefaults(keys keySet) {
	if b == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("binance.rest_base_url", &b.RESTBaseURL, defaultBinanceREST),
		stringFieldDefault("binance.asset", &b.Asset, defaultBinanceAsset),
		fieldDefault{
			key:   "binance.timeout_seconds",
			need:  func() bool { return b.TimeoutSeconds <= 0 },
			apply: func() { b.TimeoutSeconds = defaultBinanceTimeout },
		},
		fieldDefault{
			key:   "binance.breaker_threshold",
			need:  func() bool { return b.BreakerThreshold <= 0 },
			apply: func() { b.BreakerThreshold = defaultBreakerThreshold },
		},
		fieldDefault{
			key:   "binance.breaker_cooldown_seconds",
			need:  func() bool { return b.BreakerCooldownSeconds <= 0 },
			apply: func() { b.BreakerCooldownSeconds = defaultBreakerCooldown },
		},
	)
	b.Asset = strings.ToUpper(strings.TrimSpace(b.Asset))
}

func (s *StopLossConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("stop_loss.interval", &s.Interval, defaultStopLossInterval),
		fieldDefault{
			key:   "stop_loss.candles",
			need:  func() bool { return s.Candles <= 0 },
			apply: func() { s.Candles = defaultStopLossCandles },
		},
		fieldDefault{
			key:   "stop_loss.atr_period",
			need:  func() bool { return s.ATRPeriod <= 0 },
			apply: func() { s.ATRPeriod = defaultStopLossATRPeriod },
		},
		fieldDefault{
			key:   "stop_loss.atr_multiplier",
			need:  func() bool { return s.ATRMultiplier <= 0 },
			apply: func() { s.ATRMultiplier = defaultStopLossATRMult },
		},
	)
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
