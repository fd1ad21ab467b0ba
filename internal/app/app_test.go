package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"positionsizer/internal/config"
	"positionsizer/internal/gateway/binance"
	"positionsizer/internal/presets"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		App:     config.AppConfig{Env: "test", LogLevel: "error", HTTPAddr: "127.0.0.1:0"},
		Sizing:  config.SizingConfig{RiskVariant: "extended", DefaultRiskPct: 1, DefaultCommission: "taker"},
		Session: config.SessionConfig{TTLMinutes: 5, SweepIntervalSeconds: 1},
		Journal: config.JournalConfig{Enabled: true, Path: filepath.Join(t.TempDir(), "journal.db")},
	}
}

func TestAppBuilder_Build(t *testing.T) {
	cfg := testConfig(t)
	app, err := NewAppBuilder(cfg).Build(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	require.NotNil(t, app.Summary)
	assert.Equal(t, "builtin", app.Summary.Sizing.Source)
	assert.Len(t, app.Summary.Sizing.Risk, 15)
	assert.Equal(t, 1.0, app.Summary.Sizing.DefaultRisk)
	assert.Equal(t, "taker", app.Summary.Sizing.DefaultCommission)
	assert.Equal(t, cfg.Journal.Path, app.Summary.Journal)
	assert.Equal(t, "disabled", app.Summary.Binance)

	var buf bytes.Buffer
	app.Summary.WriteTo(&buf)
	assert.Contains(t, buf.String(), "STARTUP SUMMARY")
	assert.Contains(t, buf.String(), "Taker 0.05%")
}

func TestAppBuilder_BinanceWithoutKeysSkipsBalance(t *testing.T) {
	cfg := testConfig(t)
	cfg.Journal.Enabled = false
	cfg.Binance = config.BinanceConfig{Enabled: true, RESTBaseURL: "http://127.0.0.1:1", TimeoutSeconds: 1}
	cfg.StopLoss = config.StopLossConfig{Enabled: true, Interval: "1h", Candles: 50, ATRPeriod: 14, ATRMultiplier: 1.5}

	app, err := NewAppBuilder(cfg).Build(context.Background())
	require.NoError(t, err)
	assert.Contains(t, app.Summary.Binance, "public only")
	assert.Contains(t, app.Summary.StopLoss, "ATR(14)")
	assert.Equal(t, "disabled", app.Summary.Journal)
}

func TestAppBuilder_PropagatesErrors(t *testing.T) {
	cfg := testConfig(t)
	cfg.Binance.Enabled = true
	_, err := NewAppBuilder(cfg, WithBinanceFn(func(config.BinanceConfig) (*binance.Source, error) {
		return nil, assert.AnError
	})).Build(context.Background())
	assert.ErrorIs(t, err, assert.AnError)

	cfg = testConfig(t)
	cfg.Sizing.ChoicesPath = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = NewAppBuilder(cfg).Build(context.Background())
	assert.Error(t, err)
}

func TestAppBuilder_CloseReleasesWatcherJournalAndQueue(t *testing.T) {
	cfg := testConfig(t)
	choices := filepath.Join(t.TempDir(), "choices.yaml")
	require.NoError(t, os.WriteFile(choices, []byte("risk: [1, 2]\n"), 0o644))
	cfg.Sizing.ChoicesPath = choices
	cfg.Sizing.WatchChoices = true
	cfg.Notify.Telegram = config.TelegramConfig{Enabled: true, BotToken: "t", ChatID: "1"}

	app, err := NewAppBuilder(cfg).Build(context.Background())
	require.NoError(t, err)
	require.Len(t, app.closers, 3)
	assert.IsType(t, &presets.Registry{}, app.closers[0])

	require.NoError(t, app.Close())
	assert.Empty(t, app.closers)
	require.NoError(t, app.Close())
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	app, err := NewApp(testConfig(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("app did not stop")
	}
}

func TestNewApp_NilConfig(t *testing.T) {
	_, err := NewApp(nil)
	assert.Error(t, err)
}
