package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	"positionsizer/internal/config"
	"positionsizer/internal/gateway/binance"
	"positionsizer/internal/gateway/notifier"
	"positionsizer/internal/logger"
	"positionsizer/internal/presets"
	"positionsizer/internal/service/calculator"
	"positionsizer/internal/session"
	"positionsizer/internal/sizing"
	"positionsizer/internal/store/sqlite"
	calchttp "positionsizer/internal/transport/http/calc"
)

type AppBuilder struct {
	cfg *config.Config

	presetsFn  func(config.SizingConfig) (*presets.Registry, error)
	journalFn  func(config.JournalConfig) (*sqlite.SqliteStore, error)
	notifierFn func(config.NotifyConfig) notifier.Notifier
	binanceFn  func(config.BinanceConfig) (*binance.Source, error)
	httpFn     func(calchttp.ServerConfig) (*calchttp.Server, error)
}

type AppBuilderOption func(*AppBuilder)

// WithBinanceFn swaps the exchange constructor, mainly for tests.
func WithBinanceFn(fn func(config.BinanceConfig) (*binance.Source, error)) AppBuilderOption {
	return func(b *AppBuilder) { b.binanceFn = fn }
}

// WithNotifierFn swaps the notifier constructor.
func WithNotifierFn(fn func(config.NotifyConfig) notifier.Notifier) AppBuilderOption {
	return func(b *AppBuilder) { b.notifierFn = fn }
}

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:        cfg,
		presetsFn:  buildPresets,
		journalFn:  buildJournal,
		notifierFn: buildNotifier,
		binanceFn:  buildBinance,
		httpFn:     calchttp.NewServer,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if b == nil || b.cfg == nil {
		return nil, fmt.Errorf("app builder requires config")
	}
	cfg := b.cfg
	app := &App{cfg: cfg}
	fail := func(err error) (*App, error) {
		_ = app.Close()
		return nil, err
	}

	registry, err := b.presetsFn(cfg.Sizing)
	if err != nil {
		return fail(fmt.Errorf("load sizing choices: %w", err))
	}
	app.closers = append(app.closers, registry)
	registry.OnChange(func(s presets.Snapshot) {
		logger.Infof("[presets] choices v%d active: %d risk, %d commission", s.Version, len(s.Choices.Risk), len(s.Choices.Commission))
	})

	var recorder calculator.Recorder
	journalDesc := "disabled"
	if cfg.Journal.Enabled {
		journal, err := b.journalFn(cfg.Journal)
		if err != nil {
			return fail(fmt.Errorf("open journal: %w", err))
		}
		app.closers = append(app.closers, journal)
		recorder = journal
		journalDesc = cfg.Journal.Path
	}

	notify := b.notifierFn(cfg.Notify)
	if c, ok := notify.(io.Closer); ok {
		app.closers = append(app.closers, c)
	}

	app.sessions = session.NewStore(cfg.Session.TTL())
	svc := calculator.NewService(registry, app.sessions, recorder, notify)

	httpCfg := calchttp.ServerConfig{
		Addr:       cfg.App.HTTPAddr,
		Calculator: svc,
		Presets:    registry,
		Asset:      cfg.Binance.Asset,
		StopLoss: calchttp.StopLossSettings{
			Interval:      cfg.StopLoss.Interval,
			Candles:       cfg.StopLoss.Candles,
			ATRPeriod:     cfg.StopLoss.ATRPeriod,
			ATRMultiplier: cfg.StopLoss.ATRMultiplier,
		},
	}
	binanceDesc := "disabled"
	stopLossDesc := "disabled"
	if cfg.Binance.Enabled {
		src, err := b.binanceFn(cfg.Binance)
		if err != nil {
			return fail(fmt.Errorf("init binance: %w", err))
		}
		binanceDesc = cfg.Binance.RESTBaseURL + " (public only)"
		if src.HasCredentials() {
			httpCfg.Balance = src
			binanceDesc = fmt.Sprintf("%s (balance prefill %s)", cfg.Binance.RESTBaseURL, cfg.Binance.Asset)
		}
		if cfg.StopLoss.Enabled {
			httpCfg.Candles = src
			stopLossDesc = fmt.Sprintf("ATR(%d) x %s on %s, %d candles", cfg.StopLoss.ATRPeriod,
				formatFloats([]float64{cfg.StopLoss.ATRMultiplier})[0], cfg.StopLoss.Interval, cfg.StopLoss.Candles)
		}
	}

	server, err := b.httpFn(httpCfg)
	if err != nil {
		return fail(fmt.Errorf("init http server: %w", err))
	}
	app.http = server
	app.Summary = buildSummary(cfg, registry.Snapshot(), journalDesc, binanceDesc, stopLossDesc)
	return app, nil
}

func buildPresets(cfg config.SizingConfig) (*presets.Registry, error) {
	return presets.NewRegistry(presets.Options{
		Path:              cfg.ChoicesPath,
		Variant:           sizing.ParseRiskVariant(cfg.RiskVariant),
		DefaultRisk:       cfg.DefaultRiskPct,
		DefaultCommission: cfg.DefaultCommission,
		Watch:             cfg.WatchChoices,
	})
}

func buildJournal(cfg config.JournalConfig) (*sqlite.SqliteStore, error) {
	return sqlite.NewSqliteStore(cfg.Path)
}

func buildNotifier(cfg config.NotifyConfig) notifier.Notifier {
	multi := notifier.Multi{notifier.LogNotifier{}}
	tg := cfg.Telegram
	if tg.Enabled {
		multi = append(multi, notifier.NewQueue(notifier.TelegramNotifier{
			Sender:     notifier.NewTelegram(tg.BotToken, tg.ChatID),
			ErrorsOnly: tg.ErrorsOnly,
		}, notifier.DefaultQueueSize, notifier.DefaultQueueTimeout))
	}
	return multi
}

func buildBinance(cfg config.BinanceConfig) (*binance.Source, error) {
	return binance.New(binance.Config{
		RESTBaseURL:      cfg.RESTBaseURL,
		HTTPTimeout:      cfg.Timeout(),
		APIKey:           cfg.APIKey,
		APISecret:        cfg.APISecret,
		ProxyEnabled:     strings.TrimSpace(cfg.ProxyURL) != "",
		RESTProxyURL:     cfg.ProxyURL,
		BreakerThreshold: cfg.BreakerThreshold,
		BreakerCooldown:  cfg.BreakerCooldown(),
	})
}

func buildSummary(cfg *config.Config, snap presets.Snapshot, journal, binanceDesc, stopLoss string) *StartupSummary {
	tiers := make([]string, 0, len(snap.Choices.Commission))
	for _, t := range snap.Choices.Commission {
		tiers = append(tiers, t.Label)
	}
	notify := []string{"log"}
	if cfg.Notify.Telegram.Enabled {
		mode := "telegram"
		if cfg.Notify.Telegram.ErrorsOnly {
			mode += " (errors only)"
		}
		notify = append(notify, mode)
	}
	return &StartupSummary{
		HTTPAddr: cfg.App.HTTPAddr,
		Sizing: SizingSummary{
			Variant:           cfg.Sizing.RiskVariant,
			Source:            snap.Source,
			Version:           snap.Version,
			Risk:              snap.Choices.Risk,
			Commission:        tiers,
			DefaultRisk:       snap.Choices.DefaultRisk,
			DefaultCommission: snap.Choices.DefaultCommission,
		},
		Session: SessionSummary{
			TTLMinutes:    cfg.Session.TTLMinutes,
			SweepInterval: cfg.Session.SweepIntervalSeconds,
		},
		Journal:  journal,
		Notify:   notify,
		Binance:  binanceDesc,
		StopLoss: stopLoss,
	}
}
