package app

import (
	"context"
	"fmt"
	"io"

	"positionsizer/internal/config"
	"positionsizer/internal/logger"
	"positionsizer/internal/session"
	calchttp "positionsizer/internal/transport/http/calc"

	"golang.org/x/sync/errgroup"
)

// App wires the calculator service to its HTTP server and background jobs.
type App struct {
	cfg      *config.Config
	http     *calchttp.Server
	sessions *session.Store
	closers  []io.Closer
	Summary  *StartupSummary
}

// NewApp builds the application without starting it.
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run serves HTTP and sweeps idle sessions until ctx is done.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.http == nil {
		return fmt.Errorf("http server not initialized")
	}
	defer a.Close()

	if a.Summary != nil {
		a.Summary.Print()
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Infof("[app] http listening on %s", a.http.Addr())
		if err := a.http.Start(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		return a.sessions.RunSweeper(ctx, a.cfg.Session.SweepInterval())
	})
	return group.Wait()
}

// Close releases the journal and other owned resources.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	var firstErr error
	for _, c := range a.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}
