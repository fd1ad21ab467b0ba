package calchttp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"positionsizer/internal/logger"
	"positionsizer/internal/service/calculator"

	"github.com/gin-gonic/gin"
)

// Server serves the calculator page and the JSON API.
type Server struct {
	addr   string
	router *gin.Engine
}

// ServerConfig lists the server's collaborators. Presets, Balance and
// Candles are optional; the matching routes answer 503 without them.
type ServerConfig struct {
	Addr       string
	Calculator *calculator.Service
	Presets    SnapshotSource
	Balance    BalanceSource
	Candles    CandleSource
	Asset      string
	StopLoss   StopLossSettings
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Calculator == nil {
		return nil, errors.New("calculator http server requires a calculator service")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9992"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	tmpl, err := loadTemplates()
	if err != nil {
		return nil, err
	}
	router.SetHTMLTemplate(tmpl)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	pages := &pageHandler{calc: cfg.Calculator}
	pages.Register(router)

	api := NewRouter(cfg)
	api.Register(router.Group("/api"))

	return &Server{addr: cfg.Addr, router: router}, nil
}

// requestLogger logs every request at debug level.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery
		client := c.ClientIP()
		c.Next()
		dur := time.Since(start)
		status := c.Writer.Status()
		fullPath := path
		if query != "" {
			fullPath = path + "?" + query
		}
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s", method, fullPath, status, client, dur)
	}
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Start serves until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
