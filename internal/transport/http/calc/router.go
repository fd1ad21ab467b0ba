package calchttp

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"positionsizer/internal/analysis/indicator"
	"positionsizer/internal/gateway/binance"
	"positionsizer/internal/logger"
	"positionsizer/internal/market"
	"positionsizer/internal/presets"
	"positionsizer/internal/service/calculator"
	"positionsizer/internal/session"
	"positionsizer/internal/sizing"

	"github.com/gin-gonic/gin"
)

// SnapshotSource is satisfied by *presets.Registry.
type SnapshotSource interface {
	Snapshot() presets.Snapshot
}

// BalanceSource is satisfied by *binance.Source.
type BalanceSource interface {
	FetchBalance(ctx context.Context, asset string) (binance.Balance, error)
}

// CandleSource is satisfied by *binance.Source.
type CandleSource interface {
	FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error)
}

type StopLossSettings struct {
	Interval      string
	Candles       int
	ATRPeriod     int
	ATRMultiplier float64
}

// Router holds the /api handlers.
type Router struct {
	calc     *calculator.Service
	presets  SnapshotSource
	balance  BalanceSource
	candles  CandleSource
	asset    string
	stopLoss StopLossSettings
}

func NewRouter(cfg ServerConfig) *Router {
	return &Router{
		calc:     cfg.Calculator,
		presets:  cfg.Presets,
		balance:  cfg.Balance,
		candles:  cfg.Candles,
		asset:    cfg.Asset,
		stopLoss: cfg.StopLoss,
	}
}

// Register mounts the API routes on group.
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/options", r.handleOptions)
	group.POST("/compute", r.handleCompute)
	group.POST("/sessions", r.handleCreateSession)
	group.GET("/sessions/:id", r.handleGetSession)
	group.POST("/sessions/:id/calculate", r.handleSessionCalculate)
	group.GET("/sessions/:id/copy", r.handleSessionCopy)
	group.GET("/sessions/:id/history", r.handleSessionHistory)
	group.GET("/balance", r.handleBalance)
	group.GET("/stop-loss/suggest", r.handleStopLossSuggest)
}

type optionsResponse struct {
	Version           int64                   `json:"version"`
	Source            string                  `json:"source"`
	Risk              []float64               `json:"risk"`
	Commission        []sizing.CommissionTier `json:"commission"`
	DefaultRisk       float64                 `json:"default_risk"`
	DefaultCommission string                  `json:"default_commission"`
}

func (r *Router) handleOptions(c *gin.Context) {
	var snap presets.Snapshot
	if r.presets != nil {
		snap = r.presets.Snapshot()
	} else {
		snap = presets.Snapshot{Source: "builtin", Choices: r.calc.Choices()}
	}
	c.JSON(http.StatusOK, optionsResponse{
		Version:           snap.Version,
		Source:            snap.Source,
		Risk:              snap.Choices.Risk,
		Commission:        snap.Choices.Commission,
		DefaultRisk:       snap.Choices.DefaultRisk,
		DefaultCommission: snap.Choices.DefaultCommission,
	})
}

func (r *Router) handleCompute(c *gin.Context) {
	form, err := decodeForm(c.Request.Body)
	if err != nil {
		abortWithError(c, err)
		return
	}
	out, err := r.calc.Compute(c.Request.Context(), form)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type sessionResponse struct {
	session.State
	Display  sizing.Display `json:"display"`
	CopyText string         `json:"copy_text"`
}

func newSessionResponse(st session.State) sessionResponse {
	return sessionResponse{State: st, Display: st.Display(), CopyText: st.Result.CopyText()}
}

func (r *Router) handleCreateSession(c *gin.Context) {
	st := r.calc.NewSession()
	c.JSON(http.StatusCreated, newSessionResponse(st))
}

func (r *Router) handleGetSession(c *gin.Context) {
	st, err := r.calc.Session(c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionResponse(st))
}

func (r *Router) handleSessionCalculate(c *gin.Context) {
	id := c.Param("id")
	form, err := decodeForm(c.Request.Body)
	if err != nil {
		abortWithError(c, err)
		return
	}
	out, st, err := r.calc.Calculate(c.Request.Context(), id, form)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			abortWithError(c, err)
			return
		}
		body := errorBody(err)
		body["session"] = newSessionResponse(st)
		c.JSON(statusFor(err), body)
		return
	}
	c.JSON(http.StatusOK, gin.H{"outcome": out, "session": newSessionResponse(st)})
}

func (r *Router) handleSessionCopy(c *gin.Context) {
	text, err := r.calc.CopyText(c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.String(http.StatusOK, text)
}

func (r *Router) handleSessionHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 {
		limit = 50
	}
	id := c.Param("id")
	if _, err := r.calc.Session(id); err != nil {
		abortWithError(c, err)
		return
	}
	rows, err := r.calc.History(c.Request.Context(), id, limit)
	if err != nil {
		if !errors.Is(err, calculator.ErrJournalDisabled) {
			logger.Errorf("[api] history session=%s: %v", id, err)
		}
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": rows, "count": len(rows)})
}

func (r *Router) handleBalance(c *gin.Context) {
	if r.balance == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "binance balance lookup is disabled"})
		return
	}
	asset := strings.TrimSpace(c.Query("asset"))
	if asset == "" {
		asset = r.asset
	}
	bal, err := r.balance.FetchBalance(c.Request.Context(), asset)
	if err != nil {
		logger.Warnf("[api] balance asset=%s: %v", asset, err)
		c.JSON(upstreamStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"asset":        bal.Asset,
		"wallet":       bal.Wallet,
		"available":    bal.Available,
		"balance_text": sizing.FormatAmount(bal.Wallet),
	})
}

func (r *Router) handleStopLossSuggest(c *gin.Context) {
	if r.candles == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "stop-loss suggestion is disabled"})
		return
	}
	symbol := strings.TrimSpace(c.Query("symbol"))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}
	interval := strings.TrimSpace(c.DefaultQuery("interval", r.stopLoss.Interval))
	period := r.stopLoss.ATRPeriod
	if raw := strings.TrimSpace(c.Query("period")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 || v > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "period must be an integer in [1, 500]"})
			return
		}
		period = v
	}
	multiplier := r.stopLoss.ATRMultiplier
	if raw := strings.TrimSpace(c.Query("multiplier")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 || v > 20 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "multiplier must be a number in (0, 20]"})
			return
		}
		multiplier = v
	}
	limit := r.stopLoss.Candles
	if limit < period+2 {
		limit = period + 2
	}
	candles, err := r.candles.FetchCandles(c.Request.Context(), symbol, interval, limit)
	if err != nil {
		logger.Warnf("[api] candles %s %s: %v", symbol, interval, err)
		c.JSON(upstreamStatus(err), gin.H{"error": err.Error()})
		return
	}
	s, err := indicator.SuggestStopLoss(candles, period, multiplier)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	s.Symbol = binance.ToExchangeSymbol(symbol)
	s.Interval = interval
	c.JSON(http.StatusOK, gin.H{
		"suggestion":     s,
		"stop_loss_text": sizing.FormatAmount(s.StopLossPercent),
	})
}

// upstreamStatus maps exchange failures: unavailable when the breaker or
// missing credentials block the call, bad gateway otherwise.
func upstreamStatus(err error) int {
	if errors.Is(err, binance.ErrCircuitOpen) || errors.Is(err, binance.ErrNoCredentials) {
		return http.StatusServiceUnavailable
	}
	if errors.Is(err, binance.ErrAssetNotFound) {
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}
