// Package engine implements the Scheduler/Engine (C9): two independent
// periodic loops (rebalance and arbitrage) plus a status snapshot, per
// spec.md §4.9/§5.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/shopspring/decimal"

	"github.com/sentientforest/gswap-interesting-trader-bot/internal/arbitrage"
	"github.com/sentientforest/gswap-interesting-trader-bot/internal/balance"
	"github.com/sentientforest/gswap-interesting-trader-bot/internal/executor"
	"github.com/sentientforest/gswap-interesting-trader-bot/internal/poolcache"
	"github.com/sentientforest/gswap-interesting-trader-bot/internal/tokenkey"
)

// Config bounds the engine's behavior.
type Config struct {
	TradeInterval          time.Duration
	ArbitrageCheckInterval time.Duration
	EnableArbitrage        bool
	WalletAddress          string
	PreferredToken         tokenkey.Key
	GasToken               tokenkey.Key
	MinGasBalance          decimal.Decimal
	// TradeAmountPercentage is the fraction of each balance an intent trades
	// (0.1 trades 10%), passed unchanged to balance.DeriveIntents.
	TradeAmountPercentage decimal.Decimal
}

// HistoryLimit bounds the in-memory recent-activity slices the status
// snapshot reports.
const HistoryLimit = 50

// Engine owns the rebalance and arbitrage loops and exposes a pure-read
// status snapshot.
type Engine struct {
	cfg      Config
	fetcher  balance.Fetcher
	detector *arbitrage.Detector
	executor *executor.Executor
	cache    *poolcache.Cache

	mu            sync.Mutex
	running       bool
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	startedAt     time.Time
	lastBalance   balance.Summary
	lastTradeAt   time.Time
	lastArbScanAt time.Time
	tradeHistory  []*executor.TradeResult
	arbHistory    []arbitrage.Detection
	execHistory   []*executor.ArbitrageResult
}

// New builds an Engine over its collaborators.
func New(cfg Config, fetcher balance.Fetcher, detector *arbitrage.Detector, exec *executor.Executor, cache *poolcache.Cache) *Engine {
	return &Engine{cfg: cfg, fetcher: fetcher, detector: detector, executor: exec, cache: cache}
}

// Start launches both loops, each firing its first tick immediately. Start
// is idempotent: calling it while already running is a no-op.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.running = true
	e.startedAt = time.Now()

	e.wg.Add(2)
	go e.runLoop(loopCtx, e.cfg.TradeInterval, e.rebalanceTick)
	if e.cfg.EnableArbitrage {
		go e.runLoop(loopCtx, e.cfg.ArbitrageCheckInterval, e.arbitrageTick)
	} else {
		e.wg.Done()
	}
}

// Stop cancels both loops and waits for them to return. Stop is idempotent.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	cancel := e.cancel
	e.running = false
	e.mu.Unlock()

	cancel()
	e.wg.Wait()
}

// runLoop fires tick immediately, then every interval, until ctx is done. A
// tick that would overlap the prior tick's execution is deferred: ticks run
// sequentially within a loop, even if the interval elapses mid-tick.
func (e *Engine) runLoop(ctx context.Context, interval time.Duration, tick func(context.Context)) {
	defer e.wg.Done()

	tick(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick(ctx)
		}
	}
}

func (e *Engine) rebalanceTick(ctx context.Context) {
	summary, err := balance.Fetch(ctx, e.fetcher, e.cfg.WalletAddress, e.cfg.PreferredToken, e.cfg.GasToken, 100)
	if err != nil {
		log.Warn("rebalance tick: balance fetch failed", "err", err)
		return
	}

	intents := balance.DeriveIntents(summary, e.cfg.PreferredToken, e.cfg.GasToken, e.cfg.MinGasBalance, e.cfg.TradeAmountPercentage)
	results := e.executor.ExecuteBatch(ctx, intents)

	refreshed, err := balance.Fetch(ctx, e.fetcher, e.cfg.WalletAddress, e.cfg.PreferredToken, e.cfg.GasToken, 100)
	if err != nil {
		log.Warn("rebalance tick: post-trade balance refresh failed", "err", err)
		refreshed = summary
	}

	e.mu.Lock()
	e.lastBalance = refreshed
	e.lastTradeAt = time.Now()
	e.tradeHistory = appendBounded(e.tradeHistory, results, HistoryLimit)
	e.mu.Unlock()
}

func (e *Engine) arbitrageTick(ctx context.Context) {
	detections, err := e.detector.Scan(ctx)
	if err != nil {
		log.Warn("arbitrage tick: scan failed", "err", err)
		return
	}

	e.mu.Lock()
	e.lastArbScanAt = time.Now()
	e.arbHistory = appendBounded(e.arbHistory, detections, HistoryLimit)
	e.mu.Unlock()

	if len(detections) == 0 {
		e.cache.EvictExpired()
		return
	}

	top := detections[0]
	result := e.executor.ExecuteArbitrage(ctx, top.Opportunity)

	realized := decimal.Zero
	if result.Success {
		realized = result.AmountOut.Sub(top.Opportunity.InputAmount)
	}
	e.detector.RecordExecution(top.ID, result.Success, realized)

	e.mu.Lock()
	e.execHistory = appendBoundedPtr(e.execHistory, result, HistoryLimit)
	e.mu.Unlock()

	e.cache.EvictExpired()
}

func appendBounded[T any](history []T, items []T, limit int) []T {
	history = append(history, items...)
	if len(history) > limit {
		history = history[len(history)-limit:]
	}
	return history
}

func appendBoundedPtr[T any](history []T, item T, limit int) []T {
	history = append(history, item)
	if len(history) > limit {
		history = history[len(history)-limit:]
	}
	return history
}

// Status is a read-only snapshot of engine state, producible without
// blocking on external I/O.
type Status struct {
	Running       bool
	Config        Config
	Uptime        time.Duration
	LastBalance   balance.Summary
	LastTradeAt   time.Time
	LastArbScanAt time.Time
	Stats         arbitrage.Stats
	TradeHistory  []*executor.TradeResult
	Opportunities []arbitrage.Detection
	Executions    []*executor.ArbitrageResult
}

// Status returns a pure-read snapshot of the engine's current state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	uptime := time.Duration(0)
	if e.running {
		uptime = time.Since(e.startedAt)
	}

	var stats arbitrage.Stats
	if e.detector != nil {
		stats = e.detector.Statistics()
	}

	return Status{
		Running:       e.running,
		Config:        e.cfg,
		Uptime:        uptime,
		LastBalance:   e.lastBalance,
		LastTradeAt:   e.lastTradeAt,
		LastArbScanAt: e.lastArbScanAt,
		Stats:         stats,
		TradeHistory:  append([]*executor.TradeResult(nil), e.tradeHistory...),
		Opportunities: append([]arbitrage.Detection(nil), e.arbHistory...),
		Executions:    append([]*executor.ArbitrageResult(nil), e.execHistory...),
	}
}
