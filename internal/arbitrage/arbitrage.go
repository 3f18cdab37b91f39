// Package arbitrage implements the Arbitrage Detector (C6): orchestrates the
// pool cache, path finder, and profit calculator into a single scan, and
// keeps a bounded, append-only ring of detections and executions (capped at
// Config.HistoryLimit, default DefaultHistoryLimit) for statistics.
package arbitrage

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sentientforest/gswap-interesting-trader-bot/internal/pathfinder"
	"github.com/sentientforest/gswap-interesting-trader-bot/internal/poolcache"
	"github.com/sentientforest/gswap-interesting-trader-bot/internal/profit"
	"github.com/sentientforest/gswap-interesting-trader-bot/internal/registry"
	"github.com/sentientforest/gswap-interesting-trader-bot/internal/tokenkey"
)

// Detection is one scan's recorded candidate, independent of execution.
type Detection struct {
	ID          string
	Opportunity *profit.Opportunity
	DetectedAt  time.Time
}

// ExecutionRecord links a detection to its eventual trade outcome.
type ExecutionRecord struct {
	DetectionID    string
	Success        bool
	RealizedProfit decimal.Decimal
	RecordedAt     time.Time
}

// Stats summarizes detection/execution history.
type Stats struct {
	TotalDetected         int
	TotalExecuted         int
	SuccessRate           decimal.Decimal
	RealizedProfitSum     decimal.Decimal
	AverageRealizedProfit decimal.Decimal
}

// DefaultHistoryLimit is the detection/execution history cap used when
// Config.HistoryLimit is left at zero.
const DefaultHistoryLimit = 1000

// Config bounds a single scan.
type Config struct {
	BaseToken        tokenkey.Key
	MaxHops          int
	MinLiquidity     decimal.Decimal
	Notional         decimal.Decimal
	MinProfitPercent decimal.Decimal

	// HistoryLimit caps the number of retained detections and executions.
	// Zero means DefaultHistoryLimit.
	HistoryLimit int
}

// Detector orchestrates the scan and maintains history. Zero value is not
// usable; build with New.
type Detector struct {
	cache    *poolcache.Cache
	registry *registry.Registry
	cfg      Config

	mu         sync.RWMutex
	detections []Detection
	executions []ExecutionRecord
}

// New builds a Detector over the given cache and registry.
func New(cache *poolcache.Cache, reg *registry.Registry, cfg Config) *Detector {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	return &Detector{cache: cache, registry: reg, cfg: cfg}
}

// Scan requests fresh snapshots for every registered pool above the
// configured minimum liquidity, enumerates circular paths from the base
// token, evaluates each path's profitability, records every detected
// opportunity, and returns the filtered, sorted detections (each carrying
// the id a later RecordExecution call should reference). Pool fetch
// failures are logged and skipped rather than aborting the scan.
func (d *Detector) Scan(ctx context.Context) ([]Detection, error) {
	candidates := d.registry.PoolsAboveLiquidity(d.cfg.MinLiquidity)
	snapshots := make([]*poolcache.Snapshot, 0, len(candidates))
	for _, pool := range candidates {
		snap, err := d.cache.Get(ctx, pool.Token0, pool.Token1, pool.Fee)
		if err != nil {
			log.Warn("arbitrage scan: pool fetch failed, skipping", "token0", pool.Token0, "token1", pool.Token1, "fee", pool.Fee, "err", err)
			continue
		}
		snapshots = append(snapshots, snap)
	}

	paths := pathfinder.Find(d.cfg.BaseToken, d.cfg.MaxHops, snapshots, d.cfg.MinLiquidity)
	now := time.Now()
	opportunities := profit.EvaluateAll(paths, d.cfg.Notional, d.cfg.MinProfitPercent, now)

	detections := make([]Detection, 0, len(opportunities))
	for _, opp := range opportunities {
		detections = append(detections, Detection{ID: uuid.New().String(), Opportunity: opp, DetectedAt: now})
	}

	d.mu.Lock()
	d.detections = appendBounded(d.detections, detections, d.cfg.HistoryLimit)
	d.mu.Unlock()

	return detections, nil
}

// RecordExecution appends an execution outcome to history. detectionID
// should be the Detection.ID of the opportunity that was acted on.
func (d *Detector) RecordExecution(detectionID string, success bool, realizedProfit decimal.Decimal) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.executions = appendBounded(d.executions, []ExecutionRecord{{
		DetectionID:    detectionID,
		Success:        success,
		RealizedProfit: realizedProfit,
		RecordedAt:     time.Now(),
	}}, d.cfg.HistoryLimit)
}

// appendBounded appends items to history and trims from the front so the
// result never exceeds limit, keeping the most recent entries.
func appendBounded[T any](history []T, items []T, limit int) []T {
	history = append(history, items...)
	if len(history) > limit {
		history = history[len(history)-limit:]
	}
	return history
}

// Detections returns every recorded detection, in detection order.
func (d *Detector) Detections() []Detection {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Detection, len(d.detections))
	copy(out, d.detections)
	return out
}

// Statistics computes summary counters over the full history.
func (d *Detector) Statistics() Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	stats := Stats{
		TotalDetected: len(d.detections),
		TotalExecuted: len(d.executions),
	}

	successCount := 0
	sum := decimal.Zero
	for _, e := range d.executions {
		if e.Success {
			successCount++
		}
		sum = sum.Add(e.RealizedProfit)
	}
	stats.RealizedProfitSum = sum

	if len(d.executions) > 0 {
		stats.SuccessRate = decimal.NewFromInt(int64(successCount)).DivRound(decimal.NewFromInt(int64(len(d.executions))), 10).Mul(decimal.NewFromInt(100))
		stats.AverageRealizedProfit = sum.DivRound(decimal.NewFromInt(int64(len(d.executions))), 10)
	}

	return stats
}
