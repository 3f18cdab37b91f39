// Package executor implements the Trade Router/Executor (C8): direct,
// routed, arbitrage, and batch swap execution against the gateway, with a
// dry-run mode that never touches the signer or submission endpoints.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sentientforest/gswap-interesting-trader-bot/internal/balance"
	"github.com/sentientforest/gswap-interesting-trader-bot/internal/gswap"
	"github.com/sentientforest/gswap-interesting-trader-bot/internal/poolcache"
	"github.com/sentientforest/gswap-interesting-trader-bot/internal/profit"
	"github.com/sentientforest/gswap-interesting-trader-bot/internal/quote"
	"github.com/sentientforest/gswap-interesting-trader-bot/internal/registry"
	"github.com/sentientforest/gswap-interesting-trader-bot/internal/tokenkey"
	"github.com/sentientforest/gswap-interesting-trader-bot/pkg/errs"
)

// InterTradeDelay is the fixed pause between serially executed batch trades,
// used to avoid rate limiting the gateway.
const InterTradeDelay = 5 * time.Second

// DryRunHaircut is the synthetic output ratio dry-run mode reports in place
// of an actual swap.
var DryRunHaircut = decimal.NewFromFloat(0.98)

// Signer produces a signed payload for a swap submission. No private-key
// signer is implemented in this module; this interface is the seam the
// executor calls through.
type Signer interface {
	Sign(ctx context.Context, params gswap.SwapParams) (string, error)
}

// TradeResult is one completed (or failed) swap attempt.
type TradeResult struct {
	Success   bool
	Source    tokenkey.Key
	Target    tokenkey.Key
	AmountIn  decimal.Decimal
	AmountOut decimal.Decimal
	TxID      string
	Err       error
	Timestamp time.Time
}

// ArbitrageResult is the outcome of executing every hop of a circular path.
type ArbitrageResult struct {
	Success     bool
	Opportunity *profit.Opportunity
	Hops        []*TradeResult
	AmountOut   decimal.Decimal
	Err         error
	Timestamp   time.Time
}

// Transport is the subset of gswap.Client the executor drives.
type Transport interface {
	GetPoolData(ctx context.Context, t0, t1 tokenkey.Key, fee int) (gswap.PoolData, error)
	SubmitSwap(ctx context.Context, params gswap.SwapParams) (string, error)
}

// Notifier awaits a submitted transaction's terminal outcome.
type Notifier interface {
	Await(ctx context.Context, txID string, timeout time.Duration) (gswap.Notification, error)
}

// Config holds the executor's tunables, all caller-supplied so the executor
// itself carries no hidden global state.
type Config struct {
	WalletAddress       string
	EnableTrading       bool
	MaxSlippagePercent  decimal.Decimal
	NotificationTimeout time.Duration
	Intermediates       []tokenkey.Key
}

// Executor implements the C8 public contract. cfg.Intermediates is the
// caller-derived slice of well-known intermediate tokens (gas token plus
// major stablecoins) that ExecuteRouted consults from the static registry —
// the executor itself holds no registry reference, only the derived list.
type Executor struct {
	transport Transport
	cache     *poolcache.Cache
	notifier  Notifier
	signer    Signer
	cfg       Config
}

// New builds an Executor.
func New(transport Transport, cache *poolcache.Cache, notifier Notifier, signer Signer, cfg Config) *Executor {
	return &Executor{transport: transport, cache: cache, notifier: notifier, signer: signer, cfg: cfg}
}

func (e *Executor) dryRunResult(src, dst tokenkey.Key, amount decimal.Decimal) *TradeResult {
	return &TradeResult{
		Success:   true,
		Source:    src,
		Target:    dst,
		AmountIn:  amount,
		AmountOut: amount.Mul(DryRunHaircut),
		TxID:      "dry-run-" + uuid.New().String(),
		Timestamp: time.Now(),
	}
}

func failedResult(src, dst tokenkey.Key, amount decimal.Decimal, err error) *TradeResult {
	return &TradeResult{Success: false, Source: src, Target: dst, AmountIn: amount, Err: err, Timestamp: time.Now()}
}

// selectFeeTier probes every allowed fee tier and returns the one with the
// greatest reported liquidity among pools that exist.
func (e *Executor) selectFeeTier(ctx context.Context, src, dst tokenkey.Key) (int, error) {
	best := -1
	var bestLiquidity decimal.Decimal
	for fee := range registry.AllowedFees {
		data, err := e.transport.GetPoolData(ctx, src, dst, fee)
		if err != nil {
			continue
		}
		if !data.Exists || data.Liquidity == nil || data.Liquidity.Sign() <= 0 {
			continue
		}
		liquidity := decimal.NewFromBigInt(data.Liquidity, 0)
		if best == -1 || liquidity.GreaterThan(bestLiquidity) {
			best = fee
			bestLiquidity = liquidity
		}
	}
	if best == -1 {
		return 0, errs.NoRoute(nil, "no pool with positive liquidity for %s/%s", src, dst)
	}
	return best, nil
}

// ExecuteDirect executes a single-pool swap. feeOpt, when non-nil, skips
// fee-tier probing.
func (e *Executor) ExecuteDirect(ctx context.Context, src, dst tokenkey.Key, amount decimal.Decimal, feeOpt *int) *TradeResult {
	if !e.cfg.EnableTrading {
		return e.dryRunResult(src, dst, amount)
	}

	fee := 0
	if feeOpt != nil {
		fee = *feeOpt
	} else {
		selected, err := e.selectFeeTier(ctx, src, dst)
		if err != nil {
			return failedResult(src, dst, amount, err)
		}
		fee = selected
	}

	snapshot, err := e.cache.Get(ctx, src, dst, fee)
	if err != nil {
		return failedResult(src, dst, amount, err)
	}

	result, err := quote.ExactInput(snapshot, src, amount)
	if err != nil {
		return failedResult(src, dst, amount, err)
	}

	slippageFactor := decimal.NewFromInt(1).Sub(e.cfg.MaxSlippagePercent.Div(decimal.NewFromInt(100)))
	minOut := result.AmountOut.Mul(slippageFactor)

	params := gswap.SwapParams{
		TokenIn:          src,
		TokenOut:         dst,
		Fee:              fee,
		AmountIn:         amount.String(),
		AmountOutMinimum: minOut.String(),
		Signer:           e.cfg.WalletAddress,
	}
	signedPayload, err := e.signer.Sign(ctx, params)
	if err != nil {
		return failedResult(src, dst, amount, errs.Submission(err, "sign swap %s->%s", src, dst))
	}
	params.SignedPayload = signedPayload

	txID, err := e.transport.SubmitSwap(ctx, params)
	if err != nil {
		return failedResult(src, dst, amount, err)
	}

	note, err := e.notifier.Await(ctx, txID, e.cfg.NotificationTimeout)
	if err != nil {
		return failedResult(src, dst, amount, err)
	}
	if note.Status == gswap.StatusFailed {
		return failedResult(src, dst, amount, errs.Submission(nil, "swap %s->%s: tx %s reported FAILED", src, dst, txID))
	}

	// Prefer the settled output when the notification carries one; otherwise
	// report the quoted output.
	amountOut := result.AmountOut
	if note.SettledAmountOut != "" {
		if settled, perr := decimal.NewFromString(note.SettledAmountOut); perr == nil {
			amountOut = settled
		}
	}

	return &TradeResult{
		Success:   true,
		Source:    src,
		Target:    dst,
		AmountIn:  amount,
		AmountOut: amountOut,
		TxID:      txID,
		Timestamp: time.Now(),
	}
}

// ExecuteRouted attempts a direct swap, falling back to two-hop paths
// through the configured intermediates on failure.
func (e *Executor) ExecuteRouted(ctx context.Context, src, dst tokenkey.Key, amount decimal.Decimal) *TradeResult {
	if direct := e.ExecuteDirect(ctx, src, dst, amount, nil); direct.Success {
		return direct
	}

	var lastErr error
	for _, mid := range e.cfg.Intermediates {
		if mid.Equal(src) || mid.Equal(dst) {
			continue
		}
		hop1 := e.ExecuteDirect(ctx, src, mid, amount, nil)
		if !hop1.Success {
			lastErr = hop1.Err
			continue
		}
		hop2 := e.ExecuteDirect(ctx, mid, dst, hop1.AmountOut, nil)
		if !hop2.Success {
			// Hop 1 already settled; the intermediate balance is left for the
			// next rebalance cycle to pick up (no automatic unwinding).
			log.Warn("routed swap: hop2 failed after hop1 settled, leaving intermediate balance", "src", src, "mid", mid, "dst", dst, "err", hop2.Err)
			lastErr = hop2.Err
			continue
		}
		return &TradeResult{
			Success:   true,
			Source:    src,
			Target:    dst,
			AmountIn:  amount,
			AmountOut: hop2.AmountOut,
			TxID:      hop2.TxID,
			Timestamp: time.Now(),
		}
	}

	if lastErr == nil {
		lastErr = errs.NoRoute(nil, "no routed path found for %s->%s", src, dst)
	}
	return failedResult(src, dst, amount, lastErr)
}

// ExecuteArbitrage executes every hop of opportunity in sequence, stopping
// on the first failing hop.
func (e *Executor) ExecuteArbitrage(ctx context.Context, opportunity *profit.Opportunity) *ArbitrageResult {
	amount := opportunity.InputAmount
	var hopResults []*TradeResult

	for _, hop := range opportunity.Path.Hops {
		fee := hop.Snapshot.Fee
		result := e.ExecuteDirect(ctx, hop.From, hop.To, amount, &fee)
		hopResults = append(hopResults, result)
		if !result.Success {
			return &ArbitrageResult{
				Success:     false,
				Opportunity: opportunity,
				Hops:        hopResults,
				Err:         result.Err,
				Timestamp:   time.Now(),
			}
		}
		amount = result.AmountOut
	}

	return &ArbitrageResult{
		Success:     true,
		Opportunity: opportunity,
		Hops:        hopResults,
		AmountOut:   amount,
		Timestamp:   time.Now(),
	}
}

// ExecuteBatch runs intents serially, gas-refill intents first, with
// InterTradeDelay between trades.
func (e *Executor) ExecuteBatch(ctx context.Context, intents []balance.Intent) []*TradeResult {
	ordered := make([]balance.Intent, 0, len(intents))
	for _, i := range intents {
		if i.Reason == balance.ReasonRefillGas {
			ordered = append(ordered, i)
		}
	}
	for _, i := range intents {
		if i.Reason != balance.ReasonRefillGas {
			ordered = append(ordered, i)
		}
	}

	results := make([]*TradeResult, 0, len(ordered))
	for idx, intent := range ordered {
		results = append(results, e.ExecuteDirect(ctx, intent.SourceToken, intent.TargetToken, intent.Amount, nil))
		if idx < len(ordered)-1 {
			if err := sleepContext(ctx, InterTradeDelay); err != nil {
				break
			}
		}
	}
	return results
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("executor: %w", ctx.Err())
	}
}
