package arbitrage

import (
	"context"
	"math/big"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentientforest/gswap-interesting-trader-bot/internal/poolcache"
	"github.com/sentientforest/gswap-interesting-trader-bot/internal/registry"
	"github.com/sentientforest/gswap-interesting-trader-bot/internal/tokenkey"
)

type fakeFetcher struct {
	snapshots map[string]*poolcache.Snapshot
	calls     int
}

func snapKey(t0, t1 tokenkey.Key, fee int) string {
	return tokenkey.UnorderedPairKey(t0, t1, fee)
}

func (f *fakeFetcher) GetCompositePool(ctx context.Context, t0, t1 tokenkey.Key, fee int) (*poolcache.Snapshot, error) {
	f.calls++
	snap, ok := f.snapshots[snapKey(t0, t1, fee)]
	if !ok {
		return nil, assertError("no fixture for pool")
	}
	return snap, nil
}

type testErr string

func (e testErr) Error() string    { return string(e) }
func assertError(msg string) error { return testErr(msg) }

func flatSnapshot(t0, t1 tokenkey.Key, fee int) *poolcache.Snapshot {
	liquidity, _ := new(big.Int).SetString("100000000000000000000", 10)
	return &poolcache.Snapshot{
		Token0:       t0,
		Token1:       t1,
		Fee:          fee,
		Decimals0:    8,
		Decimals1:    8,
		SqrtPriceX96: big.NewInt(1).Lsh(big.NewInt(1), 96),
		Tick:         0,
		Liquidity:    liquidity,
		TickSpacing:  60,
		Ticks:        map[int32]poolcache.TickInfo{},
	}
}

func newTestRegistry(t *testing.T, a, b, c tokenkey.Key) *registry.Registry {
	t.Helper()
	tokensPath := writeCSV(t, "tokens.csv", "symbol,key,decimals,description\n"+
		"A,"+a.String()+",8,A\n"+
		"B,"+b.String()+",8,B\n"+
		"C,"+c.String()+",8,C\n")
	poolsPath := writeCSV(t, "pools.csv", "token0,token1,fee,liquidity\n"+
		"A,B,500,1000\nB,C,3000,1000\nC,A,10000,1000\n")
	reg, err := registry.Load(tokensPath, poolsPath)
	require.NoError(t, err)
	return reg
}

func writeCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := t.TempDir() + "/" + name
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDetector_ScanRecordsDetections(t *testing.T) {
	a := tokenkey.FromSymbol("A")
	b := tokenkey.FromSymbol("B")
	c := tokenkey.FromSymbol("C")
	reg := newTestRegistry(t, a, b, c)

	fetcher := &fakeFetcher{snapshots: map[string]*poolcache.Snapshot{
		snapKey(a, b, 500):   flatSnapshot(a, b, 500),
		snapKey(b, c, 3000):  flatSnapshot(b, c, 3000),
		snapKey(c, a, 10000): flatSnapshot(c, a, 10000),
	}}
	cache := poolcache.New(fetcher, time.Minute)
	det := New(cache, reg, Config{
		BaseToken:        a,
		MaxHops:          3,
		MinLiquidity:     decimal.Zero,
		Notional:         decimal.NewFromInt(100),
		MinProfitPercent: decimal.NewFromInt(-100),
	})

	opportunities, err := det.Scan(context.Background())
	require.NoError(t, err)
	// Flat pools with fees always lose money, so the filtered result list can
	// legitimately be empty; what matters is that detection history mirrors
	// whatever EvaluateAll returned.
	assert.Equal(t, len(opportunities), len(det.Detections()))
}

func TestDetector_ScanSkipsFailingPoolFetch(t *testing.T) {
	a := tokenkey.FromSymbol("A")
	b := tokenkey.FromSymbol("B")
	c := tokenkey.FromSymbol("C")
	reg := newTestRegistry(t, a, b, c)

	fetcher := &fakeFetcher{snapshots: map[string]*poolcache.Snapshot{
		snapKey(a, b, 500): flatSnapshot(a, b, 500),
	}}
	cache := poolcache.New(fetcher, time.Minute)
	det := New(cache, reg, Config{BaseToken: a, MaxHops: 3, MinLiquidity: decimal.Zero, Notional: decimal.NewFromInt(100)})

	_, err := det.Scan(context.Background())
	require.NoError(t, err, "missing pool fixtures are skipped, not fatal")
}

func TestDetector_StatisticsComputesSuccessRateAndAverages(t *testing.T) {
	det := New(nil, nil, Config{})
	det.RecordExecution("d1", true, decimal.NewFromFloat(1.5))
	det.RecordExecution("d2", false, decimal.Zero)
	det.RecordExecution("d3", true, decimal.NewFromFloat(2.5))

	stats := det.Statistics()
	assert.Equal(t, 3, stats.TotalExecuted)
	assert.Equal(t, "66.67", stats.SuccessRate.Round(2).String())
	assert.True(t, stats.RealizedProfitSum.Equal(decimal.NewFromFloat(4)))
	assert.Equal(t, "1.33", stats.AverageRealizedProfit.Round(2).String())
}

func TestDetector_RecordExecutionCapsHistoryAtConfiguredLimit(t *testing.T) {
	det := New(nil, nil, Config{HistoryLimit: 3})
	for i := 0; i < 5; i++ {
		det.RecordExecution("d", true, decimal.NewFromInt(1))
	}
	assert.Equal(t, 3, det.Statistics().TotalExecuted)
}

func TestDetector_RecordExecutionDefaultsHistoryLimitWhenUnset(t *testing.T) {
	det := New(nil, nil, Config{})
	assert.Equal(t, DefaultHistoryLimit, det.cfg.HistoryLimit)
}

func TestDetector_StatisticsZeroExecutionsYieldsZeroRates(t *testing.T) {
	det := New(nil, nil, Config{})
	stats := det.Statistics()
	assert.Equal(t, 0, stats.TotalExecuted)
	assert.True(t, stats.SuccessRate.IsZero())
	assert.True(t, stats.AverageRealizedProfit.IsZero())
}
