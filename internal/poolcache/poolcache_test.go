package poolcache

import (
	"context"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentientforest/gswap-interesting-trader-bot/internal/tokenkey"
)

type countingFetcher struct {
	calls int32
	delay time.Duration
}

func (f *countingFetcher) GetCompositePool(ctx context.Context, t0, t1 tokenkey.Key, fee int) (*Snapshot, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return &Snapshot{
		Token0:       t0,
		Token1:       t1,
		Fee:          fee,
		SqrtPriceX96: big.NewInt(1),
		Liquidity:    big.NewInt(1000),
		FetchedAt:    time.Now(),
	}, nil
}

func TestCache_GetFetchesOnMiss(t *testing.T) {
	f := &countingFetcher{}
	c := New(f, time.Minute)

	gala := tokenkey.FromSymbol("GALA")
	silk := tokenkey.FromSymbol("SILK")

	snap, err := c.Get(context.Background(), gala, silk, 3000)
	require.NoError(t, err)
	assert.NotNil(t, snap)
	assert.Equal(t, int32(1), f.calls)
}

func TestCache_GetReusesLiveEntry(t *testing.T) {
	f := &countingFetcher{}
	c := New(f, time.Minute)

	gala := tokenkey.FromSymbol("GALA")
	silk := tokenkey.FromSymbol("SILK")

	_, err := c.Get(context.Background(), gala, silk, 3000)
	require.NoError(t, err)
	_, err = c.Get(context.Background(), gala, silk, 3000)
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.calls, "second get should reuse the cached entry")
}

func TestCache_GetRefetchesAfterExpiry(t *testing.T) {
	f := &countingFetcher{}
	c := New(f, time.Millisecond)

	gala := tokenkey.FromSymbol("GALA")
	silk := tokenkey.FromSymbol("SILK")

	_, err := c.Get(context.Background(), gala, silk, 3000)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	_, err = c.Get(context.Background(), gala, silk, 3000)
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.calls)
}

func TestCache_ConcurrentGetsCoalesce(t *testing.T) {
	f := &countingFetcher{delay: 20 * time.Millisecond}
	c := New(f, time.Minute)

	gala := tokenkey.FromSymbol("GALA")
	silk := tokenkey.FromSymbol("SILK")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Get(context.Background(), gala, silk, 3000)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), f.calls, "concurrent gets for the same key must coalesce into one fetch")
}

func TestCache_DifferentKeysDoNotCoalesce(t *testing.T) {
	f := &countingFetcher{}
	c := New(f, time.Minute)

	gala := tokenkey.FromSymbol("GALA")
	silk := tokenkey.FromSymbol("SILK")
	gusdc := tokenkey.FromSymbol("GUSDC")

	_, err := c.Get(context.Background(), gala, silk, 3000)
	require.NoError(t, err)
	_, err = c.Get(context.Background(), gala, gusdc, 3000)
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.calls)
}

func TestCache_EvictExpired(t *testing.T) {
	f := &countingFetcher{}
	c := New(f, time.Millisecond)

	gala := tokenkey.FromSymbol("GALA")
	silk := tokenkey.FromSymbol("SILK")
	_, err := c.Get(context.Background(), gala, silk, 3000)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	removed := c.EvictExpired()
	assert.Equal(t, 1, removed)
	assert.Empty(t, c.SnapshotAll())
}

func TestCache_EvictAll(t *testing.T) {
	f := &countingFetcher{}
	c := New(f, time.Minute)

	gala := tokenkey.FromSymbol("GALA")
	silk := tokenkey.FromSymbol("SILK")
	_, err := c.Get(context.Background(), gala, silk, 3000)
	require.NoError(t, err)

	c.EvictAll()
	assert.Empty(t, c.SnapshotAll())
}

func TestCache_SnapshotAllReturnsOnlyLive(t *testing.T) {
	f := &countingFetcher{}
	c := New(f, time.Minute)

	gala := tokenkey.FromSymbol("GALA")
	silk := tokenkey.FromSymbol("SILK")
	_, err := c.Get(context.Background(), gala, silk, 3000)
	require.NoError(t, err)

	snaps := c.SnapshotAll()
	require.Len(t, snaps, 1)
	assert.Equal(t, gala, snaps[0].Token0)
}
