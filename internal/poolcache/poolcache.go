// Package poolcache implements the Pool Snapshot Cache (C2): a TTL-bounded,
// single-flight-coalesced cache of composite pool state fetched from the
// transport.
package poolcache

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/sync/singleflight"

	"github.com/sentientforest/gswap-interesting-trader-bot/internal/tokenkey"
	"github.com/sentientforest/gswap-interesting-trader-bot/pkg/errs"
)

// TickInfo is one sparse entry in a pool's tick map.
type TickInfo struct {
	NetLiquidity     *big.Int
	GrossLiquidity   *big.Int
	FeeGrowthOutside *big.Int
}

// Snapshot is the composite pool state a quote is computed against.
type Snapshot struct {
	Token0       tokenkey.Key
	Token1       tokenkey.Key
	Fee          int
	Decimals0    int32
	Decimals1    int32
	SqrtPriceX96 *big.Int
	Tick         int32
	Liquidity    *big.Int
	TickSpacing  int
	Ticks        map[int32]TickInfo
	FetchedAt    time.Time
}

// Fetcher retrieves a live composite pool snapshot from the transport. The
// gateway client in internal/gswap implements this.
type Fetcher interface {
	GetCompositePool(ctx context.Context, t0, t1 tokenkey.Key, fee int) (*Snapshot, error)
}

type entry struct {
	snapshot *Snapshot
	expires  time.Time
}

// Cache is the TTL pool snapshot cache. Zero value is not usable; build with New.
type Cache struct {
	fetcher Fetcher
	ttl     time.Duration

	mu      sync.RWMutex
	entries map[string]entry

	group singleflight.Group
}

// New builds a Cache with the given fetcher and per-entry time-to-live.
func New(fetcher Fetcher, ttl time.Duration) *Cache {
	return &Cache{
		fetcher: fetcher,
		ttl:     ttl,
		entries: make(map[string]entry),
	}
}

func key(t0, t1 tokenkey.Key, fee int) string {
	return tokenkey.UnorderedPairKey(t0, t1, fee)
}

// Get returns a live snapshot for (t0, t1, fee), fetching it if absent or
// expired. Concurrent Get calls for the same key coalesce into a single
// in-flight fetch.
func (c *Cache) Get(ctx context.Context, t0, t1 tokenkey.Key, fee int) (*Snapshot, error) {
	k := key(t0, t1, fee)

	c.mu.RLock()
	e, ok := c.entries[k]
	c.mu.RUnlock()
	if ok && time.Now().Before(e.expires) {
		return e.snapshot, nil
	}

	v, err, _ := c.group.Do(k, func() (interface{}, error) {
		snap, err := c.fetcher.GetCompositePool(ctx, t0, t1, fee)
		if err != nil {
			return nil, errs.Transport(err, "fetch composite pool %s/%s fee=%d", t0, t1, fee)
		}
		c.mu.Lock()
		c.entries[k] = entry{snapshot: snap, expires: time.Now().Add(c.ttl)}
		c.mu.Unlock()
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

// SnapshotAll returns every currently live (unexpired) snapshot without
// touching the transport.
func (c *Cache) SnapshotAll() []*Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := time.Now()
	out := make([]*Snapshot, 0, len(c.entries))
	for _, e := range c.entries {
		if now.Before(e.expires) {
			out = append(out, e.snapshot)
		}
	}
	return out
}

// EvictExpired removes every entry whose expiry has passed.
func (c *Cache) EvictExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
			removed++
		}
	}
	if removed > 0 {
		log.Debug("pool cache evicted expired entries", "count", removed)
	}
	return removed
}

// EvictAll clears the entire cache unconditionally.
func (c *Cache) EvictAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}
