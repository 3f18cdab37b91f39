package pathfinder

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentientforest/gswap-interesting-trader-bot/internal/poolcache"
	"github.com/sentientforest/gswap-interesting-trader-bot/internal/tokenkey"
)

func snap(t0, t1 tokenkey.Key, fee int, liquidity int64) *poolcache.Snapshot {
	return &poolcache.Snapshot{
		Token0:    t0,
		Token1:    t1,
		Fee:       fee,
		Liquidity: big.NewInt(liquidity),
	}
}

func scenarioSixSnapshots() (a, b, c tokenkey.Key, snapshots []*poolcache.Snapshot) {
	a = tokenkey.FromSymbol("A")
	b = tokenkey.FromSymbol("B")
	c = tokenkey.FromSymbol("C")
	snapshots = []*poolcache.Snapshot{
		snap(a, b, 500, 1_000_000),
		snap(a, b, 3000, 1_000_000),
		snap(b, c, 3000, 1_000_000),
		snap(c, a, 10000, 1_000_000),
	}
	return
}

func TestFind_ScenarioSixReturnsOneTwoCycleAndTwoThreeCycles(t *testing.T) {
	base, _, _, snapshots := scenarioSixSnapshots()
	paths := Find(base, 3, snapshots, decimal.Zero)

	var twoCycles, threeCycles int
	for _, p := range paths {
		switch p.Len() {
		case 2:
			twoCycles++
		case 3:
			threeCycles++
		default:
			t.Fatalf("unexpected path length %d", p.Len())
		}
	}

	// The two A-B pools form a single physical 2-cycle; walking it in either
	// direction around the graph is the same opportunity, so only one survives
	// reverse-sequence dedup. Each choice of A-B pool combined with the fixed
	// B-C and C-A pools forms a distinct 3-cycle, but the clockwise and
	// counter-clockwise walk of the same triangle are mirror images of each
	// other, so only one direction per A-B choice survives: 2 three-cycles.
	assert.Equal(t, 1, twoCycles)
	assert.Equal(t, 2, threeCycles)
	assert.Equal(t, 3, len(paths))
}

func TestFind_PathStartsAndEndsAtBase(t *testing.T) {
	base, _, _, snapshots := scenarioSixSnapshots()
	paths := Find(base, 3, snapshots, decimal.Zero)
	require.NotEmpty(t, paths)
	for _, p := range paths {
		require.NotEmpty(t, p.Tokens)
		assert.True(t, p.Tokens[0].Equal(base))
		assert.True(t, p.Tokens[len(p.Tokens)-1].Equal(base))
	}
}

func TestFind_IntermediateTokensAreDistinct(t *testing.T) {
	base, _, _, snapshots := scenarioSixSnapshots()
	paths := Find(base, 3, snapshots, decimal.Zero)
	for _, p := range paths {
		intermediates := p.Tokens[1 : len(p.Tokens)-1]
		seen := map[tokenkey.Key]bool{}
		for _, tok := range intermediates {
			assert.False(t, seen[tok], "intermediate token repeated within a single path")
			seen[tok] = true
		}
	}
}

func TestFind_EachHopPoolContainsBothEndpoints(t *testing.T) {
	base, _, _, snapshots := scenarioSixSnapshots()
	paths := Find(base, 3, snapshots, decimal.Zero)
	for _, p := range paths {
		for _, h := range p.Hops {
			poolHasFrom := h.Snapshot.Token0.Equal(h.From) || h.Snapshot.Token1.Equal(h.From)
			poolHasTo := h.Snapshot.Token0.Equal(h.To) || h.Snapshot.Token1.Equal(h.To)
			assert.True(t, poolHasFrom)
			assert.True(t, poolHasTo)
		}
	}
}

func TestFind_TwoCycleRejectsSamePoolBothLegs(t *testing.T) {
	a := tokenkey.FromSymbol("A")
	b := tokenkey.FromSymbol("B")
	snapshots := []*poolcache.Snapshot{snap(a, b, 500, 1_000_000)}
	paths := Find(a, 2, snapshots, decimal.Zero)
	assert.Empty(t, paths)
}

func TestFind_DeterministicAcrossRepeatedCalls(t *testing.T) {
	base, _, _, snapshots := scenarioSixSnapshots()
	p1 := Find(base, 3, snapshots, decimal.Zero)
	p2 := Find(base, 3, snapshots, decimal.Zero)
	require.Equal(t, len(p1), len(p2))
	for i := range p1 {
		assert.Equal(t, p1[i].Len(), p2[i].Len())
		for j, h := range p1[i].Hops {
			assert.Same(t, h.Snapshot, p2[i].Hops[j].Snapshot)
		}
	}
}

func TestFind_MinLiquidityFiltersLowLiquidityPools(t *testing.T) {
	a := tokenkey.FromSymbol("A")
	b := tokenkey.FromSymbol("B")
	snapshots := []*poolcache.Snapshot{
		snap(a, b, 500, 10),
		snap(a, b, 3000, 1_000_000),
	}
	paths := Find(a, 2, snapshots, decimal.NewFromInt(100))
	assert.Empty(t, paths)
}

func TestFind_NoPathsWhenGraphDisconnected(t *testing.T) {
	a := tokenkey.FromSymbol("A")
	x := tokenkey.FromSymbol("X")
	y := tokenkey.FromSymbol("Y")
	snapshots := []*poolcache.Snapshot{snap(x, y, 500, 1_000_000)}
	paths := Find(a, 4, snapshots, decimal.Zero)
	assert.Empty(t, paths)
}

func TestFind_MaxHopsClampedToFour(t *testing.T) {
	base, _, _, snapshots := scenarioSixSnapshots()
	paths := Find(base, 10, snapshots, decimal.Zero)
	for _, p := range paths {
		assert.LessOrEqual(t, p.Len(), 4)
	}
}
