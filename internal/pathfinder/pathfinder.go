// Package pathfinder implements the Path Finder (C4): enumeration of simple
// circular paths of length 2-4 over the pool graph built from cached
// snapshots.
package pathfinder

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sentientforest/gswap-interesting-trader-bot/internal/poolcache"
	"github.com/sentientforest/gswap-interesting-trader-bot/internal/tokenkey"
)

// Hop is one leg of a path: swap from From to To through Snapshot's pool.
type Hop struct {
	From     tokenkey.Key
	To       tokenkey.Key
	Snapshot *poolcache.Snapshot
}

// Path is a circular sequence of hops beginning and ending at the same token.
type Path struct {
	Tokens []tokenkey.Key
	Hops   []Hop
}

// Len returns the hop count (2, 3, or 4).
func (p Path) Len() int { return len(p.Hops) }

type edge struct {
	to       tokenkey.Key
	snapshot *poolcache.Snapshot
}

// buildAdjacency builds an undirected adjacency map from snapshots whose
// liquidity exceeds minLiquidity, preserving snapshots' input order so
// repeated calls with the same input produce identical traversal order.
func buildAdjacency(snapshots []*poolcache.Snapshot, minLiquidity decimal.Decimal) map[tokenkey.Key][]edge {
	adj := make(map[tokenkey.Key][]edge)
	for _, s := range snapshots {
		liquidity := decimal.NewFromBigInt(s.Liquidity, 0)
		if liquidity.LessThanOrEqual(minLiquidity) {
			continue
		}
		adj[s.Token0] = append(adj[s.Token0], edge{to: s.Token1, snapshot: s})
		adj[s.Token1] = append(adj[s.Token1], edge{to: s.Token0, snapshot: s})
	}
	return adj
}

func tokensFromHops(base tokenkey.Key, hops []Hop) []tokenkey.Key {
	tokens := make([]tokenkey.Key, 0, len(hops)+1)
	tokens = append(tokens, base)
	for _, h := range hops {
		tokens = append(tokens, h.To)
	}
	return tokens
}

func copyHops(hops []Hop, extra Hop) []Hop {
	out := make([]Hop, len(hops), len(hops)+1)
	copy(out, hops)
	return append(out, extra)
}

// cycleKey returns an ordered identifier for a completed cycle's pool
// sequence, and reverseCycleKey returns the same sequence reversed. A cycle found by
// walking the graph in one direction and its mirror image found walking the
// opposite direction around the same set of pools produce keys that are each
// other's reverse; Find keeps only the first one seen.
func cycleKey(hops []Hop) string {
	parts := make([]string, len(hops))
	for i, h := range hops {
		parts[i] = fmt.Sprintf("%p", h.Snapshot)
	}
	return strings.Join(parts, ">")
}

func reverseCycleKey(hops []Hop) string {
	parts := make([]string, len(hops))
	for i, h := range hops {
		parts[len(hops)-1-i] = fmt.Sprintf("%p", h.Snapshot)
	}
	return strings.Join(parts, ">")
}

// Find enumerates every simple cycle of length 2..maxHops that begins and
// ends at base, over the pool graph induced by snapshots above
// minLiquidity. Traversal order is deterministic in the input order of
// snapshots. A cycle and its mirror image (the same pools walked in the
// opposite direction around the graph) are the same physical opportunity;
// only the first one discovered is kept.
func Find(base tokenkey.Key, maxHops int, snapshots []*poolcache.Snapshot, minLiquidity decimal.Decimal) []Path {
	if maxHops < 2 {
		maxHops = 2
	}
	if maxHops > 4 {
		maxHops = 4
	}

	adj := buildAdjacency(snapshots, minLiquidity)
	var results []Path
	seen := make(map[string]bool)

	visited := map[tokenkey.Key]bool{base: true}

	var dfs func(current tokenkey.Key, hops []Hop)
	dfs = func(current tokenkey.Key, hops []Hop) {
		for _, e := range adj[current] {
			if e.to.Equal(base) {
				if len(hops) < 1 {
					continue
				}
				if len(hops) == 1 && hops[0].Snapshot == e.snapshot {
					// 2-cycle return pool must differ from the outgoing pool.
					continue
				}
				newHops := copyHops(hops, Hop{From: current, To: base, Snapshot: e.snapshot})
				key := cycleKey(newHops)
				if seen[reverseCycleKey(newHops)] {
					continue
				}
				seen[key] = true
				results = append(results, Path{Tokens: tokensFromHops(base, newHops), Hops: newHops})
				continue
			}
			if visited[e.to] {
				continue
			}
			if len(hops)+1 >= maxHops {
				// extending would exceed maxHops without returning to base
				continue
			}
			visited[e.to] = true
			dfs(e.to, copyHops(hops, Hop{From: current, To: e.to, Snapshot: e.snapshot}))
			delete(visited, e.to)
		}
	}

	dfs(base, nil)
	return results
}
