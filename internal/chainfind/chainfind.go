// Package chainfind enumerates candidate clip chains over a SimilarityGraph
// via bounded depth-first search and ranks them by average boundary quality
// (spec §4.5). The search uses an explicit stack rather than recursion so
// branch-cap and path-depth bookkeeping stay visible and the worker's stack
// depth is bounded by chain length, not Go's call stack — the same
// style choice the corpus's own iterative traversals make (e.g.
// virtengine-virtengine's non-recursive tree walkers).
package chainfind

import (
	"container/heap"
	"context"
	"sort"
	"sync"

	"github.com/adverant/nexus/videochain/internal/graph"
	"github.com/adverant/nexus/videochain/internal/types"
)

// Options bounds the search (spec §4.5, §6).
type Options struct {
	MinLength   int
	MaxStarts   int
	BranchCap   int
	TopK        int
	WorkerCount int

	// Diverse enables frame-based diversity mode (spec §4.5): after
	// enumeration, chains are grouped by the starting clip's hash bucket
	// (BucketOf) and only the longest chain per bucket is kept, so near-
	// duplicate seed frames don't dominate the top-K. Ignored if BucketOf
	// is nil. Not applied in smart-score mode (Diverse == false).
	Diverse  bool
	BucketOf func(types.ClipId) uint64
}

// stackFrame is one explicit-stack entry: the clip at this depth, the
// index into its sorted outgoing edges to try next, and whether this depth
// has produced at least one successful extension (used to detect dead ends).
type stackFrame struct {
	clip       types.ClipId
	edges      []types.GraphEdge
	edgeIdx    int
	extended   bool
}

// Find runs bounded DFS from up to Options.MaxStarts starting points,
// sharded across Options.WorkerCount goroutines, and returns the global
// top Options.TopK chains by average quality, highest first; equal averages
// are ordered by length, longest first, and remaining ties lexicographically
// by the chain's clip sequence.
func Find(ctx context.Context, g *graph.SimilarityGraph, opts Options) ([]types.Chain, error) {
	starts := selectStarts(g, opts)

	workerCount := opts.WorkerCount
	if workerCount < 1 {
		workerCount = 1
	}
	shards := make([][]types.ClipId, workerCount)
	for i, s := range starts {
		shards[i%workerCount] = append(shards[i%workerCount], s)
	}

	results := make([]*topKHeap, workerCount)
	var wg sync.WaitGroup
	var firstErr error
	var errOnce sync.Once

	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func(shard []types.ClipId) {
			defer wg.Done()
			h := newTopKHeap(opts.TopK)
			for _, start := range shard {
				select {
				case <-ctx.Done():
					errOnce.Do(func() { firstErr = ctx.Err() })
					return
				default:
				}
				searchFrom(g, start, opts, h)
			}
			results[i] = h
		}(shards[i])
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}

	var merged []types.Chain
	for _, h := range results {
		merged = append(merged, h.chains...)
	}

	if opts.Diverse && opts.BucketOf != nil {
		merged = diversify(merged, opts.BucketOf)
	}

	sortChains(merged)
	if len(merged) > opts.TopK {
		merged = merged[:opts.TopK]
	}
	return merged, nil
}

// sortChains orders by (avg_quality desc, length desc), with a final
// lexicographic tie-break on the clip sequence for full determinism (spec
// §4.5).
func sortChains(chains []types.Chain) {
	sort.Slice(chains, func(i, j int) bool {
		if chains[i].AvgQuality != chains[j].AvgQuality {
			return chains[i].AvgQuality > chains[j].AvgQuality
		}
		if len(chains[i].Clips) != len(chains[j].Clips) {
			return len(chains[i].Clips) > len(chains[j].Clips)
		}
		return chainKey(chains[i]) < chainKey(chains[j])
	})
}

// diversify groups chains by the hash bucket of their starting clip and
// keeps only the longest chain per bucket (spec §4.5 diversity sampling,
// frame-based mode).
func diversify(chains []types.Chain, bucketOf func(types.ClipId) uint64) []types.Chain {
	best := make(map[uint64]types.Chain)
	for _, c := range chains {
		if len(c.Clips) == 0 {
			continue
		}
		key := bucketOf(c.Clips[0])
		cur, ok := best[key]
		if !ok || len(c.Clips) > len(cur.Clips) {
			best[key] = c
		}
	}
	out := make([]types.Chain, 0, len(best))
	for _, c := range best {
		out = append(out, c)
	}
	return out
}

// selectStarts picks the opts.MaxStarts clips with the highest out-degree
// (spec §4.5), ties broken lexicographically by ClipId for determinism.
func selectStarts(g *graph.SimilarityGraph, opts Options) []types.ClipId {
	var all []types.ClipId
	for src, edges := range g.Edges {
		if len(edges) > 0 {
			all = append(all, src)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		di, dj := g.OutDegree(all[i]), g.OutDegree(all[j])
		if di != dj {
			return di > dj
		}
		return all[i] < all[j]
	})
	if len(all) > opts.MaxStarts {
		all = all[:opts.MaxStarts]
	}
	return all
}

// searchFrom runs one explicit-stack bounded DFS from start, pushing every
// chain that reaches a dead end (no unvisited, branch-cap-admitted
// extension) and meets opts.MinLength into h.
func searchFrom(g *graph.SimilarityGraph, start types.ClipId, opts Options, h *topKHeap) {
	visited := map[types.ClipId]bool{start: true}
	path := []types.ClipId{start}
	var scores []types.ScorePair

	stack := []*stackFrame{{clip: start, edges: capBranch(filterUnvisited(g.Neighbors(start), visited), opts.BranchCap)}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]

		advanced := false
		for top.edgeIdx < len(top.edges) {
			e := top.edges[top.edgeIdx]
			top.edgeIdx++
			if visited[e.Dest] {
				continue
			}
			visited[e.Dest] = true
			path = append(path, e.Dest)
			scores = append(scores, e.Score)
			top.extended = true
			stack = append(stack, &stackFrame{clip: e.Dest, edges: capBranch(filterUnvisited(g.Neighbors(e.Dest), visited), opts.BranchCap)})
			advanced = true
			break
		}
		if advanced {
			continue
		}

		// Dead end at this depth: emit if long enough, then backtrack.
		if !top.extended && len(path) >= opts.MinLength {
			h.push(buildChain(path, scores))
		}

		stack = stack[:len(stack)-1]
		if len(stack) == 0 {
			break
		}
		visited[top.clip] = false
		path = path[:len(path)-1]
		if len(scores) > 0 {
			scores = scores[:len(scores)-1]
		}
	}
}

// capBranch keeps the first branchCap edges; callers rely on the graph
// already sorting edges by descending score, so this keeps the strongest
// candidates.
func capBranch(edges []types.GraphEdge, branchCap int) []types.GraphEdge {
	if branchCap > 0 && len(edges) > branchCap {
		return edges[:branchCap]
	}
	return edges
}

// filterUnvisited drops edges whose destination is already on the current
// path before the branch cap is applied, so an already-visited ancestor
// among a node's top edges never crowds out a live, unvisited branch.
func filterUnvisited(edges []types.GraphEdge, visited map[types.ClipId]bool) []types.GraphEdge {
	out := make([]types.GraphEdge, 0, len(edges))
	for _, e := range edges {
		if !visited[e.Dest] {
			out = append(out, e)
		}
	}
	return out
}

func buildChain(path []types.ClipId, scores []types.ScorePair) types.Chain {
	clips := make([]types.ClipId, len(path))
	copy(clips, path)
	sc := make([]types.ScorePair, len(scores))
	copy(sc, scores)

	var sum float64
	for _, s := range sc {
		sum += s.Final
	}
	avg := 0.0
	if len(sc) > 0 {
		avg = sum / float64(len(sc))
	}
	return types.Chain{Clips: clips, Scores: sc, AvgQuality: avg}
}

func chainKey(c types.Chain) string {
	var b []byte
	for _, id := range c.Clips {
		b = append(b, id...)
		b = append(b, 0)
	}
	return string(b)
}

// topKHeap retains the opts.TopK highest-AvgQuality chains seen, using a
// min-heap so a new chain only costs a single comparison against the
// current worst once the heap is full.
type topKHeap struct {
	k      int
	chains []types.Chain
}

func newTopKHeap(k int) *topKHeap {
	if k < 1 {
		k = 1
	}
	return &topKHeap{k: k}
}

func (h *topKHeap) push(c types.Chain) {
	if len(h.chains) < h.k {
		h.chains = append(h.chains, c)
		if len(h.chains) == h.k {
			heap.Init((*chainMinHeap)(h))
		}
		return
	}
	if c.AvgQuality > h.chains[0].AvgQuality {
		h.chains[0] = c
		heap.Fix((*chainMinHeap)(h), 0)
	}
}

type chainMinHeap topKHeap

func (h *chainMinHeap) Len() int { return len(h.chains) }
func (h *chainMinHeap) Less(i, j int) bool {
	return h.chains[i].AvgQuality < h.chains[j].AvgQuality
}
func (h *chainMinHeap) Swap(i, j int) { h.chains[i], h.chains[j] = h.chains[j], h.chains[i] }
func (h *chainMinHeap) Push(x any)    { h.chains = append(h.chains, x.(types.Chain)) }
func (h *chainMinHeap) Pop() any {
	old := h.chains
	n := len(old)
	item := old[n-1]
	h.chains = old[:n-1]
	return item
}
