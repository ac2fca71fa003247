package graph

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/adverant/nexus/videochain/internal/hashutil"
	"github.com/adverant/nexus/videochain/internal/types"
)

// SimilarityGraph is a directed, fanout-capped, threshold-filtered
// similarity graph over a corpus (spec §4.3 (persistence contract) and §4.4 (construction)).
type SimilarityGraph struct {
	Header types.GraphHeader
	Edges  map[types.ClipId][]types.GraphEdge // source -> sorted outgoing edges
}

// ProgressFunc is invoked once for every 100 edges that pass the score
// threshold; Processed counts those edges.
type ProgressFunc func(types.ProgressEvent)

// candidatePair is one ordered (source, destination) pair to score.
type candidatePair struct {
	src, dst *types.ClipFingerprint
}

// Build constructs a SimilarityGraph over fingerprints using a bounded
// worker pool (spec §4.4). Candidate pairs are pruned via prefix-bucket
// matching on the source's last hash against each destination's first hash
// when bucketBits > 0; bucketBits == 0 scores every ordered pair.
func Build(ctx context.Context, fingerprints []*types.ClipFingerprint, weights types.ScoreWeights, minScore float64, maxFanout, bucketBits, workerCount int, onProgress ProgressFunc) (*SimilarityGraph, error) {
	buckets := bucketByPrefix(fingerprints, bucketBits)

	pairs := make(chan candidatePair, workerCount*4)
	results := make(chan types.GraphEdge, workerCount*4)

	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		defer close(pairs)
		return emitCandidates(gctx, fingerprints, buckets, bucketBits, pairs)
	})

	var workers errgroup.Group
	for i := 0; i < workerCount; i++ {
		workers.Go(func() error {
			for pair := range pairs {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				score := ScoreBoundary(pair.src, pair.dst, weights)
				if score.Final >= minScore {
					select {
					case results <- types.GraphEdge{Source: pair.src.ClipId, Dest: pair.dst.ClipId, Score: score}:
					case <-gctx.Done():
						return gctx.Err()
					}
				}
			}
			return nil
		})
	}
	group.Go(func() error {
		defer close(results)
		return workers.Wait()
	})

	edgesBySource := make(map[types.ClipId][]types.GraphEdge)
	done := make(chan struct{})
	start := time.Now()
	processed := 0
	group.Go(func() error {
		defer close(done)
		for edge := range results {
			edgesBySource[edge.Source] = append(edgesBySource[edge.Source], edge)
			processed++
			if onProgress != nil && processed%100 == 0 {
				onProgress(types.ProgressEvent{
					Stage:     "graph",
					Processed: processed,
					ElapsedMS: time.Since(start).Milliseconds(),
				})
			}
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		return nil, err
	}
	<-done

	for src, edges := range edgesBySource {
		edgesBySource[src] = applyFanoutCap(edges, maxFanout)
	}

	return &SimilarityGraph{
		Header: types.GraphHeader{
			MinScore:      minScore,
			NumVideos:     len(fingerprints),
			Weights:       weights,
			BucketBits:    bucketBits,
			SchemaVersion: 1,
		},
		Edges: edgesBySource,
	}, nil
}

// emitCandidates streams ordered candidate pairs onto out. When bucketBits
// is 0, every ordered pair (excluding self-pairs) is emitted. Otherwise only
// pairs whose destination-first-hash bucket is within Hamming distance 1 of
// the source-last-hash bucket are emitted (spec §4.4).
func emitCandidates(ctx context.Context, fingerprints []*types.ClipFingerprint, buckets map[uint64][]*types.ClipFingerprint, bucketBits int, out chan<- candidatePair) error {
	for _, src := range fingerprints {
		var candidates []*types.ClipFingerprint
		if bucketBits <= 0 {
			candidates = fingerprints
		} else {
			candidates = collectNearbyBuckets(buckets, hashutil.PrefixBucketKey(src.LastHash, bucketBits), bucketBits)
		}
		seen := make(map[types.ClipId]bool, len(candidates))
		for _, dst := range candidates {
			if src.ClipId == dst.ClipId || seen[dst.ClipId] {
				continue
			}
			seen[dst.ClipId] = true
			select {
			case out <- candidatePair{src: src, dst: dst}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return nil
}

// collectNearbyBuckets gathers every fingerprint whose first-hash prefix
// bucket is within Hamming distance 1 of key — the exact bucket plus each
// single-bit flip of it (spec §4.4: "within Hamming distance 1 of A.last_hash
// prefix").
func collectNearbyBuckets(buckets map[uint64][]*types.ClipFingerprint, key uint64, bucketBits int) []*types.ClipFingerprint {
	var out []*types.ClipFingerprint
	out = append(out, buckets[key]...)
	for bit := 0; bit < bucketBits; bit++ {
		out = append(out, buckets[key^(1<<uint(bit))]...)
	}
	return out
}

// bucketByPrefix groups fingerprints by the prefix-bucket key of their
// FirstHash, the side that candidate destinations are matched against.
func bucketByPrefix(fingerprints []*types.ClipFingerprint, bucketBits int) map[uint64][]*types.ClipFingerprint {
	buckets := make(map[uint64][]*types.ClipFingerprint)
	if bucketBits <= 0 {
		return buckets
	}
	for _, fp := range fingerprints {
		key := hashutil.PrefixBucketKey(fp.FirstHash, bucketBits)
		buckets[key] = append(buckets[key], fp)
	}
	return buckets
}

// applyFanoutCap keeps at most maxFanout highest-scoring edges, breaking
// ties lexicographically by destination ClipId for determinism (spec §4.4).
func applyFanoutCap(edges []types.GraphEdge, maxFanout int) []types.GraphEdge {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Score.Final != edges[j].Score.Final {
			return edges[i].Score.Final > edges[j].Score.Final
		}
		return edges[i].Dest < edges[j].Dest
	})
	if len(edges) > maxFanout {
		edges = edges[:maxFanout]
	}
	return edges
}
