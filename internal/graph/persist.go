package graph

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/adverant/nexus/videochain/internal/corerr"
	"github.com/adverant/nexus/videochain/internal/types"
)

// edgeTuple is one [dest_id, score_pair] pair, the on-disk shape spec §6
// requires for similarity_graph.json's adjacency lists.
type edgeTuple [2]json.RawMessage

// onDiskGraph mirrors spec §6's similarity_graph.json layout exactly:
// {"_header": {...}, "graph": {clip_id: [[dest_id, score_pair], ...]}}.
type onDiskGraph struct {
	Header types.GraphHeader            `json:"_header"`
	Graph  map[types.ClipId][]edgeTuple `json:"graph"`
}

// Load reads a persisted graph from path and validates its header against
// wantHeader. A header mismatch (different weights, thresholds, bucket
// config, or corpus size) returns ErrGraphHeaderMismatch so the caller can
// rebuild rather than silently serve a stale graph (spec §4.4, §7).
func Load(path string, wantHeader types.GraphHeader) (*SimilarityGraph, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var disk onDiskGraph
	if err := json.Unmarshal(raw, &disk); err != nil {
		return nil, corerr.Wrap(corerr.ErrCacheCorrupt, "similarity graph file is not valid JSON", err)
	}
	if !disk.Header.Equal(wantHeader) {
		return nil, corerr.Wrap(corerr.ErrGraphHeaderMismatch, "persisted graph header does not match current parameters", nil)
	}

	edges := make(map[types.ClipId][]types.GraphEdge, len(disk.Graph))
	for src, tuples := range disk.Graph {
		list := make([]types.GraphEdge, 0, len(tuples))
		for _, tuple := range tuples {
			var dest types.ClipId
			var score types.ScorePair
			if err := json.Unmarshal(tuple[0], &dest); err != nil {
				return nil, corerr.Wrap(corerr.ErrCacheCorrupt, "similarity graph edge destination is malformed", err)
			}
			if err := json.Unmarshal(tuple[1], &score); err != nil {
				return nil, corerr.Wrap(corerr.ErrCacheCorrupt, "similarity graph edge score is malformed", err)
			}
			list = append(list, types.GraphEdge{Source: src, Dest: dest, Score: score})
		}
		edges[src] = list
	}
	return &SimilarityGraph{Header: disk.Header, Edges: edges}, nil
}

// SaveAtomic persists g to path via a temp-file-then-rename write.
func (g *SimilarityGraph) SaveAtomic(path string) error {
	graph := make(map[types.ClipId][]edgeTuple, len(g.Edges))
	for src, edges := range g.Edges {
		tuples := make([]edgeTuple, 0, len(edges))
		for _, e := range edges {
			destRaw, err := json.Marshal(e.Dest)
			if err != nil {
				return err
			}
			scoreRaw, err := json.Marshal(e.Score)
			if err != nil {
				return err
			}
			tuples = append(tuples, edgeTuple{destRaw, scoreRaw})
		}
		graph[src] = tuples
	}

	raw, err := json.MarshalIndent(onDiskGraph{Header: g.Header, Graph: graph}, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".graph-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}

// Neighbors returns the sorted outgoing edges from src, or nil if it has
// none.
func (g *SimilarityGraph) Neighbors(src types.ClipId) []types.GraphEdge {
	return g.Edges[src]
}

// OutDegree returns the number of outgoing edges from src.
func (g *SimilarityGraph) OutDegree(src types.ClipId) int {
	return len(g.Edges[src])
}
