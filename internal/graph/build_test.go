package graph

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adverant/nexus/videochain/internal/types"
)

func makeFingerprint(id types.ClipId, lastHash, firstHash uint64) *types.ClipFingerprint {
	return &types.ClipFingerprint{
		ClipId:         id,
		LastHash:       hashOf(lastHash),
		FirstHash:      hashOf(firstHash),
		LastHistogram:  types.ColorHistogram{Bins: 1, Data: []float64{1, 1, 1}},
		FirstHistogram: types.ColorHistogram{Bins: 1, Data: []float64{1, 1, 1}},
	}
}

func TestBuildProducesDeterministicFanoutOrder(t *testing.T) {
	fps := []*types.ClipFingerprint{
		makeFingerprint("a", 0, 0),
		makeFingerprint("b", 0, 0),
		makeFingerprint("c", 0, 0),
	}
	g, err := Build(context.Background(), fps, defaultWeights(), 0.0, 10, 0, 2, nil)
	require.NoError(t, err)

	edgesFromA := g.Neighbors("a")
	require.Len(t, edgesFromA, 2)
	// All destinations score identically here (identical hashes/histograms,
	// no embeddings/motion), so ties must fall back to lexicographic dest
	// order for determinism.
	assert.Equal(t, types.ClipId("b"), edgesFromA[0].Dest)
	assert.Equal(t, types.ClipId("c"), edgesFromA[1].Dest)
}

func TestBuildRespectsMinScoreThreshold(t *testing.T) {
	fps := []*types.ClipFingerprint{
		makeFingerprint("a", 0x00000000, 0),
		makeFingerprint("b", 0, 0xFFFFFFFFFFFFFFFF),
	}
	g, err := Build(context.Background(), fps, defaultWeights(), 0.99, 10, 0, 1, nil)
	require.NoError(t, err)
	assert.Empty(t, g.Neighbors("a"))
}

func TestBuildRespectsMaxFanout(t *testing.T) {
	fps := []*types.ClipFingerprint{makeFingerprint("src", 0, 0)}
	for i := 0; i < 10; i++ {
		fps = append(fps, makeFingerprint(types.ClipId(string(rune('A'+i))), 0, 0))
	}
	g, err := Build(context.Background(), fps, defaultWeights(), 0.0, 3, 0, 2, nil)
	require.NoError(t, err)
	assert.Len(t, g.Neighbors("src"), 3)
}

func TestGraphHeaderPersistRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/graph.json"

	g := &SimilarityGraph{
		Header: types.GraphHeader{MinScore: 0.6, NumVideos: 2, Weights: defaultWeights(), BucketBits: 8, SchemaVersion: 1},
		Edges: map[types.ClipId][]types.GraphEdge{
			"a": {{Source: "a", Dest: "b", Score: types.ScorePair{Final: 0.9}}},
		},
	}
	require.NoError(t, g.SaveAtomic(path))

	loaded, err := Load(path, g.Header)
	require.NoError(t, err)
	assert.Equal(t, g.Edges, loaded.Edges)
}

func TestSaveAtomicWritesSpecExternalInterfaceShape(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/graph.json"

	g := &SimilarityGraph{
		Header: types.GraphHeader{MinScore: 0.6, NumVideos: 1, Weights: defaultWeights(), BucketBits: 8, SchemaVersion: 1},
		Edges: map[types.ClipId][]types.GraphEdge{
			"a": {{Source: "a", Dest: "b", Score: types.ScorePair{Final: 0.9}}},
		},
	}
	require.NoError(t, g.SaveAtomic(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var onDisk map[string]any
	require.NoError(t, json.Unmarshal(raw, &onDisk))
	require.Contains(t, onDisk, "_header")
	require.Contains(t, onDisk, "graph")

	adjacency := onDisk["graph"].(map[string]any)
	edgeList := adjacency["a"].([]any)
	require.Len(t, edgeList, 1)
	tuple := edgeList[0].([]any)
	require.Len(t, tuple, 2)
	assert.Equal(t, "b", tuple[0])
}

func TestGraphHeaderMismatchRejected(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/graph.json"

	g := &SimilarityGraph{
		Header: types.GraphHeader{MinScore: 0.6, NumVideos: 2, Weights: defaultWeights(), BucketBits: 8, SchemaVersion: 1},
		Edges:  map[types.ClipId][]types.GraphEdge{},
	}
	require.NoError(t, g.SaveAtomic(path))

	wantHeader := g.Header
	wantHeader.MinScore = 0.9
	_, err := Load(path, wantHeader)
	assert.Error(t, err)
}
