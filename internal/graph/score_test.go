package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/adverant/nexus/videochain/internal/types"
)

func hashOf(bits uint64) types.PerceptualHash {
	return types.PerceptualHash{Words: []uint64{bits}, Bits: 64}
}

func defaultWeights() types.ScoreWeights {
	return types.ScoreWeights{Frame: 0.40, Semantic: 0.30, Color: 0.15, Motion: 0.15}
}

func fingerprintWith(lastHash, firstHash uint64, motion float64, emb *types.Embedding) *types.ClipFingerprint {
	return &types.ClipFingerprint{
		LastHash:       hashOf(lastHash),
		FirstHash:      hashOf(firstHash),
		LastHistogram:  types.ColorHistogram{Bins: 2, Data: []float64{0.5, 0.5, 0.5, 0.5, 0.5, 0.5}},
		FirstHistogram: types.ColorHistogram{Bins: 2, Data: []float64{0.5, 0.5, 0.5, 0.5, 0.5, 0.5}},
		MotionScore:    motion,
		LastEmbedding:  emb,
		FirstEmbedding: emb,
	}
}

func TestScoreBoundaryIdenticalClipsScoresNearOne(t *testing.T) {
	emb := &types.Embedding{Vector: []float32{1, 0, 0}}
	fp := fingerprintWith(0, 0, 0.2, emb)
	score := ScoreBoundary(fp, fp, defaultWeights())
	assert.InDelta(t, 1.0, score.FrameSimilarity, 1e-9)
	assert.InDelta(t, 1.0, score.SemanticSimilarity, 1e-9)
	assert.InDelta(t, 1.0, score.ColorContinuity, 1e-6)
	assert.InDelta(t, 1.0, score.MotionContinuity, 1e-9)
	assert.InDelta(t, 1.0, score.Final, 1e-6)
}

func TestScoreBoundaryMissingEmbeddingRedistributesWeight(t *testing.T) {
	src := fingerprintWith(0, 0, 0.2, nil)
	dst := fingerprintWith(0, 0, 0.2, nil)
	score := ScoreBoundary(src, dst, defaultWeights())
	assert.Equal(t, 0.0, score.SemanticSimilarity)
	// With no embeddings, weight redistributes to {0.40,0.15,0.15}/0.70 and
	// every remaining component is 1.0 for identical clips, so Final == 1.
	assert.InDelta(t, 1.0, score.Final, 1e-6)
}

func TestRedistributeSemanticWeightMatchesWorkedExample(t *testing.T) {
	w := redistributeSemanticWeight(types.ScoreWeights{Frame: 0.40, Semantic: 0.30, Color: 0.15, Motion: 0.15})
	assert.InDelta(t, 0.571, w.Frame, 1e-3)
	assert.Equal(t, 0.0, w.Semantic)
	assert.InDelta(t, 0.214, w.Color, 1e-3)
	assert.InDelta(t, 0.214, w.Motion, 1e-3)
	assert.InDelta(t, 1.0, w.Sum(), 1e-9)
}

func TestScoreBoundaryFullyDistinctHashesLowFrameSimilarity(t *testing.T) {
	src := fingerprintWith(0x00000000, 0, 0, nil)
	dst := fingerprintWith(0, 0xFFFFFFFFFFFFFFFF, 0, nil)
	score := ScoreBoundary(src, dst, defaultWeights())
	assert.Equal(t, 0.0, score.FrameSimilarity)
}

func TestApplyFanoutCapSortsDescendingWithLexTiebreak(t *testing.T) {
	edges := []types.GraphEdge{
		{Dest: "b", Score: types.ScorePair{Final: 0.8}},
		{Dest: "a", Score: types.ScorePair{Final: 0.8}},
		{Dest: "c", Score: types.ScorePair{Final: 0.95}},
	}
	capped := applyFanoutCap(edges, 2)
	assert.Len(t, capped, 2)
	assert.Equal(t, types.ClipId("c"), capped[0].Dest)
	assert.Equal(t, types.ClipId("a"), capped[1].Dest)
}
