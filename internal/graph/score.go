// Package graph builds and scores the directed similarity graph over a
// corpus of clip fingerprints (spec §4.4). Component scoring follows
// original_source/video-chains/video_analyzer_smart.py's
// calculate_compatibility_score; the concurrent construction pipeline
// follows the reader/worker/aggregator errgroup shape of
// GreatValueCreamSoda/gometrics's Comparator.Run.
package graph

import (
	"github.com/adverant/nexus/videochain/internal/hashutil"
	"github.com/adverant/nexus/videochain/internal/types"
)

// ScoreBoundary computes the four-component boundary-compatibility score
// between the end of src and the start of dst (spec §4.4). When either clip
// lacks an embedding, the semantic weight is redistributed proportionally
// across the remaining three components (spec §4.4), never treated
// as a zero-similarity component.
func ScoreBoundary(src, dst *types.ClipFingerprint, weights types.ScoreWeights) types.ScorePair {
	frameDist := hashutil.HammingDistance(src.LastHash, dst.FirstHash)
	frameSim := 1.0 - float64(frameDist)/float64(src.LastHash.Bits)
	if frameSim < 0 {
		frameSim = 0
	}

	chiSq := hashutil.ChiSquareDistance(src.LastHistogram, dst.FirstHistogram)
	colorSim := 1.0 / (1.0 + chiSq)

	motionDelta := src.MotionScore - dst.MotionScore
	if motionDelta < 0 {
		motionDelta = -motionDelta
	}
	motionSim := 1.0 - motionDelta

	var semanticSim float64
	haveSemantic := src.LastEmbedding != nil && dst.FirstEmbedding != nil
	if haveSemantic {
		semanticSim = (hashutil.CosineSimilarity(src.LastEmbedding.Vector, dst.FirstEmbedding.Vector) + 1) / 2
	}

	w := weights
	if !haveSemantic {
		w = redistributeSemanticWeight(weights)
	}

	final := w.Frame*frameSim + w.Semantic*semanticSim + w.Color*colorSim + w.Motion*motionSim

	return types.ScorePair{
		FrameSimilarity:    frameSim,
		SemanticSimilarity: semanticSim,
		ColorContinuity:    colorSim,
		MotionContinuity:   motionSim,
		Final:              final,
	}
}

// redistributeSemanticWeight spreads the semantic weight proportionally
// across the other three components, e.g. {0.40,0.30,0.15,0.15} becomes
// {0.571,0,0.214,0.214} when semantic is unavailable.
func redistributeSemanticWeight(w types.ScoreWeights) types.ScoreWeights {
	remaining := w.Frame + w.Color + w.Motion
	if remaining == 0 {
		return types.ScoreWeights{}
	}
	return types.ScoreWeights{
		Frame:    w.Frame / remaining,
		Semantic: 0,
		Color:    w.Color / remaining,
		Motion:   w.Motion / remaining,
	}
}
