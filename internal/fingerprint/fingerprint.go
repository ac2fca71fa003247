// Package fingerprint extracts a ClipFingerprint from a video clip: three
// sampled frames (first, middle, last), their perceptual hashes and color
// histograms, an optional semantic embedding pair, a motion score, and scene
// cut timestamps. This is the direct Go translation of the sampling recipe in
// original_source/video-chains/video_analyzer_smart.py, grounded in the
// teacher's frame_extractor.go for the subprocess/timeout plumbing.
package fingerprint

import (
	"context"
	"os"

	"github.com/adverant/nexus/videochain/internal/corerr"
	"github.com/adverant/nexus/videochain/internal/hashutil"
	"github.com/adverant/nexus/videochain/internal/mediatool"
	"github.com/adverant/nexus/videochain/internal/scenecut"
	"github.com/adverant/nexus/videochain/internal/types"
)

// EmbeddingClient produces a semantic embedding for a frame. Implementations
// may call out to a remote encoding service; absence (nil field on
// Fingerprinter) disables embeddings entirely per spec §4.2 step 3.
type EmbeddingClient interface {
	Embed(ctx context.Context, f *types.Frame) (*types.Embedding, error)
}

// Fingerprinter computes ClipFingerprint values for clips under a media root.
type Fingerprinter struct {
	Toolchain  *mediatool.Toolchain
	HashSize   int
	HistBins   int
	Embeddings EmbeddingClient // nil disables semantic embeddings
	SceneCuts  *scenecut.Detector // nil disables scene cut detection
}

// New constructs a Fingerprinter. embeddings and sceneCuts may be nil to
// disable the corresponding optional feature.
func New(tc *mediatool.Toolchain, hashSize, histBins int, embeddings EmbeddingClient, sceneCuts *scenecut.Detector) *Fingerprinter {
	return &Fingerprinter{
		Toolchain:  tc,
		HashSize:   hashSize,
		HistBins:   histBins,
		Embeddings: embeddings,
		SceneCuts:  sceneCuts,
	}
}

// Fingerprint computes the complete feature set for one clip (spec §4.2).
// A missing or zero duration is a hard failure (DurationUnavailable); a
// missing embedding service or failed embedding call is soft — the
// corresponding *Embedding field is left nil.
func (fp *Fingerprinter) Fingerprint(ctx context.Context, clipPath string, id types.ClipId) (*types.ClipFingerprint, error) {
	info, err := os.Stat(clipPath)
	if err != nil {
		return nil, corerr.Wrap(corerr.ErrDurationUnavailable, "clip not found: "+clipPath, err)
	}

	duration, err := fp.Toolchain.Duration(ctx, clipPath)
	if err != nil {
		return nil, err
	}
	if duration <= 0 {
		return nil, corerr.Wrap(corerr.ErrDurationUnavailable, "clip reports zero or negative duration", nil)
	}

	firstFrame, err := fp.Toolchain.ExtractFrame(ctx, clipPath, 0)
	if err != nil {
		return nil, err
	}
	lastTs := mediatool.LastFrameTimestamp(duration)
	lastFrame, err := fp.Toolchain.ExtractFrame(ctx, clipPath, lastTs)
	if err != nil {
		return nil, err
	}

	result := &types.ClipFingerprint{
		ClipId:          id,
		DurationSeconds: duration,
		FileSizeBytes:   info.Size(),
		FirstHash:       hashutil.AverageHash(firstFrame, fp.HashSize),
		LastHash:        hashutil.AverageHash(lastFrame, fp.HashSize),
		FirstHistogram:  hashutil.ColorHistogramOf(firstFrame, fp.HistBins),
		LastHistogram:   hashutil.ColorHistogramOf(lastFrame, fp.HistBins),
	}

	// Middle frame/hash requires the interval between first and last samples
	// to be meaningfully wide; on a short clip it is simply omitted.
	const minMiddleSpacing = 0.5
	midTs := duration / 2
	if midTs > minMiddleSpacing && (lastTs-midTs) > minMiddleSpacing {
		if midFrame, err := fp.Toolchain.ExtractFrame(ctx, clipPath, midTs); err == nil {
			h := hashutil.AverageHash(midFrame, fp.HashSize)
			result.MiddleHash = &h
		}
	}

	if fp.Embeddings != nil {
		if e, err := fp.Embeddings.Embed(ctx, firstFrame); err == nil {
			result.FirstEmbedding = e
		}
		if e, err := fp.Embeddings.Embed(ctx, lastFrame); err == nil {
			result.LastEmbedding = e
		}
	}

	motion, err := fp.motionScore(ctx, clipPath, duration)
	if err == nil {
		result.MotionScore = motion
	}

	if fp.SceneCuts != nil {
		cuts, err := fp.SceneCuts.Detect(ctx, clipPath, duration)
		if err == nil {
			result.SceneCutTimestamps = cuts
		}
	}

	return result, nil
}

// motionScore samples frames at 25%, 50%, 75% of duration and averages the
// Hamming distance between consecutive hashes, normalized by half the hash's
// bit length so an all-different sequence scores 1.0 (spec §4.2 step 5).
func (fp *Fingerprinter) motionScore(ctx context.Context, clipPath string, duration float64) (float64, error) {
	samplePoints := []float64{duration * 0.25, duration * 0.5, duration * 0.75}
	hashes := make([]types.PerceptualHash, 0, len(samplePoints))
	for _, t := range samplePoints {
		frame, err := fp.Toolchain.ExtractFrame(ctx, clipPath, t)
		if err != nil {
			continue
		}
		hashes = append(hashes, hashutil.AverageHash(frame, fp.HashSize))
	}
	if len(hashes) < 2 {
		return 0, corerr.Wrap(corerr.ErrFrameUnavailable, "insufficient samples for motion score", nil)
	}

	var total float64
	for i := 1; i < len(hashes); i++ {
		total += float64(hashutil.HammingDistance(hashes[i-1], hashes[i]))
	}
	avg := total / float64(len(hashes)-1)

	halfRange := float64(hashes[0].Bits) / 2
	if halfRange == 0 {
		return 0, nil
	}
	score := avg / halfRange
	if score > 1 {
		score = 1
	}
	return score, nil
}
