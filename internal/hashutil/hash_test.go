package hashutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adverant/nexus/videochain/internal/types"
)

func solidFrame(w, h int, r, g, b uint8) *types.Frame {
	pix := make([]uint8, w*h*3)
	for i := 0; i < w*h; i++ {
		pix[i*3] = r
		pix[i*3+1] = g
		pix[i*3+2] = b
	}
	return &types.Frame{Width: w, Height: h, Pix: pix}
}

func TestAverageHashIdenticalFramesHaveZeroDistance(t *testing.T) {
	f := solidFrame(64, 64, 200, 100, 50)
	h1 := AverageHash(f, 16)
	h2 := AverageHash(f, 16)
	assert.Equal(t, 0, HammingDistance(h1, h2))
	assert.Equal(t, 256, h1.Bits)
}

func TestAverageHashUniformFramesHashIdentically(t *testing.T) {
	black := solidFrame(32, 32, 0, 0, 0)
	white := solidFrame(32, 32, 255, 255, 255)
	hb := AverageHash(black, 8)
	hw := AverageHash(white, 8)
	// A uniform image has every pixel equal to the mean, and a pixel >= the
	// mean sets its bit, so a solid color hashes to all-one bits regardless
	// of brightness.
	assert.Equal(t, 0, HammingDistance(hb, hw))
}

func TestAverageHashSplitFrameProducesMixedBits(t *testing.T) {
	w, h := 16, 16
	pix := make([]uint8, w*h*3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := (y*w + x) * 3
			if x < w/2 {
				pix[i], pix[i+1], pix[i+2] = 0, 0, 0
			} else {
				pix[i], pix[i+1], pix[i+2] = 255, 255, 255
			}
		}
	}
	f := &types.Frame{Width: w, Height: h, Pix: pix}
	hash := AverageHash(f, 8)
	zero := types.PerceptualHash{Words: []uint64{0}, Bits: hash.Bits}
	assert.Greater(t, HammingDistance(hash, zero), 0)
}

func TestHammingDistanceMismatchedLengthsReturnsMax(t *testing.T) {
	a := types.PerceptualHash{Words: []uint64{0}, Bits: 64}
	b := types.PerceptualHash{Words: []uint64{0, 0}, Bits: 128}
	assert.Equal(t, 128, HammingDistance(a, b))
}

func TestPrefixBucketKeyZeroBitsIsZero(t *testing.T) {
	h := types.PerceptualHash{Words: []uint64{0xFFFFFFFFFFFFFFFF}, Bits: 64}
	assert.Equal(t, uint64(0), PrefixBucketKey(h, 0))
}

func TestPrefixBucketKeyExtractsTopBits(t *testing.T) {
	h := types.PerceptualHash{Words: []uint64{0x8000000000000000}, Bits: 64}
	assert.Equal(t, uint64(1), PrefixBucketKey(h, 1))
	assert.Equal(t, uint64(0b10), PrefixBucketKey(h, 2))
}

func TestColorHistogramNormalizesToOne(t *testing.T) {
	f := solidFrame(16, 16, 10, 20, 30)
	hist := ColorHistogramOf(f, 32)
	var total float64
	for _, v := range hist.Data {
		total += v
	}
	assert.InDelta(t, 1.0, total, 1e-6)
	require.Len(t, hist.Data, 96)
}

func TestChiSquareDistanceIdenticalHistogramsIsZero(t *testing.T) {
	f := solidFrame(16, 16, 5, 5, 5)
	h := ColorHistogramOf(f, 32)
	assert.InDelta(t, 0, ChiSquareDistance(h, h), 1e-9)
}

func TestCosineSimilarityIdenticalVectorsIsOne(t *testing.T) {
	v := []float32{1, 2, 3}
	assert.InDelta(t, 1.0, CosineSimilarity(v, v), 1e-6)
}

func TestCosineSimilarityOrthogonalVectorsIsZero(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}
	assert.InDelta(t, 0, CosineSimilarity(a, b), 1e-6)
}

func TestL2NormalizeUnitNorm(t *testing.T) {
	v := []float32{3, 4}
	L2Normalize(v)
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, sumSq, 1e-6)
}

func TestL2NormalizeZeroVectorUnchanged(t *testing.T) {
	v := []float32{0, 0, 0}
	L2Normalize(v)
	assert.Equal(t, []float32{0, 0, 0}, v)
}
