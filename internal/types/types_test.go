package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrameAtReturnsStoredPixel(t *testing.T) {
	f := &Frame{Width: 2, Height: 1, Pix: []uint8{10, 20, 30, 40, 50, 60}}
	r, g, b := f.At(1, 0)
	assert.Equal(t, uint8(40), r)
	assert.Equal(t, uint8(50), g)
	assert.Equal(t, uint8(60), b)
}

func TestScoreWeightsSum(t *testing.T) {
	w := ScoreWeights{Frame: 0.4, Semantic: 0.3, Color: 0.15, Motion: 0.15}
	assert.InDelta(t, 1.0, w.Sum(), 1e-9)
}

func TestGraphHeaderEqualToleratesFloatNoise(t *testing.T) {
	a := GraphHeader{MinScore: 0.6, NumVideos: 10, BucketBits: 8, SchemaVersion: 1}
	b := a
	b.MinScore = 0.6 + 1e-13
	assert.True(t, a.Equal(b))
}

func TestGraphHeaderEqualRejectsDifferentSchemaVersion(t *testing.T) {
	a := GraphHeader{SchemaVersion: 1}
	b := GraphHeader{SchemaVersion: 2}
	assert.False(t, a.Equal(b))
}

func TestGraphHeaderEqualRejectsDifferentWeights(t *testing.T) {
	a := GraphHeader{Weights: ScoreWeights{Frame: 0.4, Semantic: 0.3, Color: 0.15, Motion: 0.15}}
	b := GraphHeader{Weights: ScoreWeights{Frame: 0.5, Semantic: 0.2, Color: 0.15, Motion: 0.15}}
	assert.False(t, a.Equal(b))
}

func TestChainStringIncludesAvgQualityAndClips(t *testing.T) {
	c := Chain{Clips: []ClipId{"a", "b"}, AvgQuality: 0.8231}
	s := c.String()
	assert.Contains(t, s, "len=2")
	assert.Contains(t, s, "0.8231")
}
