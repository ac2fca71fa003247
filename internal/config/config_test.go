package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/adverant/nexus/videochain/internal/corerr"
	"github.com/adverant/nexus/videochain/internal/types"
)

func valid() Config {
	c := Default()
	c.MediaRoot = "/media"
	return c
}

func TestDefaultConfigIsValid(t *testing.T) {
	assert.NoError(t, valid().Validate())
}

func TestValidateRejectsMissingMediaRoot(t *testing.T) {
	c := valid()
	c.MediaRoot = ""
	assert.ErrorIs(t, c.Validate(), corerr.ErrConfigInvalid)
}

func TestValidateRejectsWeightsNotSummingToOne(t *testing.T) {
	c := valid()
	c.Weights = types.ScoreWeights{Frame: 0.5, Semantic: 0.5, Color: 0.5, Motion: 0.5}
	assert.ErrorIs(t, c.Validate(), corerr.ErrConfigInvalid)
}

func TestValidateRejectsNegativeWeight(t *testing.T) {
	c := valid()
	c.Weights = types.ScoreWeights{Frame: 1.1, Semantic: -0.1, Color: 0, Motion: 0}
	assert.ErrorIs(t, c.Validate(), corerr.ErrConfigInvalid)
}

func TestValidateRejectsOutOfRangeMinScore(t *testing.T) {
	c := valid()
	c.MinScore = 1.5
	assert.ErrorIs(t, c.Validate(), corerr.ErrConfigInvalid)
}

func TestValidateRejectsMinLengthBelowTwo(t *testing.T) {
	c := valid()
	c.MinLength = 1
	assert.ErrorIs(t, c.Validate(), corerr.ErrConfigInvalid)
}

func TestValidateRejectsOutputFPSOutOfRange(t *testing.T) {
	c := valid()
	c.OutputFPS = 5
	assert.ErrorIs(t, c.Validate(), corerr.ErrConfigInvalid)
}

func TestGraphHeaderReflectsConfig(t *testing.T) {
	c := valid()
	header := c.GraphHeader(42)
	assert.Equal(t, 42, header.NumVideos)
	assert.Equal(t, c.MinScore, header.MinScore)
	assert.Equal(t, c.BucketBits, header.BucketBits)
}
