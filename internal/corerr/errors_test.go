package corerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapWithoutCausePreservesSentinel(t *testing.T) {
	err := Wrap(ErrConfigInvalid, "media root is required", nil)
	assert.ErrorIs(t, err, ErrConfigInvalid)
	assert.Equal(t, "media root is required", err.Error())
}

func TestWrapWithCausePreservesBothSentinelAndCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(ErrFrameUnavailable, "ffmpeg failed", cause)
	assert.ErrorIs(t, err, ErrFrameUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "ffmpeg failed: boom", err.Error())
}

func TestWrapDistinctSentinelsAreNotConfused(t *testing.T) {
	err := Wrap(ErrCacheCorrupt, "bad json", nil)
	assert.NotErrorIs(t, err, ErrConfigInvalid)
}
