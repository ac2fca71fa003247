package mediatool

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLastFrameTimestampSubtractsTenthSecond(t *testing.T) {
	assert.InDelta(t, 4.9, LastFrameTimestamp(5.0), 1e-9)
}

func TestLastFrameTimestampClampsToZero(t *testing.T) {
	assert.Equal(t, 0.0, LastFrameTimestamp(0.05))
	assert.Equal(t, 0.0, LastFrameTimestamp(0))
}

func TestFrameFromImageConvertsPixels(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	img.Set(1, 0, color.RGBA{R: 40, G: 50, B: 60, A: 255})
	img.Set(0, 1, color.RGBA{R: 70, G: 80, B: 90, A: 255})
	img.Set(1, 1, color.RGBA{R: 100, G: 110, B: 120, A: 255})

	f := frameFromImage(img)
	assert.Equal(t, 2, f.Width)
	assert.Equal(t, 2, f.Height)
	r, g, b := f.At(0, 0)
	assert.Equal(t, uint8(10), r)
	assert.Equal(t, uint8(20), g)
	assert.Equal(t, uint8(30), b)
	r, g, b = f.At(1, 1)
	assert.Equal(t, uint8(100), r)
	assert.Equal(t, uint8(110), g)
	assert.Equal(t, uint8(120), b)
}
