package assemble

import (
	"context"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adverant/nexus/videochain/internal/types"
)

func TestClipPathOfJoinsMediaRoot(t *testing.T) {
	assert.Equal(t, filepath.Join("/media", "clip-1.mp4"), clipPathOf("/media", "clip-1.mp4"))
}

func TestCanFastConcatEmptyChainIsFalse(t *testing.T) {
	a := &Assembler{}
	ok, err := a.CanFastConcat(context.Background(), "/media", types.Chain{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func solidFrame(w, h int, v uint8) *types.Frame {
	pix := make([]uint8, w*h*3)
	for i := range pix {
		pix[i] = v
	}
	return &types.Frame{Width: w, Height: h, Pix: pix}
}

func TestResizeFramePreservesSolidColor(t *testing.T) {
	f := solidFrame(4, 4, 128)
	resized := resizeFrame(f, 8, 8)
	assert.Equal(t, 8, resized.Width)
	assert.Equal(t, 8, resized.Height)
	r, g, b := resized.At(4, 4)
	assert.InDelta(t, 128, int(r), 2)
	assert.InDelta(t, 128, int(g), 2)
	assert.InDelta(t, 128, int(b), 2)
}

func TestWriteJPEGProducesDecodableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.jpg")
	f := solidFrame(4, 4, 200)
	require.NoError(t, writeJPEG(path, f))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	img, err := jpeg.Decode(file)
	require.NoError(t, err)
	b := img.Bounds()
	assert.Equal(t, 4, b.Dx())
	assert.Equal(t, 4, b.Dy())
}
