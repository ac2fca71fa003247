// Package hashutil computes the perceptual hashes, color histograms, and
// embedding comparisons used to score boundary compatibility between clips.
// Grid downsampling reuses github.com/nfnt/resize, the same resampler the
// corpus uses for focal-point analysis (avbirk83/Outpost).
package hashutil

import (
	"image"
	"math"
	"math/bits"

	"github.com/nfnt/resize"

	"github.com/adverant/nexus/videochain/internal/types"
)

// AverageHash computes a gridSize x gridSize average hash of f: downsample
// to grayscale at gridSize^2 pixels, threshold each pixel against the mean,
// and pack the resulting bits into 64-bit words row-major.
func AverageHash(f *types.Frame, gridSize int) types.PerceptualHash {
	img := frameToImage(f)
	small := resize.Resize(uint(gridSize), uint(gridSize), img, resize.Bilinear)

	bounds := small.Bounds()
	gray := make([]float64, gridSize*gridSize)
	var sum float64
	idx := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := small.At(x, y).RGBA()
			// RGBA() returns 16-bit-scaled components; reduce to 8-bit range
			// luma before averaging, matching the common average-hash recipe.
			lum := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
			gray[idx] = lum
			sum += lum
			idx++
		}
	}
	mean := sum / float64(len(gray))

	bitCount := gridSize * gridSize
	words := make([]uint64, (bitCount+63)/64)
	for i, v := range gray {
		if v >= mean {
			words[i/64] |= 1 << uint(i%64)
		}
	}
	return types.PerceptualHash{Words: words, Bits: bitCount}
}

// HammingDistance returns the number of differing bits between a and b. The
// two hashes must have the same Bits; mismatched lengths return the maximum
// possible distance rather than panicking.
func HammingDistance(a, b types.PerceptualHash) int {
	if a.Bits != b.Bits || len(a.Words) != len(b.Words) {
		if a.Bits > b.Bits {
			return a.Bits
		}
		return b.Bits
	}
	dist := 0
	for i := range a.Words {
		dist += bits.OnesCount64(a.Words[i] ^ b.Words[i])
	}
	return dist
}

// PrefixBucketKey returns the high-order prefixBits of hash packed into an
// int, used as a candidate-pruning bucket key (spec §4.4). prefixBits must
// be <= 64.
func PrefixBucketKey(h types.PerceptualHash, prefixBits int) uint64 {
	if prefixBits <= 0 || len(h.Words) == 0 {
		return 0
	}
	word := h.Words[0]
	if prefixBits >= 64 {
		return word
	}
	// Top prefixBits bits of the first word, counting bit 63 as the most
	// significant. AverageHash stores pixel i in bit i, so these are the bits
	// of pixels 63 down to 64-prefixBits.
	return word >> uint(64-prefixBits)
}

// ColorHistogramOf extracts a per-channel, L1-normalized histogram over bins
// bins per channel (3*bins total), matching the teacher pack's
// resize-then-bin recipe (video_analyzer_smart.py's extract_color_histogram).
func ColorHistogramOf(f *types.Frame, bins int) types.ColorHistogram {
	img := frameToImage(f)
	resized := resize.Resize(256, 256, img, resize.Bilinear)
	bounds := resized.Bounds()

	data := make([]float64, 3*bins)
	binWidth := 256.0 / float64(bins)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()
			ri := clampBin(int(float64(r>>8)/binWidth), bins)
			gi := clampBin(int(float64(g>>8)/binWidth), bins)
			bi := clampBin(int(float64(b>>8)/binWidth), bins)
			data[ri]++
			data[bins+gi]++
			data[2*bins+bi]++
		}
	}

	var total float64
	for _, v := range data {
		total += v
	}
	if total > 0 {
		for i := range data {
			data[i] /= total
		}
	}
	return types.ColorHistogram{Bins: bins, Data: data}
}

func clampBin(i, bins int) int {
	if i < 0 {
		return 0
	}
	if i >= bins {
		return bins - 1
	}
	return i
}

// ChiSquareDistance computes Σ (p_i - q_i)^2 / (p_i + q_i + eps).
func ChiSquareDistance(p, q types.ColorHistogram) float64 {
	const eps = 1e-10
	n := len(p.Data)
	if len(q.Data) < n {
		n = len(q.Data)
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := p.Data[i] - q.Data[i]
		sum += (d * d) / (p.Data[i] + q.Data[i] + eps)
	}
	return sum
}

// CosineSimilarity returns the cosine similarity of two equal-length vectors
// in [-1, 1]; mismatched or empty vectors return 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// L2Normalize scales v in place to unit norm. A zero vector is left
// unchanged.
func L2Normalize(v []float32) {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return
	}
	norm := math.Sqrt(sumSq)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
}

func frameToImage(f *types.Frame) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			r, g, b := f.At(x, y)
			i := img.PixOffset(x, y)
			img.Pix[i] = r
			img.Pix[i+1] = g
			img.Pix[i+2] = b
			img.Pix[i+3] = 255
		}
	}
	return img
}
