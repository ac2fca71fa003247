// Package interpolate generates in-between frames at a chain junction for
// the smooth assembly path (spec §4.7). No Go machine-learning inference
// library was found anywhere in the retrieved example pack (the reference
// implementation's RIFE model, see original_source/backend/app/services/
// rife_service.py, is a PyTorch module with no Go equivalent available
// here), so the "learned" interpolator is an honest stand-in: a weights
// file tunes a nonlinear easing curve applied to the same linear pixel
// blend the required fallback uses, rather than fabricating a deep-learning
// binding that isn't grounded in anything retrieved for this module.
package interpolate

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/adverant/nexus/videochain/internal/types"
)

// FrameInterpolator generates n evenly-spaced in-between frames between a
// and b, ordered from nearest-a to nearest-b.
type FrameInterpolator interface {
	Interpolate(a, b *types.Frame, n int) ([]*types.Frame, error)
}

// LinearBlend is the required fallback interpolator (spec §4.7): each
// output frame is a per-pixel weighted average a*(1-t) + b*t.
type LinearBlend struct{}

// Interpolate implements FrameInterpolator using plain linear blending.
func (LinearBlend) Interpolate(a, b *types.Frame, n int) ([]*types.Frame, error) {
	if a.Width != b.Width || a.Height != b.Height {
		return nil, fmt.Errorf("interpolate: frame size mismatch %dx%d vs %dx%d", a.Width, a.Height, b.Width, b.Height)
	}
	out := make([]*types.Frame, n)
	for i := 0; i < n; i++ {
		t := float64(i+1) / float64(n+1)
		out[i] = blend(a, b, t)
	}
	return out, nil
}

func blend(a, b *types.Frame, t float64) *types.Frame {
	pix := make([]uint8, len(a.Pix))
	for i := range pix {
		av, bv := float64(a.Pix[i]), float64(b.Pix[i])
		pix[i] = uint8(av*(1-t) + bv*t)
	}
	return &types.Frame{Width: a.Width, Height: a.Height, Pix: pix}
}

// EasingCurve is a learned (weights-file-configured) warp of the blend
// parameter t, applied before the same per-pixel linear blend LinearBlend
// uses. The "weights" are a small set of control points for a
// piecewise-linear easing function, not a neural network — an honest fit to
// what a Go-only toolchain can actually run.
type EasingCurve struct {
	controlPoints []float64 // warp values in [0,1]; monotonicity is not checked
}

// LoadEasingCurve reads control points (one float per line) from path. A
// missing, malformed, or empty file returns an error; NewInterpolator then
// falls back to LinearBlend (spec §4.7).
func LoadEasingCurve(path string) (*EasingCurve, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var points []float64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return nil, fmt.Errorf("interpolate: malformed weight %q: %w", line, err)
		}
		points = append(points, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("interpolate: weights file %q has no control points", path)
	}
	return &EasingCurve{controlPoints: points}, nil
}

// Interpolate warps each linear t through the loaded easing curve (a
// piecewise-linear interpolation over the control points) before blending,
// producing a less mechanically-uniform motion than pure linear blending.
func (e *EasingCurve) Interpolate(a, b *types.Frame, n int) ([]*types.Frame, error) {
	if a.Width != b.Width || a.Height != b.Height {
		return nil, fmt.Errorf("interpolate: frame size mismatch %dx%d vs %dx%d", a.Width, a.Height, b.Width, b.Height)
	}
	out := make([]*types.Frame, n)
	for i := 0; i < n; i++ {
		linearT := float64(i+1) / float64(n+1)
		out[i] = blend(a, b, e.warp(linearT))
	}
	return out, nil
}

// warp maps t through the piecewise-linear curve defined by controlPoints,
// treating the points as equally-spaced samples of the warp function over
// [0,1].
func (e *EasingCurve) warp(t float64) float64 {
	n := len(e.controlPoints)
	if n == 1 {
		return clamp01(e.controlPoints[0])
	}
	pos := t * float64(n-1)
	idx := int(pos)
	if idx >= n-1 {
		return clamp01(e.controlPoints[n-1])
	}
	frac := pos - float64(idx)
	v := e.controlPoints[idx]*(1-frac) + e.controlPoints[idx+1]*frac
	return clamp01(v)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// NewInterpolator loads an EasingCurve from weightsPath if non-empty and
// readable, otherwise returns the required LinearBlend fallback (spec
// §4.7).
func NewInterpolator(weightsPath string) FrameInterpolator {
	if weightsPath == "" {
		return LinearBlend{}
	}
	curve, err := LoadEasingCurve(weightsPath)
	if err != nil {
		return LinearBlend{}
	}
	return curve
}
