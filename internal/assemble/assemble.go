// Package assemble renders a Chain into a single output video, either by
// fast stream-copy concatenation or by a slower path that synthesizes
// smooth transitions at each junction (spec §4.6, §4.7).
package assemble

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nfnt/resize"

	"github.com/adverant/nexus/videochain/internal/corerr"
	"github.com/adverant/nexus/videochain/internal/interpolate"
	"github.com/adverant/nexus/videochain/internal/mediatool"
	"github.com/adverant/nexus/videochain/internal/types"
)

// Assembler renders chains into finished video files.
type Assembler struct {
	Toolchain        *mediatool.Toolchain
	Interpolator     interpolate.FrameInterpolator
	TransitionFrames int
	OutputFPS        int
	TempDir          string
	Log              *slog.Logger
}

// New constructs an Assembler. log may be nil; a nil logger silently drops
// the per-junction degrade warnings AssembleSmooth emits.
func New(tc *mediatool.Toolchain, interp interpolate.FrameInterpolator, transitionFrames, outputFPS int, tempDir string, log *slog.Logger) *Assembler {
	return &Assembler{
		Toolchain:        tc,
		Interpolator:     interp,
		TransitionFrames: transitionFrames,
		OutputFPS:        outputFPS,
		TempDir:          tempDir,
		Log:              log,
	}
}

// clipPathOf resolves a ClipId to a filesystem path under mediaRoot.
func clipPathOf(mediaRoot string, id types.ClipId) string {
	return filepath.Join(mediaRoot, string(id))
}

// AssembleFast concatenates a chain's clips with no re-encoding, using the
// ffmpeg concat demuxer (spec §4.6). All clips must share compatible codec
// and resolution; CanFastConcat should be checked first.
func (a *Assembler) AssembleFast(ctx context.Context, mediaRoot string, chain types.Chain, outputPath string) error {
	paths := make([]string, len(chain.Clips))
	for i, id := range chain.Clips {
		paths[i] = clipPathOf(mediaRoot, id)
	}
	if err := a.Toolchain.ConcatCopy(ctx, paths, outputPath); err != nil {
		return err
	}
	return nil
}

// CanFastConcat reports whether every clip in the chain shares the same
// codec and resolution, the precondition for the stream-copy fast path
// (spec §4.6).
func (a *Assembler) CanFastConcat(ctx context.Context, mediaRoot string, chain types.Chain) (bool, error) {
	if len(chain.Clips) == 0 {
		return false, nil
	}
	firstPath := clipPathOf(mediaRoot, chain.Clips[0])
	wantCodec, err := a.Toolchain.Codec(ctx, firstPath)
	if err != nil {
		return false, err
	}
	wantW, wantH, err := a.Toolchain.Resolution(ctx, firstPath)
	if err != nil {
		return false, err
	}
	for _, id := range chain.Clips[1:] {
		p := clipPathOf(mediaRoot, id)
		codec, err := a.Toolchain.Codec(ctx, p)
		if err != nil {
			return false, err
		}
		w, h, err := a.Toolchain.Resolution(ctx, p)
		if err != nil {
			return false, err
		}
		if codec != wantCodec || w != wantW || h != wantH {
			return false, nil
		}
	}
	return true, nil
}

// AssembleSmooth renders a chain with synthesized transition frames at
// every junction (spec §4.7): for each pair of consecutive clips, the last
// frame of the source and first frame of the destination are extracted,
// resized to a common resolution if needed, interpolated, encoded into a
// short transition segment, and concatenated with transcoded copies of the
// full clips. A transition failure at a single junction degrades to a plain
// cut for that junction and is logged; it does not abort the render. A
// full-pipeline failure (the per-clip transcode or the final concat) removes
// any partial output before returning ErrAssemblyFailed.
func (a *Assembler) AssembleSmooth(ctx context.Context, mediaRoot string, chain types.Chain, outputPath string) error {
	if len(chain.Clips) < 2 {
		return corerr.Wrap(corerr.ErrAssemblyFailed, "smooth assembly requires at least two clips", nil)
	}

	workDir, err := os.MkdirTemp(a.TempDir, "assemble-*")
	if err != nil {
		return corerr.Wrap(corerr.ErrAssemblyFailed, "failed to create assembly work directory", err)
	}
	defer os.RemoveAll(workDir)

	segments := make([]string, 0, 2*len(chain.Clips)-1)

	for i, id := range chain.Clips {
		clipPath := clipPathOf(mediaRoot, id)
		transcodedPath := filepath.Join(workDir, fmt.Sprintf("clip-%03d.mp4", i))
		if err := a.Toolchain.TranscodeToMatch(ctx, clipPath, a.OutputFPS, transcodedPath); err != nil {
			os.Remove(outputPath)
			return err
		}
		segments = append(segments, transcodedPath)

		if i == len(chain.Clips)-1 {
			continue
		}
		nextPath := clipPathOf(mediaRoot, chain.Clips[i+1])
		transitionPath := filepath.Join(workDir, fmt.Sprintf("transition-%03d.mp4", i))
		if err := a.buildTransition(ctx, clipPath, nextPath, workDir, i, transitionPath); err != nil {
			if a.Log != nil {
				a.Log.Warn("transition synthesis failed, falling back to a plain cut",
					"junction", i, "source", clipPath, "dest", nextPath, "error", err)
			}
			continue
		}
		segments = append(segments, transitionPath)
	}

	if err := a.Toolchain.ConcatCopy(ctx, segments, outputPath); err != nil {
		return err
	}
	return nil
}

// buildTransition synthesizes the TransitionFrames-long segment bridging
// srcPath's end and dstPath's start.
func (a *Assembler) buildTransition(ctx context.Context, srcPath, dstPath, workDir string, junctionIdx int, outputPath string) error {
	srcDuration, err := a.Toolchain.Duration(ctx, srcPath)
	if err != nil {
		return err
	}
	lastFrame, err := a.Toolchain.ExtractFrame(ctx, srcPath, mediatool.LastFrameTimestamp(srcDuration))
	if err != nil {
		return err
	}
	firstFrame, err := a.Toolchain.ExtractFrame(ctx, dstPath, 0)
	if err != nil {
		return err
	}

	if lastFrame.Width != firstFrame.Width || lastFrame.Height != firstFrame.Height {
		firstFrame = resizeFrame(firstFrame, lastFrame.Width, lastFrame.Height)
	}

	frames, err := a.Interpolator.Interpolate(lastFrame, firstFrame, a.TransitionFrames)
	if err != nil {
		return corerr.Wrap(corerr.ErrAssemblyFailed, "interpolation failed at junction", err)
	}

	frameDir := filepath.Join(workDir, fmt.Sprintf("transition-frames-%03d", junctionIdx))
	if err := os.MkdirAll(frameDir, 0o755); err != nil {
		return corerr.Wrap(corerr.ErrAssemblyFailed, "failed to create transition frame directory", err)
	}
	for i, f := range frames {
		if err := writeJPEG(filepath.Join(frameDir, fmt.Sprintf("frame-%05d.jpg", i)), f); err != nil {
			return corerr.Wrap(corerr.ErrAssemblyFailed, "failed to write transition frame", err)
		}
	}

	return a.Toolchain.EncodeImageSequence(ctx, frameDir, "frame-%05d.jpg", a.OutputFPS, outputPath)
}

func resizeFrame(f *types.Frame, width, height int) *types.Frame {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			r, g, b := f.At(x, y)
			i := img.PixOffset(x, y)
			img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = r, g, b, 255
		}
	}
	resized := resize.Resize(uint(width), uint(height), img, resize.Bilinear)
	bounds := resized.Bounds()
	pix := make([]uint8, width*height*3)
	idx := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()
			pix[idx] = uint8(r >> 8)
			pix[idx+1] = uint8(g >> 8)
			pix[idx+2] = uint8(b >> 8)
			idx += 3
		}
	}
	return &types.Frame{Width: width, Height: height, Pix: pix}
}

func writeJPEG(path string, f *types.Frame) error {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			r, g, b := f.At(x, y)
			i := img.PixOffset(x, y)
			img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = r, g, b, 255
		}
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()
	return jpeg.Encode(out, img, &jpeg.Options{Quality: 95})
}
