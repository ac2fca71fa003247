// Package mediatool isolates the one hard external dependency of the core:
// an ffmpeg/ffprobe toolchain invoked as a subprocess per clip. It owns
// process lifecycle, temp-file management, and the 10-second per-call
// wall-clock timeout required by spec §4.1 and §5. Adapted from the
// teacher's internal/utils/ffmpeg.go, trimmed to the duration/frame/concat
// operations the core actually needs and given real timeouts (the teacher's
// exec.Command calls carried none).
package mediatool

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adverant/nexus/videochain/internal/corerr"
	"github.com/adverant/nexus/videochain/internal/types"
)

// FrameTimeout is the hard wall-clock budget for a single frame extraction
// or duration query (spec §5).
const FrameTimeout = 10 * time.Second

// AssemblyTimeout is the hard wall-clock budget for a concat/encode
// invocation (spec §5).
const AssemblyTimeout = 300 * time.Second

// Toolchain wraps ffmpeg/ffprobe subprocess invocations.
type Toolchain struct {
	ffmpegPath  string
	ffprobePath string
	tempDir     string
}

// NewToolchain resolves ffmpeg/ffprobe on PATH (or at the given paths) and
// ensures tempDir exists. Returns ErrToolchainMissing if either binary is
// not found.
func NewToolchain(ffmpegPath, ffprobePath, tempDir string) (*Toolchain, error) {
	resolvedFFmpeg, err := exec.LookPath(ffmpegPath)
	if err != nil {
		return nil, corerr.Wrap(corerr.ErrToolchainMissing, "ffmpeg not found in PATH", err)
	}
	resolvedFFprobe, err := exec.LookPath(ffprobePath)
	if err != nil {
		return nil, corerr.Wrap(corerr.ErrToolchainMissing, "ffprobe not found in PATH", err)
	}
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	return &Toolchain{ffmpegPath: resolvedFFmpeg, ffprobePath: resolvedFFprobe, tempDir: tempDir}, nil
}

// Duration returns a clip's duration in seconds via ffprobe.
func (t *Toolchain) Duration(ctx context.Context, clipPath string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, FrameTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, t.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		clipPath,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, corerr.Wrap(corerr.ErrDurationUnavailable, "ffprobe duration query failed", err)
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, corerr.Wrap(corerr.ErrDurationUnavailable, "failed to parse duration", err)
	}
	return d, nil
}

// Resolution returns a clip's video stream width and height.
func (t *Toolchain) Resolution(ctx context.Context, clipPath string) (width, height int, err error) {
	ctx, cancel := context.WithTimeout(ctx, FrameTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, t.ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "csv=p=0:s=x",
		clipPath,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, 0, fmt.Errorf("ffprobe resolution query failed: %w", err)
	}
	parts := strings.Split(strings.TrimSpace(string(out)), "x")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("unexpected resolution output %q", out)
	}
	width, err1 := strconv.Atoi(parts[0])
	height, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 0, 0, fmt.Errorf("failed to parse resolution %q", out)
	}
	return width, height, nil
}

// Codec returns a clip's video codec name (e.g. "h264").
func (t *Toolchain) Codec(ctx context.Context, clipPath string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, FrameTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, t.ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=codec_name",
		"-of", "default=noprint_wrappers=1:nokey=1",
		clipPath,
	)
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("ffprobe codec query failed: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// ExtractFrame decodes the frame at timestamp seconds into an RGB
// types.Frame. On any failure the temp jpeg is removed before the error is
// returned (spec §4.1).
func (t *Toolchain) ExtractFrame(ctx context.Context, clipPath string, timestamp float64) (*types.Frame, error) {
	ctx, cancel := context.WithTimeout(ctx, FrameTimeout)
	defer cancel()

	out, err := os.CreateTemp(t.tempDir, "frame-*.jpg")
	if err != nil {
		return nil, fmt.Errorf("create temp frame file: %w", err)
	}
	outPath := out.Name()
	out.Close()
	defer os.Remove(outPath)

	cmd := exec.CommandContext(ctx, t.ffmpegPath,
		"-ss", fmt.Sprintf("%.2f", timestamp),
		"-i", clipPath,
		"-vframes", "1",
		"-q:v", "2",
		"-y",
		outPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, corerr.Wrap(corerr.ErrFrameUnavailable, fmt.Sprintf("ffmpeg frame extraction at t=%.2f failed: %s", timestamp, stderr.String()), err)
	}

	info, err := os.Stat(outPath)
	if err != nil || info.Size() == 0 {
		return nil, corerr.Wrap(corerr.ErrFrameUnavailable, "ffmpeg produced an empty frame", err)
	}

	f, err := os.Open(outPath)
	if err != nil {
		return nil, corerr.Wrap(corerr.ErrFrameUnavailable, "failed to reopen extracted frame", err)
	}
	defer f.Close()

	img, err := jpeg.Decode(f)
	if err != nil {
		return nil, corerr.Wrap(corerr.ErrFrameUnavailable, "failed to decode extracted frame", err)
	}
	return frameFromImage(img), nil
}

// LastFrameTimestamp returns the conventional "last frame" sampling point:
// max(0, duration - 0.1), avoiding terminal-black-frame artifacts (spec §4.1).
func LastFrameTimestamp(duration float64) float64 {
	t := duration - 0.1
	if t < 0 {
		return 0
	}
	return t
}

// ConcatCopy stream-copies clipPaths in order into outputPath using the
// concat demuxer contract from spec §6, with no re-encoding.
func (t *Toolchain) ConcatCopy(ctx context.Context, clipPaths []string, outputPath string) error {
	ctx, cancel := context.WithTimeout(ctx, AssemblyTimeout)
	defer cancel()

	listFile, err := os.CreateTemp(t.tempDir, "concat-*.txt")
	if err != nil {
		return fmt.Errorf("create concat manifest: %w", err)
	}
	defer os.Remove(listFile.Name())

	var manifest strings.Builder
	for _, p := range clipPaths {
		abs, err := filepath.Abs(p)
		if err != nil {
			listFile.Close()
			return fmt.Errorf("resolve clip path %q: %w", p, err)
		}
		fmt.Fprintf(&manifest, "file '%s'\n", strings.ReplaceAll(abs, "'", "'\\''"))
	}
	if _, err := listFile.WriteString(manifest.String()); err != nil {
		listFile.Close()
		return fmt.Errorf("write concat manifest: %w", err)
	}
	listFile.Close()

	cmd := exec.CommandContext(ctx, t.ffmpegPath,
		"-f", "concat",
		"-safe", "0",
		"-i", listFile.Name(),
		"-c", "copy",
		"-y",
		outputPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		os.Remove(outputPath)
		return corerr.Wrap(corerr.ErrAssemblyFailed, "ffmpeg concat copy failed: "+stderr.String(), err)
	}
	return nil
}

// EncodeImageSequence encodes a directory of sequentially-numbered jpeg
// frames ("frame-%05d.jpg") into an H.264 segment at the given fps.
func (t *Toolchain) EncodeImageSequence(ctx context.Context, frameDir, pattern string, fps int, outputPath string) error {
	ctx, cancel := context.WithTimeout(ctx, AssemblyTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, t.ffmpegPath,
		"-framerate", strconv.Itoa(fps),
		"-i", filepath.Join(frameDir, pattern),
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-y",
		outputPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		os.Remove(outputPath)
		return corerr.Wrap(corerr.ErrAssemblyFailed, "ffmpeg image-sequence encode failed: "+stderr.String(), err)
	}
	return nil
}

// TranscodeToMatch re-encodes src to the given fps (used when the fast
// concat path is unavailable because source codecs/resolutions differ).
func (t *Toolchain) TranscodeToMatch(ctx context.Context, src string, fps int, outputPath string) error {
	ctx, cancel := context.WithTimeout(ctx, AssemblyTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, t.ffmpegPath,
		"-i", src,
		"-r", strconv.Itoa(fps),
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-y",
		outputPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		os.Remove(outputPath)
		return corerr.Wrap(corerr.ErrAssemblyFailed, "ffmpeg transcode failed: "+stderr.String(), err)
	}
	return nil
}

func frameFromImage(img image.Image) *types.Frame {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	pix := make([]uint8, w*h*3)
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bch, _ := img.At(x, y).RGBA()
			pix[i] = uint8(r >> 8)
			pix[i+1] = uint8(g >> 8)
			pix[i+2] = uint8(bch >> 8)
			i += 3
		}
	}
	return &types.Frame{Width: w, Height: h, Pix: pix}
}
