// Package scenecut detects hard cuts within a clip using ffmpeg's built-in
// scene-change scorer (the "select='gt(scene,threshold)'" filter), reporting
// up to five cut timestamps per spec §4.2 step 6. This is an honest
// ffmpeg-native replacement for the PySceneDetect content detector used in
// original_source/video-chains/video_analyzer_smart.py — no PySceneDetect
// equivalent exists in the retrieved Go pack, so the same underlying signal
// (frame-to-frame histogram difference) is computed via the toolchain
// already wired for every other extraction in this package.
package scenecut

import (
	"bufio"
	"context"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/adverant/nexus/videochain/internal/corerr"
)

const (
	defaultThreshold = 0.4
	maxCuts          = 5
	detectTimeout    = 30 * time.Second
)

// Detector finds scene cut timestamps via ffmpeg's scene filter.
type Detector struct {
	ffmpegPath string
	threshold  float64
}

// New constructs a Detector using the given ffmpeg binary and the default
// scene-change threshold (0.4, matching PySceneDetect's typical content
// sensitivity).
func New(ffmpegPath string) *Detector {
	return &Detector{ffmpegPath: ffmpegPath, threshold: defaultThreshold}
}

// Detect returns up to maxCuts scene-cut timestamps (seconds) within a clip
// of the given duration.
func (d *Detector) Detect(ctx context.Context, clipPath string, duration float64) ([]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, detectTimeout)
	defer cancel()

	filter := "select='gt(scene," + strconv.FormatFloat(d.threshold, 'f', 2, 64) + ")',showinfo"
	cmd := exec.CommandContext(ctx, d.ffmpegPath,
		"-i", clipPath,
		"-vf", filter,
		"-f", "null",
		"-",
	)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, corerr.Wrap(corerr.ErrFrameUnavailable, "failed to attach ffmpeg stderr", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, corerr.Wrap(corerr.ErrFrameUnavailable, "failed to start ffmpeg scene detection", err)
	}

	cuts := parseShowinfoTimestamps(stderr, duration)
	_ = cmd.Wait() // showinfo writes to stderr regardless of final exit status

	if len(cuts) > maxCuts {
		cuts = cuts[:maxCuts]
	}
	return cuts, nil
}

// parseShowinfoTimestamps scans ffmpeg's showinfo filter log lines
// ("... pts_time:12.34 ...") for presentation timestamps, keeping only those
// in [0, duration) and dropping the rest.
func parseShowinfoTimestamps(r interface{ Read([]byte) (int, error) }, duration float64) []float64 {
	var cuts []float64
	scanner := bufio.NewScanner(bufio.NewReader(r))
	for scanner.Scan() {
		line := scanner.Text()
		idx := strings.Index(line, "pts_time:")
		if idx < 0 {
			continue
		}
		rest := line[idx+len("pts_time:"):]
		end := strings.IndexByte(rest, ' ')
		if end < 0 {
			end = len(rest)
		}
		ts, err := strconv.ParseFloat(rest[:end], 64)
		if err != nil {
			continue
		}
		if ts >= 0 && ts < duration {
			cuts = append(cuts, ts)
		}
	}
	return cuts
}
