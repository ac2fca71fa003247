package scenecut

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseShowinfoTimestampsExtractsPtsTime(t *testing.T) {
	log := strings.NewReader(
		"[Parsed_showinfo_1 @ 0x1] n:0 pts:0 pts_time:1.50 pos:0\n" +
			"[Parsed_showinfo_1 @ 0x1] n:1 pts:0 pts_time:4.25 pos:0\n",
	)
	cuts := parseShowinfoTimestamps(log, 10.0)
	assert.Equal(t, []float64{1.50, 4.25}, cuts)
}

func TestParseShowinfoTimestampsIgnoresOutOfRange(t *testing.T) {
	log := strings.NewReader(
		"[Parsed_showinfo_1 @ 0x1] n:0 pts_time:1.0 pos:0\n" +
			"[Parsed_showinfo_1 @ 0x1] n:1 pts_time:99.0 pos:0\n" +
			"[Parsed_showinfo_1 @ 0x1] n:2 pts_time:-1.0 pos:0\n",
	)
	cuts := parseShowinfoTimestamps(log, 10.0)
	assert.Equal(t, []float64{1.0}, cuts)
}

func TestParseShowinfoTimestampsSkipsNonMatchingLines(t *testing.T) {
	log := strings.NewReader(
		"frame=  120 fps=30 q=-1.0 size=N/A time=00:00:04.00\n" +
			"[Parsed_showinfo_1 @ 0x1] n:0 pts_time:2.0 pos:0\n",
	)
	cuts := parseShowinfoTimestamps(log, 10.0)
	assert.Equal(t, []float64{2.0}, cuts)
}

func TestNewUsesDefaultThreshold(t *testing.T) {
	d := New("/usr/bin/ffmpeg")
	assert.InDelta(t, defaultThreshold, d.threshold, 1e-9)
	assert.Equal(t, "/usr/bin/ffmpeg", d.ffmpegPath)
}
