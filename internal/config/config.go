// Package config defines the single structured configuration consumed by
// every core component (spec §6) and its environment-variable loader,
// following the getEnv/getEnvInt/getEnvBool helper style of the teacher's
// cmd/worker/main.go.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/adverant/nexus/videochain/internal/corerr"
	"github.com/adverant/nexus/videochain/internal/types"
)

// Config is the single structured configuration recognized by the core.
type Config struct {
	MediaRoot string
	CachePath string
	GraphPath string

	HashSize int // average-hash grid side; default 16 (256-bit hash)
	HistBins int // histogram bins per channel; default 32

	Weights    types.ScoreWeights
	MinScore   float64
	MaxFanout  int
	BucketBits int // 0 disables prefix bucketing

	MinLength  int
	MaxStarts  int
	BranchCap  int
	TopK       int

	UseTransitions    bool
	TransitionFrames  int
	OutputFPS         int

	WorkerCount int

	// EmbeddingServiceURL, when non-empty, enables the optional semantic
	// encoder (spec §4.2 step 3). Empty disables it; fingerprints are then
	// produced without embeddings (spec §7 EmbeddingUnavailable, soft).
	EmbeddingServiceURL string

	// InterpolatorWeightsPath, when non-empty, is loaded by the learned
	// FrameInterpolator (spec §4.7). Empty or unreadable falls back to the
	// required linear-blend interpolator.
	InterpolatorWeightsPath string

	FFmpegPath  string
	FFprobePath string
	TempDir     string

	Verbose bool
}

const schemaVersion = 1

// Default returns a Config with every documented default applied (spec §6,
// §4.4) and empty paths — callers must set MediaRoot, CachePath, GraphPath.
func Default() Config {
	return Config{
		HashSize: 16,
		HistBins: 32,
		Weights: types.ScoreWeights{
			Frame:    0.40,
			Semantic: 0.30,
			Color:    0.15,
			Motion:   0.15,
		},
		MinScore:         0.6,
		MaxFanout:        20,
		BucketBits:       8,
		MinLength:        2,
		MaxStarts:        500,
		BranchCap:        5,
		TopK:             100,
		UseTransitions:   false,
		TransitionFrames: 10,
		OutputFPS:        30,
		WorkerCount:      4,
		TempDir:          os.TempDir(),
	}
}

// GraphHeader derives the persistence header for the current parameters and
// the given corpus size.
func (c Config) GraphHeader(numVideos int) types.GraphHeader {
	return types.GraphHeader{
		MinScore:      c.MinScore,
		NumVideos:     numVideos,
		Weights:       c.Weights,
		BucketBits:    c.BucketBits,
		SchemaVersion: schemaVersion,
	}
}

// Validate enforces ConfigInvalid refusal at construction time (spec §7):
// weights must sum to 1, bins/sizes must be positive, thresholds in range.
func (c Config) Validate() error {
	const eps = 1e-9
	if c.MediaRoot == "" {
		return corerr.Wrap(corerr.ErrConfigInvalid, "media_root must be set", nil)
	}
	if c.HashSize <= 0 {
		return corerr.Wrap(corerr.ErrConfigInvalid, "hash_size must be positive", nil)
	}
	if c.HistBins <= 0 {
		return corerr.Wrap(corerr.ErrConfigInvalid, "hist_bins must be positive", nil)
	}
	sum := c.Weights.Sum()
	if diff := sum - 1.0; diff < -eps || diff > eps {
		return corerr.Wrap(corerr.ErrConfigInvalid, fmt.Sprintf("weights must sum to 1, got %.9f", sum), nil)
	}
	if c.Weights.Frame < 0 || c.Weights.Semantic < 0 || c.Weights.Color < 0 || c.Weights.Motion < 0 {
		return corerr.Wrap(corerr.ErrConfigInvalid, "weights must be non-negative", nil)
	}
	if c.MinScore < 0 || c.MinScore > 1 {
		return corerr.Wrap(corerr.ErrConfigInvalid, "min_score must be in [0,1]", nil)
	}
	if c.MaxFanout <= 0 {
		return corerr.Wrap(corerr.ErrConfigInvalid, "max_fanout must be positive", nil)
	}
	if c.BucketBits < 0 || c.BucketBits > 63 {
		return corerr.Wrap(corerr.ErrConfigInvalid, "bucket_bits must be in [0,63]", nil)
	}
	if c.MinLength < 2 {
		return corerr.Wrap(corerr.ErrConfigInvalid, "min_length must be >= 2", nil)
	}
	if c.MaxStarts <= 0 || c.BranchCap <= 0 || c.TopK <= 0 {
		return corerr.Wrap(corerr.ErrConfigInvalid, "max_starts, branch_cap, top_k must be positive", nil)
	}
	if c.TransitionFrames < 0 || c.TransitionFrames > 30 {
		return corerr.Wrap(corerr.ErrConfigInvalid, "transition_frames must be in [0,30]", nil)
	}
	if c.OutputFPS < 15 || c.OutputFPS > 60 {
		return corerr.Wrap(corerr.ErrConfigInvalid, "output_fps must be in [15,60]", nil)
	}
	if c.WorkerCount <= 0 {
		return corerr.Wrap(corerr.ErrConfigInvalid, "worker_count must be positive", nil)
	}
	return nil
}

// FromEnv loads a Config from environment variables layered over Default().
func FromEnv() Config {
	c := Default()
	c.MediaRoot = getEnv("VIDEOCHAIN_MEDIA_ROOT", c.MediaRoot)
	c.CachePath = getEnv("VIDEOCHAIN_CACHE_PATH", "fingerprints.json")
	c.GraphPath = getEnv("VIDEOCHAIN_GRAPH_PATH", "similarity_graph.json")
	c.HashSize = getEnvInt("VIDEOCHAIN_HASH_SIZE", c.HashSize)
	c.HistBins = getEnvInt("VIDEOCHAIN_HIST_BINS", c.HistBins)
	c.MinScore = getEnvFloat("VIDEOCHAIN_MIN_SCORE", c.MinScore)
	c.MaxFanout = getEnvInt("VIDEOCHAIN_MAX_FANOUT", c.MaxFanout)
	c.BucketBits = getEnvInt("VIDEOCHAIN_BUCKET_BITS", c.BucketBits)
	c.MinLength = getEnvInt("VIDEOCHAIN_MIN_LENGTH", c.MinLength)
	c.MaxStarts = getEnvInt("VIDEOCHAIN_MAX_STARTS", c.MaxStarts)
	c.BranchCap = getEnvInt("VIDEOCHAIN_BRANCH_CAP", c.BranchCap)
	c.TopK = getEnvInt("VIDEOCHAIN_TOP_K", c.TopK)
	c.UseTransitions = getEnvBool("VIDEOCHAIN_USE_TRANSITIONS", c.UseTransitions)
	c.TransitionFrames = getEnvInt("VIDEOCHAIN_TRANSITION_FRAMES", c.TransitionFrames)
	c.OutputFPS = getEnvInt("VIDEOCHAIN_OUTPUT_FPS", c.OutputFPS)
	c.WorkerCount = getEnvInt("VIDEOCHAIN_WORKER_COUNT", c.WorkerCount)
	c.EmbeddingServiceURL = getEnv("VIDEOCHAIN_EMBEDDING_URL", "")
	c.InterpolatorWeightsPath = getEnv("VIDEOCHAIN_INTERPOLATOR_WEIGHTS", "")
	c.FFmpegPath = getEnv("VIDEOCHAIN_FFMPEG_PATH", "ffmpeg")
	c.FFprobePath = getEnv("VIDEOCHAIN_FFPROBE_PATH", "ffprobe")
	c.TempDir = getEnv("VIDEOCHAIN_TEMP_DIR", c.TempDir)
	return c
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1" || v == "yes"
	}
	return defaultValue
}
