// Command videochain discovers and assembles chains of compatible video
// clips. It exposes one subcommand per core operation (fingerprint, graph,
// chains, assemble) plus a "worker" mode that serves fingerprint and
// assemble as background asynq jobs; it wires no handler for build_graph or
// find_chains tasks, so those fail. Subcommand dispatch and component wiring follow
// the teacher's cmd/worker/main.go checklist style, moved from log.Println
// onto the shared slog logger.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"

	"github.com/adverant/nexus/videochain/internal/assemble"
	"github.com/adverant/nexus/videochain/internal/chainfind"
	"github.com/adverant/nexus/videochain/internal/config"
	"github.com/adverant/nexus/videochain/internal/embedclient"
	"github.com/adverant/nexus/videochain/internal/fingerprint"
	"github.com/adverant/nexus/videochain/internal/graph"
	"github.com/adverant/nexus/videochain/internal/hashutil"
	"github.com/adverant/nexus/videochain/internal/interpolate"
	"github.com/adverant/nexus/videochain/internal/jobqueue"
	"github.com/adverant/nexus/videochain/internal/jobstore"
	"github.com/adverant/nexus/videochain/internal/logging"
	"github.com/adverant/nexus/videochain/internal/mediatool"
	"github.com/adverant/nexus/videochain/internal/scenecut"
	"github.com/adverant/nexus/videochain/internal/store"
	"github.com/adverant/nexus/videochain/internal/types"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: videochain <fingerprint|graph|chains|assemble|worker> [flags]")
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "fingerprint":
		runFingerprint(args)
	case "graph":
		runGraph(args)
	case "chains":
		runChains(args)
	case "assemble":
		runAssemble(args)
	case "worker":
		runWorker(args)
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", cmd)
		os.Exit(1)
	}
}

func mustValidate(log interface{ Error(string, ...any) }, cfg config.Config) {
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
}

func runFingerprint(args []string) {
	cfg := config.FromEnv()
	fs := flag.NewFlagSet("fingerprint", flag.ExitOnError)
	applyCommon(fs, &cfg)
	fs.Parse(args)

	log := logging.New(os.Stderr, cfg.Verbose)
	mustValidate(log, cfg)

	tc, err := mediatool.NewToolchain(cfg.FFmpegPath, cfg.FFprobePath, cfg.TempDir)
	if err != nil {
		log.Error("toolchain unavailable", "error", err)
		os.Exit(1)
	}

	var embedder fingerprint.EmbeddingClient
	if cfg.EmbeddingServiceURL != "" {
		embedder = embedclient.New(cfg.EmbeddingServiceURL, mediatool.FrameTimeout)
	}
	detector := scenecut.New(cfg.FFmpegPath)
	fp := fingerprint.New(tc, cfg.HashSize, cfg.HistBins, embedder, detector)

	st, err := store.Open(cfg.CachePath)
	if err != nil {
		log.Error("failed to open fingerprint cache", "error", err)
		os.Exit(1)
	}

	clips, err := discoverClips(cfg.MediaRoot)
	if err != nil {
		log.Error("failed to list media root", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	processed, skipped, failed := 0, 0, 0
	for _, id := range clips {
		if st.Has(id) {
			skipped++
			continue
		}
		result, err := fp.Fingerprint(ctx, filepath.Join(cfg.MediaRoot, string(id)), id)
		if err != nil {
			log.Warn("fingerprinting failed", "clip_id", id, "error", err)
			failed++
			continue
		}
		st.Put(result)
		processed++
	}

	if err := st.SaveAtomic(); err != nil {
		log.Error("failed to save fingerprint cache", "error", err)
		os.Exit(1)
	}
	log.Info("fingerprinting complete", "processed", processed, "skipped", skipped, "failed", failed)
}

func runGraph(args []string) {
	cfg := config.FromEnv()
	fs := flag.NewFlagSet("graph", flag.ExitOnError)
	applyCommon(fs, &cfg)
	fs.Parse(args)

	log := logging.New(os.Stderr, cfg.Verbose)
	mustValidate(log, cfg)

	st, err := store.Open(cfg.CachePath)
	if err != nil {
		log.Error("failed to open fingerprint cache", "error", err)
		os.Exit(1)
	}
	fps := st.All()
	if len(fps) == 0 {
		log.Error("no fingerprints available; run fingerprint first")
		os.Exit(1)
	}

	header := cfg.GraphHeader(len(fps))
	if g, err := graph.Load(cfg.GraphPath, header); err == nil {
		log.Info("reusing cached similarity graph", "edges_from", len(g.Edges))
		return
	}

	ctx := context.Background()
	g, err := graph.Build(ctx, fps, cfg.Weights, cfg.MinScore, cfg.MaxFanout, cfg.BucketBits, cfg.WorkerCount, func(ev types.ProgressEvent) {
		log.Debug("graph build progress", "processed", ev.Processed)
	})
	if err != nil {
		log.Error("graph build failed", "error", err)
		os.Exit(1)
	}
	if err := g.SaveAtomic(cfg.GraphPath); err != nil {
		log.Error("failed to save similarity graph", "error", err)
		os.Exit(1)
	}
	log.Info("similarity graph built", "sources_with_edges", len(g.Edges))
}

func runChains(args []string) {
	cfg := config.FromEnv()
	fs := flag.NewFlagSet("chains", flag.ExitOnError)
	applyCommon(fs, &cfg)
	diverse := fs.Bool("diverse", false, "group results by starting-clip hash bucket and keep only the longest chain per bucket")
	fs.Parse(args)

	log := logging.New(os.Stderr, cfg.Verbose)
	mustValidate(log, cfg)

	st, err := store.Open(cfg.CachePath)
	if err != nil {
		log.Error("failed to open fingerprint cache", "error", err)
		os.Exit(1)
	}
	fps := st.All()
	byID := make(map[types.ClipId]*types.ClipFingerprint, len(fps))
	for _, fp := range fps {
		byID[fp.ClipId] = fp
	}

	g, err := graph.Load(cfg.GraphPath, cfg.GraphHeader(len(fps)))
	if err != nil {
		log.Error("failed to load similarity graph; run graph first", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	chains, err := chainfind.Find(ctx, g, chainfind.Options{
		MinLength:   cfg.MinLength,
		MaxStarts:   cfg.MaxStarts,
		BranchCap:   cfg.BranchCap,
		TopK:        cfg.TopK,
		WorkerCount: cfg.WorkerCount,
		Diverse:     *diverse,
		BucketOf: func(id types.ClipId) uint64 {
			if fp, ok := byID[id]; ok {
				return hashutil.PrefixBucketKey(fp.FirstHash, cfg.BucketBits)
			}
			return 0
		},
	})
	if err != nil {
		log.Error("chain discovery failed", "error", err)
		os.Exit(1)
	}

	for i, c := range chains {
		fmt.Printf("%d. %s\n", i+1, c.String())
	}
	log.Info("chain discovery complete", "chains_found", len(chains))
}

func runAssemble(args []string) {
	cfg := config.FromEnv()
	fs := flag.NewFlagSet("assemble", flag.ExitOnError)
	applyCommon(fs, &cfg)
	output := fs.String("output", "chain.mp4", "output video path")
	clipsFlag := fs.String("clips", "", "comma-separated clip ids forming the chain")
	fs.Parse(args)

	log := logging.New(os.Stderr, cfg.Verbose)
	mustValidate(log, cfg)

	if *clipsFlag == "" {
		log.Error("-clips is required")
		os.Exit(1)
	}
	chain := types.Chain{Clips: splitClipIDs(*clipsFlag)}

	tc, err := mediatool.NewToolchain(cfg.FFmpegPath, cfg.FFprobePath, cfg.TempDir)
	if err != nil {
		log.Error("toolchain unavailable", "error", err)
		os.Exit(1)
	}
	interp := interpolate.NewInterpolator(cfg.InterpolatorWeightsPath)
	assembler := assemble.New(tc, interp, cfg.TransitionFrames, cfg.OutputFPS, cfg.TempDir, log)

	ctx := context.Background()
	if cfg.UseTransitions {
		log.Info("assembling with smooth transitions", "output", *output)
		if err := assembler.AssembleSmooth(ctx, cfg.MediaRoot, chain, *output); err != nil {
			log.Error("smooth assembly failed", "error", err)
			os.Exit(1)
		}
	} else {
		canFast, err := assembler.CanFastConcat(ctx, cfg.MediaRoot, chain)
		if err != nil {
			log.Error("compatibility check failed", "error", err)
			os.Exit(1)
		}
		if !canFast {
			log.Warn("clips are not stream-copy compatible; falling back to smooth assembly")
			if err := assembler.AssembleSmooth(ctx, cfg.MediaRoot, chain, *output); err != nil {
				log.Error("smooth assembly failed", "error", err)
				os.Exit(1)
			}
		} else {
			log.Info("assembling via fast stream copy", "output", *output)
			if err := assembler.AssembleFast(ctx, cfg.MediaRoot, chain, *output); err != nil {
				log.Error("fast assembly failed", "error", err)
				os.Exit(1)
			}
		}
	}
	log.Info("assembly complete", "output", *output)
}

func runWorker(args []string) {
	cfg := config.FromEnv()
	fs := flag.NewFlagSet("worker", flag.ExitOnError)
	applyCommon(fs, &cfg)
	redisURL := fs.String("redis-url", "redis://localhost:6379", "redis connection URL")
	postgresURL := fs.String("postgres-url", "", "postgres connection URL for job-run history (optional)")
	fs.Parse(args)

	log := logging.New(os.Stderr, cfg.Verbose)
	mustValidate(log, cfg)

	tc, err := mediatool.NewToolchain(cfg.FFmpegPath, cfg.FFprobePath, cfg.TempDir)
	if err != nil {
		log.Error("toolchain unavailable", "error", err)
		os.Exit(1)
	}
	log.Info("toolchain initialized")

	st, err := store.Open(cfg.CachePath)
	if err != nil {
		log.Error("failed to open fingerprint cache", "error", err)
		os.Exit(1)
	}

	var jobHistory *jobstore.Store
	if *postgresURL != "" {
		jobHistory, err = jobstore.Open(*postgresURL)
		if err != nil {
			log.Warn("job-run history unavailable", "error", err)
		} else {
			defer jobHistory.Close()
			log.Info("job-run history initialized")
		}
	}

	var embedder fingerprint.EmbeddingClient
	if cfg.EmbeddingServiceURL != "" {
		embedder = embedclient.New(cfg.EmbeddingServiceURL, mediatool.FrameTimeout)
	}
	detector := scenecut.New(cfg.FFmpegPath)
	fp := fingerprint.New(tc, cfg.HashSize, cfg.HistBins, embedder, detector)
	interp := interpolate.NewInterpolator(cfg.InterpolatorWeightsPath)
	assembler := assemble.New(tc, interp, cfg.TransitionFrames, cfg.OutputFPS, cfg.TempDir, log)

	handlers := jobqueue.Handlers{
		Fingerprint: func(ctx context.Context, p jobqueue.FingerprintPayload) error {
			runID := uuid.New().String()
			if jobHistory != nil {
				jobHistory.StartRun(ctx, runID, jobstore.OpFingerprint, string(p.ClipID))
			}
			result, err := fp.Fingerprint(ctx, filepath.Join(cfg.MediaRoot, string(p.ClipID)), p.ClipID)
			if err == nil {
				st.Put(result)
				err = st.SaveAtomic()
			}
			if jobHistory != nil {
				jobHistory.FinishRun(ctx, runID, err)
			}
			return err
		},
		Assemble: func(ctx context.Context, p jobqueue.AssemblePayload) error {
			runID := uuid.New().String()
			if jobHistory != nil {
				jobHistory.StartRun(ctx, runID, jobstore.OpAssemble, p.OutputPath)
			}
			var err error
			if p.Smooth {
				err = assembler.AssembleSmooth(ctx, cfg.MediaRoot, p.Chain, p.OutputPath)
			} else {
				err = assembler.AssembleFast(ctx, cfg.MediaRoot, p.Chain, p.OutputPath)
			}
			if jobHistory != nil {
				jobHistory.FinishRun(ctx, runID, err)
			}
			return err
		},
	}

	srv, err := jobqueue.NewServer(*redisURL, cfg.WorkerCount, handlers, log)
	if err != nil {
		log.Error("failed to initialize job server", "error", err)
		os.Exit(1)
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		srv.Stop()
	}()

	if err := srv.Start(); err != nil {
		log.Error("worker exited with error", "error", err)
		os.Exit(1)
	}
}

func applyCommon(fs *flag.FlagSet, cfg *config.Config) {
	fs.StringVar(&cfg.MediaRoot, "media-root", cfg.MediaRoot, "root directory of clip files")
	fs.StringVar(&cfg.CachePath, "cache", cfg.CachePath, "fingerprint cache path")
	fs.StringVar(&cfg.GraphPath, "graph", cfg.GraphPath, "similarity graph path")
	fs.Float64Var(&cfg.MinScore, "min-score", cfg.MinScore, "minimum boundary score")
	fs.IntVar(&cfg.MaxFanout, "max-fanout", cfg.MaxFanout, "maximum outgoing edges per clip")
	fs.IntVar(&cfg.BucketBits, "bucket-bits", cfg.BucketBits, "candidate pruning prefix bits (0 disables)")
	fs.IntVar(&cfg.MinLength, "min-length", cfg.MinLength, "minimum chain length")
	fs.IntVar(&cfg.MaxStarts, "max-starts", cfg.MaxStarts, "maximum chain search starting points")
	fs.IntVar(&cfg.BranchCap, "branch-cap", cfg.BranchCap, "maximum branches explored per node")
	fs.IntVar(&cfg.TopK, "top-k", cfg.TopK, "number of top chains to keep")
	fs.BoolVar(&cfg.UseTransitions, "use-transitions", cfg.UseTransitions, "use smooth interpolated transitions during assembly")
	fs.IntVar(&cfg.WorkerCount, "workers", cfg.WorkerCount, "worker pool size")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "enable debug logging")
}

func splitClipIDs(s string) []types.ClipId {
	var out []types.ClipId
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, types.ClipId(s[start:i]))
			}
			start = i + 1
		}
	}
	return out
}

func discoverClips(mediaRoot string) ([]types.ClipId, error) {
	var clips []types.ClipId
	entries, err := os.ReadDir(mediaRoot)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		switch ext {
		case ".mp4", ".mov", ".mkv", ".webm":
			clips = append(clips, types.ClipId(e.Name()))
		}
	}
	return clips, nil
}
