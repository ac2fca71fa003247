// Package jobqueue dispatches the four core operations (fingerprint, graph
// build, chain find, assemble) as background asynq tasks against Redis, for
// callers who would rather enqueue work than block a CLI invocation on it.
// Adapted from the teacher's internal/queue/redis_consumer.go: same
// asynq.Server/ServeMux shape and priority queue names, generalized from a
// single "process video" task to one task type per operation and moved from
// log.Printf onto the shared *slog.Logger.
package jobqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/adverant/nexus/videochain/internal/types"
)

const (
	TaskFingerprint = "videochain:fingerprint"
	TaskBuildGraph  = "videochain:build_graph"
	TaskFindChains  = "videochain:find_chains"
	TaskAssemble    = "videochain:assemble"
)

// FingerprintPayload is the task payload for TaskFingerprint.
type FingerprintPayload struct {
	ClipID types.ClipId `json:"clip_id"`
}

// AssemblePayload is the task payload for TaskAssemble.
type AssemblePayload struct {
	Chain      types.Chain `json:"chain"`
	OutputPath string      `json:"output_path"`
	Smooth     bool        `json:"smooth"`
}

// Handlers is the set of callbacks invoked for each task type. A nil
// handler makes every task of its type fail with an error; the error is not
// marked to skip retries, so asynq retries such tasks like any other failure.
type Handlers struct {
	Fingerprint func(ctx context.Context, p FingerprintPayload) error
	BuildGraph  func(ctx context.Context) error
	FindChains  func(ctx context.Context) error
	Assemble    func(ctx context.Context, p AssemblePayload) error
}

// Server runs an asynq worker pool processing videochain tasks.
type Server struct {
	server   *asynq.Server
	handlers Handlers
	log      *slog.Logger
}

// NewServer constructs a Server against redisURL with the given
// concurrency.
func NewServer(redisURL string, concurrency int, handlers Handlers, log *slog.Logger) (*Server, error) {
	redisOpt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				"videochain:critical": 6,
				"videochain:default":  3,
				"videochain:low":      1,
			},
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				return time.Duration(1<<uint(n)) * time.Minute
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Error("task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	return &Server{server: srv, handlers: handlers, log: log}, nil
}

// Start blocks serving registered task handlers until Stop is called.
func (s *Server) Start() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskFingerprint, s.handleFingerprint)
	mux.HandleFunc(TaskBuildGraph, s.handleBuildGraph)
	mux.HandleFunc(TaskFindChains, s.handleFindChains)
	mux.HandleFunc(TaskAssemble, s.handleAssemble)

	s.log.Info("starting videochain worker")
	if err := s.server.Run(mux); err != nil {
		return fmt.Errorf("worker run failed: %w", err)
	}
	return nil
}

// Stop shuts the worker down gracefully.
func (s *Server) Stop() {
	s.log.Info("shutting down videochain worker")
	s.server.Shutdown()
}

func (s *Server) handleFingerprint(ctx context.Context, task *asynq.Task) error {
	if s.handlers.Fingerprint == nil {
		return fmt.Errorf("no fingerprint handler registered")
	}
	var p FingerprintPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal fingerprint payload: %w", err)
	}
	s.log.Info("fingerprinting clip", "clip_id", p.ClipID)
	return s.handlers.Fingerprint(ctx, p)
}

func (s *Server) handleBuildGraph(ctx context.Context, task *asynq.Task) error {
	if s.handlers.BuildGraph == nil {
		return fmt.Errorf("no build_graph handler registered")
	}
	s.log.Info("building similarity graph")
	return s.handlers.BuildGraph(ctx)
}

func (s *Server) handleFindChains(ctx context.Context, task *asynq.Task) error {
	if s.handlers.FindChains == nil {
		return fmt.Errorf("no find_chains handler registered")
	}
	s.log.Info("finding chains")
	return s.handlers.FindChains(ctx)
}

func (s *Server) handleAssemble(ctx context.Context, task *asynq.Task) error {
	if s.handlers.Assemble == nil {
		return fmt.Errorf("no assemble handler registered")
	}
	var p AssemblePayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal assemble payload: %w", err)
	}
	s.log.Info("assembling chain", "output_path", p.OutputPath, "smooth", p.Smooth)
	return s.handlers.Assemble(ctx, p)
}

// Client enqueues videochain tasks against Redis.
type Client struct {
	client *asynq.Client
}

// NewClient constructs a Client against redisURL.
func NewClient(redisURL string) (*Client, error) {
	redisOpt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return &Client{client: asynq.NewClient(redisOpt)}, nil
}

// Close releases the underlying Redis connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueFingerprint enqueues a fingerprint task for one clip.
func (c *Client) EnqueueFingerprint(ctx context.Context, clipID types.ClipId) error {
	payload, err := json.Marshal(FingerprintPayload{ClipID: clipID})
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, asynq.NewTask(TaskFingerprint, payload), asynq.Queue("videochain:default"))
	return err
}

// EnqueueBuildGraph enqueues a similarity-graph build.
func (c *Client) EnqueueBuildGraph(ctx context.Context) error {
	_, err := c.client.EnqueueContext(ctx, asynq.NewTask(TaskBuildGraph, nil), asynq.Queue("videochain:default"))
	return err
}

// EnqueueFindChains enqueues a chain-discovery run.
func (c *Client) EnqueueFindChains(ctx context.Context) error {
	_, err := c.client.EnqueueContext(ctx, asynq.NewTask(TaskFindChains, nil), asynq.Queue("videochain:default"))
	return err
}

// EnqueueAssemble enqueues a chain assembly.
func (c *Client) EnqueueAssemble(ctx context.Context, p AssemblePayload) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, asynq.NewTask(TaskAssemble, payload), asynq.Queue("videochain:critical"))
	return err
}
