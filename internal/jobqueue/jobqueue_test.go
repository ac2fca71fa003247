package jobqueue

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adverant/nexus/videochain/internal/logging"
	"github.com/adverant/nexus/videochain/internal/types"
)

func testServer(h Handlers) *Server {
	return &Server{handlers: h, log: logging.NewPlain(&bytes.Buffer{}, false)}
}

func TestHandleFingerprintDispatchesPayload(t *testing.T) {
	var got types.ClipId
	s := testServer(Handlers{
		Fingerprint: func(ctx context.Context, p FingerprintPayload) error {
			got = p.ClipID
			return nil
		},
	})
	payload, err := json.Marshal(FingerprintPayload{ClipID: "clip-42.mp4"})
	require.NoError(t, err)

	err = s.handleFingerprint(context.Background(), asynq.NewTask(TaskFingerprint, payload))
	require.NoError(t, err)
	assert.Equal(t, types.ClipId("clip-42.mp4"), got)
}

func TestHandleFingerprintMissingHandlerErrors(t *testing.T) {
	s := testServer(Handlers{})
	payload, _ := json.Marshal(FingerprintPayload{ClipID: "clip.mp4"})
	err := s.handleFingerprint(context.Background(), asynq.NewTask(TaskFingerprint, payload))
	assert.Error(t, err)
}

func TestHandleAssembleDispatchesPayload(t *testing.T) {
	var got AssemblePayload
	s := testServer(Handlers{
		Assemble: func(ctx context.Context, p AssemblePayload) error {
			got = p
			return nil
		},
	})
	payload, err := json.Marshal(AssemblePayload{
		Chain:      types.Chain{Clips: []types.ClipId{"a", "b"}},
		OutputPath: "/out/final.mp4",
		Smooth:     true,
	})
	require.NoError(t, err)

	err = s.handleAssemble(context.Background(), asynq.NewTask(TaskAssemble, payload))
	require.NoError(t, err)
	assert.Equal(t, "/out/final.mp4", got.OutputPath)
	assert.True(t, got.Smooth)
	assert.Equal(t, []types.ClipId{"a", "b"}, got.Chain.Clips)
}

func TestHandleBuildGraphRequiresHandler(t *testing.T) {
	s := testServer(Handlers{})
	err := s.handleBuildGraph(context.Background(), asynq.NewTask(TaskBuildGraph, nil))
	assert.Error(t, err)
}

func TestHandleFindChainsRequiresHandler(t *testing.T) {
	s := testServer(Handlers{})
	err := s.handleFindChains(context.Background(), asynq.NewTask(TaskFindChains, nil))
	assert.Error(t, err)
}
