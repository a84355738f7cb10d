package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/request"
	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingGenerator struct {
	calls atomic.Int32
}

func (g *countingGenerator) Generate(ctx context.Context, req *request.GenerationRequest) request.GenerationOutcome {
	g.calls.Add(1)
	return request.GenerationOutcome{Result: request.ResultProtocSucceeded}
}

func TestWatcher_RunsOnceImmediatelyThenDebouncesBurst(t *testing.T) {
	root := t.TempDir()
	gen := &countingGenerator{}
	req := &request.GenerationRequest{SourceRoots: []string{root}}
	w := NewWatcher(gen, req, nil)
	w.Delay = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// allow the initial synchronous run to register before firing events.
	require.Eventually(t, func() bool { return gen.calls.Load() >= 1 }, time.Second, time.Millisecond)

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(root, "a.proto"), []byte("syntax = \"proto3\";\n"), 0o644))
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return gen.calls.Load() == 2 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
	assert.Equal(t, int32(2), gen.calls.Load())
}

func TestIsProtoWrite_IgnoresNonProtoFiles(t *testing.T) {
	assert.False(t, isProtoWrite(fsnotify.Event{Name: "a.txt", Op: fsnotify.Write}))
	assert.True(t, isProtoWrite(fsnotify.Event{Name: "a.proto", Op: fsnotify.Write}))
	assert.False(t, isProtoWrite(fsnotify.Event{Name: "a.proto", Op: fsnotify.Chmod}))
}
