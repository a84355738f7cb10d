package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/executor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	pool := executor.New(context.Background(), 4)
	t.Cleanup(pool.Shutdown)
	buildDir := t.TempDir()
	m, err := NewManager(pool, buildDir, 64, nil, "", nil)
	require.NoError(t, err)
	return m, buildDir
}

func writeInput(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestManager_DecideColdCacheYieldsEveryInputAsDelta(t *testing.T) {
	m, _ := newTestManager(t)
	inputDir := t.TempDir()
	a := writeInput(t, inputDir, "a.proto", "syntax=\"proto3\";")

	next, err := m.DigestInputs(context.Background(), []string{a})
	require.NoError(t, err)

	decision, err := m.Decide(next, nil)
	require.NoError(t, err)
	assert.False(t, decision.FullRebuild)
	assert.False(t, decision.NoOp)
	assert.Equal(t, []string{a}, decision.Delta)
}

func TestManager_CommitThenDecideIsNoOpWhenUnchanged(t *testing.T) {
	m, _ := newTestManager(t)
	inputDir := t.TempDir()
	a := writeInput(t, inputDir, "a.proto", "syntax=\"proto3\";")

	next, err := m.DigestInputs(context.Background(), []string{a})
	require.NoError(t, err)
	require.NoError(t, m.Commit(next))

	next2, err := m.DigestInputs(context.Background(), []string{a})
	require.NoError(t, err)
	decision, err := m.Decide(next2, nil)
	require.NoError(t, err)
	assert.True(t, decision.NoOp)
}

func TestManager_BinaryChangeAfterCommitForcesFullRebuild(t *testing.T) {
	m, _ := newTestManager(t)
	inputDir := t.TempDir()
	a := writeInput(t, inputDir, "a.proto", "syntax=\"proto3\";")
	plugin := writeInput(t, inputDir, "protoc-gen-x", "v1")

	next, err := m.DigestInputs(context.Background(), []string{a, plugin})
	require.NoError(t, err)
	require.NoError(t, m.Commit(next))

	require.NoError(t, os.WriteFile(plugin, []byte("v2"), 0o644))
	next2, err := m.DigestInputs(context.Background(), []string{a, plugin})
	require.NoError(t, err)

	decision, err := m.Decide(next2, []string{plugin})
	require.NoError(t, err)
	assert.True(t, decision.FullRebuild)
}

func TestManager_DigestInputsMemoizesThroughL1(t *testing.T) {
	m, _ := newTestManager(t)
	inputDir := t.TempDir()
	a := writeInput(t, inputDir, "a.proto", "syntax=\"proto3\";")

	first, err := m.DigestInputs(context.Background(), []string{a})
	require.NoError(t, err)

	require.NoError(t, os.Remove(a))

	second, err := m.DigestInputs(context.Background(), []string{a})
	require.NoError(t, err)

	d1, _ := first.Get(a)
	d2, _ := second.Get(a)
	assert.True(t, d1.Equal(d2))
}
