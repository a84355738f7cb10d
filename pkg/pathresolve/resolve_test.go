package pathresolve

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/platform"
	"github.com/stretchr/testify/require"
)

type fakeEnv map[string]string

func (f fakeEnv) Getenv(key string) string        { return f[key] }
func (f fakeEnv) UserHomeDir() (string, error)     { return f["HOME"], nil }

func TestResolve_FindsExecutableOnPosix(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix-only test")
	}
	dir := t.TempDir()
	binPath := filepath.Join(dir, "protoc")
	require.NoError(t, os.WriteFile(binPath, []byte("#!/bin/sh\n"), 0o755))

	probe := platform.NewProbe(fakeEnv{"PATH": dir}, nil)
	r := New(probe, nil)

	found, err := r.Resolve("protoc")
	require.NoError(t, err)
	require.Equal(t, binPath, found)
}

func TestResolve_IgnoresNonExecutableFile(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix-only test")
	}
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "protoc"), []byte("x"), 0o644))

	probe := platform.NewProbe(fakeEnv{"PATH": dir}, nil)
	r := New(probe, nil)

	found, err := r.Resolve("protoc")
	require.NoError(t, err)
	require.Empty(t, found)
}

func TestResolve_NotFoundReturnsEmptyNoError(t *testing.T) {
	dir := t.TempDir()
	probe := platform.NewProbe(fakeEnv{"PATH": dir}, nil)
	r := New(probe, nil)

	found, err := r.Resolve("does-not-exist")
	require.NoError(t, err)
	require.Empty(t, found)
}
