package pluginresolve

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/digest"
	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/pathresolve"
	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/platform"
	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/request"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeArtifacts struct {
	paths map[string]string
}

func (f *fakeArtifacts) ResolveArtifact(ctx context.Context, c request.ArtifactCoordinate) (string, error) {
	return f.paths[c.String()], nil
}

func (f *fakeArtifacts) ResolveDependencies(ctx context.Context, cs []request.ArtifactCoordinate, depth request.DependencyDepth, scopes []request.DependencyScope, includeProjectDependencies, failOnInvalid bool) ([]string, error) {
	return nil, nil
}

type fakeFetcher struct {
	path  string
	found bool
}

func (f *fakeFetcher) Fetch(ctx context.Context, uri, extensionHint string, expectedDigest *digest.Digest) (string, bool, error) {
	return f.path, f.found, nil
}

func newPathResolver(t *testing.T) *pathresolve.Resolver {
	t.Helper()
	env := fakeEnv{}
	probe := platform.NewProbe(env, nil)
	return pathresolve.New(probe, nil)
}

type fakeEnv map[string]string

func (e fakeEnv) Getenv(key string) string   { return e[key] }
func (e fakeEnv) UserHomeDir() (string, error) { return "/home/test", nil }

func TestResolveAll_PathPluginResolvesFromHostSearchPath(t *testing.T) {
	dir := t.TempDir()
	binPath := filepath.Join(dir, "protoc-gen-custom")
	require.NoError(t, os.WriteFile(binPath, []byte("#!/bin/sh\n"), 0o755))

	env := fakeEnv{"PATH": dir}
	probe := platform.NewProbe(env, nil)
	pr := pathresolve.New(probe, nil)

	r := New(&fakeArtifacts{}, &fakeFetcher{}, pr, probe, ScriptBootstrapper{}, t.TempDir())

	descriptors := []request.PluginDescriptor{
		{ID: "custom", Kind: request.PluginSourcePath, SystemPath: "protoc-gen-custom"},
	}

	resolved, err := r.ResolveAll(context.Background(), descriptors)
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Equal(t, binPath, resolved[0].LocalPath)
}

func TestResolveAll_SkipsDescriptorsMarkedSkip(t *testing.T) {
	pr := newPathResolver(t)
	probe := platform.NewProbe(fakeEnv{}, nil)
	r := New(&fakeArtifacts{}, &fakeFetcher{}, pr, probe, ScriptBootstrapper{}, t.TempDir())

	resolved, err := r.ResolveAll(context.Background(), []request.PluginDescriptor{
		{ID: "skipped", Kind: request.PluginSourcePath, SystemPath: "whatever", Skip: true},
	})
	require.NoError(t, err)
	assert.Empty(t, resolved)
}

func TestResolveAll_OrdersByOrderThenID(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"protoc-gen-a", "protoc-gen-b"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\n"), 0o755))
	}

	env := fakeEnv{"PATH": dir}
	probe := platform.NewProbe(env, nil)
	pr := pathresolve.New(probe, nil)
	r := New(&fakeArtifacts{}, &fakeFetcher{}, pr, probe, ScriptBootstrapper{}, t.TempDir())

	descriptors := []request.PluginDescriptor{
		{ID: "b", Kind: request.PluginSourcePath, SystemPath: "protoc-gen-b", Order: 1},
		{ID: "a", Kind: request.PluginSourcePath, SystemPath: "protoc-gen-a", Order: 1},
	}

	resolved, err := r.ResolveAll(context.Background(), descriptors)
	require.NoError(t, err)
	require.Len(t, resolved, 2)
	assert.Equal(t, "a", resolved[0].ID)
	assert.Equal(t, "b", resolved[1].ID)
}

func TestResolveAll_MavenJvmGeneratesBootstrapScript(t *testing.T) {
	jarPath := filepath.Join(t.TempDir(), "plugin.jar")
	require.NoError(t, os.WriteFile(jarPath, []byte("jar"), 0o644))

	coord := request.ArtifactCoordinate{GroupID: "com.example", ArtifactID: "gen", Version: "1.0"}
	artifacts := &fakeArtifacts{paths: map[string]string{coord.String(): jarPath}}

	probe := platform.NewProbe(fakeEnv{"JAVA_HOME": filepath.Join(t.TempDir(), "jdk")}, nil)
	pr := pathresolve.New(probe, nil)
	scratch := t.TempDir()
	r := New(artifacts, &fakeFetcher{}, pr, probe, ScriptBootstrapper{}, scratch)

	descriptors := []request.PluginDescriptor{
		{ID: "jvm-gen", Kind: request.PluginSourceMavenJvm, Coordinate: &coord, MainClass: "com.example.Main"},
	}

	_, err := r.ResolveAll(context.Background(), descriptors)
	if probe.JavaExecutablePath() == "" {
		require.Error(t, err)
		return
	}
	require.NoError(t, err)
}

func TestResolveAll_MissingCoordinateOnMavenBinaryIsConfigurationError(t *testing.T) {
	probe := platform.NewProbe(fakeEnv{}, nil)
	pr := pathresolve.New(probe, nil)
	r := New(&fakeArtifacts{}, &fakeFetcher{}, pr, probe, ScriptBootstrapper{}, t.TempDir())

	_, err := r.ResolveAll(context.Background(), []request.PluginDescriptor{
		{ID: "nocoord", Kind: request.PluginSourceMavenBinary},
	})
	require.Error(t, err)
}
