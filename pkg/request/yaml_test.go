package request

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
sourceDirectories:
  - src/main/protobuf
languages:
  - java
  - kotlin
incrementalCompilation: true
failOnMissingSources: true
plugins:
  - id: grpc
    kind: mavenBinary
    coordinate:
      groupId: io.grpc
      artifactId: protoc-gen-grpc-java
      version: "1.68.0"
      classifier: linux-x86_64
    order: 1
protoc:
  coordinate:
    groupId: com.google.protobuf
    artifactId: protoc
    version: "4.28.2"
`

func TestLoadFileConfig_ParsesNestedStructures(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "goal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o644))

	cfg, err := LoadFileConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"src/main/protobuf"}, cfg.SourceDirectories)
	assert.Equal(t, []string{"java", "kotlin"}, cfg.Languages)
	require.Len(t, cfg.Plugins, 1)
	assert.Equal(t, "grpc", cfg.Plugins[0].ID)
	require.NotNil(t, cfg.Plugins[0].Coordinate)
	assert.Equal(t, "io.grpc", cfg.Plugins[0].Coordinate.GroupID)
	require.NotNil(t, cfg.Protoc.Coordinate)
	assert.Equal(t, "protoc", cfg.Protoc.Coordinate.ArtifactID)
}

func TestFileConfig_MergeOverlaysBaseRequest(t *testing.T) {
	base := GenerationRequest{
		BuildDir: "/build", PluginID: "protobuf-maven-plugin", Goal: "generate",
		OutputDir: "/build/generated",
	}
	cfg := &FileConfig{
		SourceDirectories:      []string{"src/main/protobuf"},
		Languages:              []string{"java"},
		IncrementalCompilation: true,
		Plugins: []PluginConfig{
			{ID: "grpc", Kind: "mavenBinary", Order: 1, Coordinate: &CoordinateConfig{
				GroupID: "io.grpc", ArtifactID: "protoc-gen-grpc-java", Version: "1.68.0",
			}},
		},
	}

	merged := cfg.Merge(base)

	assert.Equal(t, "/build", merged.BuildDir, "host-owned fields survive the overlay")
	assert.Equal(t, []string{"src/main/protobuf"}, merged.SourceRoots)
	assert.Equal(t, []Language{LanguageJava}, merged.Languages)
	assert.True(t, merged.IncrementalCompilation)
	require.Len(t, merged.Plugins, 1)
	assert.Equal(t, PluginSourceMavenBinary, merged.Plugins[0].Kind)
	assert.Equal(t, "io.grpc", merged.Plugins[0].Coordinate.GroupID)
}

func TestFileConfig_MergeLeavesUnsetCollectionsAlone(t *testing.T) {
	base := GenerationRequest{SourceRoots: []string{"src/main/protobuf"}, Languages: []Language{LanguageJava}}
	cfg := &FileConfig{}

	merged := cfg.Merge(base)

	assert.Equal(t, base.SourceRoots, merged.SourceRoots)
	assert.Equal(t, base.Languages, merged.Languages)
}
