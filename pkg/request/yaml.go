package request

import (
	"os"

	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk, YAML-shaped configuration a host build tool's
// (out-of-scope, per spec §1) front end would translate a goal's plugin
// configuration into before constructing a GenerationRequest. Only the
// user-facing subset of GenerationRequest is exposed here; the remaining
// fields (BuildDir, PluginID, Goal, ExecutionID, Environment) are always
// supplied by the host at construction time, never read from this file.
type FileConfig struct {
	SourceDirectories  []string           `yaml:"sourceDirectories,omitempty"`
	ImportDirectories  []string           `yaml:"importDirectories,omitempty"`
	SourceDependencies []CoordinateConfig `yaml:"sourceDependencies,omitempty"`
	ImportDependencies []CoordinateConfig `yaml:"importDependencies,omitempty"`

	DescriptorSourcePaths  []string           `yaml:"descriptorSourcePaths,omitempty"`
	DescriptorDependencies []CoordinateConfig `yaml:"descriptorDependencies,omitempty"`

	Languages []string         `yaml:"languages,omitempty"`
	Plugins   []PluginConfig   `yaml:"plugins,omitempty"`
	Protoc    ProtocConfig     `yaml:"protoc,omitempty"`

	Scopes          []string `yaml:"scopes,omitempty"`
	Transitive      bool     `yaml:"transitive,omitempty"`
	IncludePatterns []string `yaml:"includePatterns,omitempty"`
	ExcludePatterns []string `yaml:"excludePatterns,omitempty"`

	LiteMode                  bool `yaml:"liteMode,omitempty"`
	FatalWarnings             bool `yaml:"fatalWarnings,omitempty"`
	RegisterAsCompilationRoot bool `yaml:"registerAsCompilationRoot,omitempty"`
	EmbedSourcesInOutput      bool `yaml:"embedSourcesInOutput,omitempty"`
	IncrementalCompilation    bool `yaml:"incrementalCompilation,omitempty"`
	CleanOutputDirectories    bool `yaml:"cleanOutputDirectories,omitempty"`
	FailOnMissingSources      bool `yaml:"failOnMissingSources,omitempty"`
	FailOnMissingTargets      bool `yaml:"failOnMissingTargets,omitempty"`
	FailOnInvalidDependencies bool `yaml:"failOnInvalidDependencies,omitempty"`
	IgnoreProjectDependencies bool `yaml:"ignoreProjectDependencies,omitempty"`

	OutputDescriptorFile           string `yaml:"outputDescriptorFile,omitempty"`
	OutputDescriptorIncludeImports bool   `yaml:"outputDescriptorIncludeImports,omitempty"`
	OutputDescriptorIncludeSource  bool   `yaml:"outputDescriptorIncludeSource,omitempty"`
	OutputDescriptorRetainOptions  bool   `yaml:"outputDescriptorRetainOptions,omitempty"`

	ExtraArgs []string `yaml:"extraArgs,omitempty"`
	OutputDir string   `yaml:"outputDir,omitempty"`

	DryRun  bool `yaml:"dryRun,omitempty"`
	Verbose bool `yaml:"verbose,omitempty"`
}

// CoordinateConfig is the YAML rendition of ArtifactCoordinate.
type CoordinateConfig struct {
	GroupID    string `yaml:"groupId"`
	ArtifactID string `yaml:"artifactId"`
	Version    string `yaml:"version"`
	Classifier string `yaml:"classifier,omitempty"`
	Type       string `yaml:"type,omitempty"`
}

func (c CoordinateConfig) toCoordinate() ArtifactCoordinate {
	return ArtifactCoordinate{
		GroupID: c.GroupID, ArtifactID: c.ArtifactID, Version: c.Version,
		Classifier: c.Classifier, Type: c.Type,
	}
}

// ProtocConfig is the YAML rendition of ProtocDistribution.
type ProtocConfig struct {
	Coordinate   *CoordinateConfig `yaml:"coordinate,omitempty"`
	URI          string            `yaml:"uri,omitempty"`
	ExpectedHash string            `yaml:"expectedHash,omitempty"`
	SystemPath   string            `yaml:"systemPath,omitempty"`
}

// PluginConfig is the YAML rendition of PluginDescriptor.
type PluginConfig struct {
	ID                        string            `yaml:"id"`
	Kind                      string            `yaml:"kind"` // mavenBinary | mavenJvm | uri | path
	Coordinate                *CoordinateConfig `yaml:"coordinate,omitempty"`
	URI                       string            `yaml:"uri,omitempty"`
	ExpectedHash              string            `yaml:"expectedHash,omitempty"`
	SystemPath                string            `yaml:"systemPath,omitempty"`
	MainClass                 string            `yaml:"mainClass,omitempty"`
	Options                   string            `yaml:"options,omitempty"`
	OutputDirectory           string            `yaml:"outputDirectory,omitempty"`
	Order                     int               `yaml:"order,omitempty"`
	RegisterAsCompilationRoot bool              `yaml:"registerAsCompilationRoot,omitempty"`
	Skip                      bool              `yaml:"skip,omitempty"`
}

var pluginKinds = map[string]PluginSourceKind{
	"mavenBinary": PluginSourceMavenBinary,
	"mavenJvm":    PluginSourceMavenJvm,
	"uri":         PluginSourceURI,
	"path":        PluginSourcePath,
}

// LoadFileConfig reads and parses a YAML goal-configuration file at path.
func LoadFileConfig(path string) (*FileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &FileConfig{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Merge overlays the file configuration onto base, returning the combined
// GenerationRequest. base supplies the host-owned fields (BuildDir,
// PluginID, Goal, ExecutionID, Environment) that this file never carries.
func (c *FileConfig) Merge(base GenerationRequest) *GenerationRequest {
	req := base

	if len(c.SourceDirectories) > 0 {
		req.SourceRoots = c.SourceDirectories
	}
	if len(c.ImportDirectories) > 0 {
		req.ImportRoots = c.ImportDirectories
	}
	if len(c.SourceDependencies) > 0 {
		req.SourceDependencies = coordinates(c.SourceDependencies)
	}
	if len(c.ImportDependencies) > 0 {
		req.ImportDependencies = coordinates(c.ImportDependencies)
	}
	if len(c.DescriptorSourcePaths) > 0 {
		req.DescriptorSourcePaths = c.DescriptorSourcePaths
	}
	if len(c.DescriptorDependencies) > 0 {
		req.DescriptorDependencies = coordinates(c.DescriptorDependencies)
	}

	if len(c.Languages) > 0 {
		langs := make([]Language, 0, len(c.Languages))
		for _, l := range c.Languages {
			langs = append(langs, Language(l))
		}
		req.Languages = langs
	}
	if len(c.Plugins) > 0 {
		plugins := make([]PluginDescriptor, 0, len(c.Plugins))
		for _, p := range c.Plugins {
			pd := PluginDescriptor{
				ID: p.ID, Kind: pluginKinds[p.Kind], URI: p.URI,
				ExpectedHash: p.ExpectedHash, SystemPath: p.SystemPath,
				MainClass: p.MainClass, Options: p.Options,
				OutputDirectory: p.OutputDirectory, Order: p.Order,
				RegisterAsCompilationRoot: p.RegisterAsCompilationRoot, Skip: p.Skip,
			}
			if p.Coordinate != nil {
				coord := p.Coordinate.toCoordinate()
				pd.Coordinate = &coord
			}
			plugins = append(plugins, pd)
		}
		req.Plugins = plugins
	}
	if c.Protoc.SystemPath != "" || c.Protoc.URI != "" || c.Protoc.Coordinate != nil {
		dist := ProtocDistribution{URI: c.Protoc.URI, ExpectedHash: c.Protoc.ExpectedHash, SystemPath: c.Protoc.SystemPath}
		if c.Protoc.Coordinate != nil {
			coord := c.Protoc.Coordinate.toCoordinate()
			dist.Coordinate = &coord
		}
		req.Protoc = dist
	}

	if len(c.Scopes) > 0 {
		scopes := make([]DependencyScope, 0, len(c.Scopes))
		for _, s := range c.Scopes {
			scopes = append(scopes, DependencyScope(s))
		}
		req.Scopes = scopes
	}
	if c.Transitive {
		req.DependencyDepth = DepthTransitive
	}
	if len(c.IncludePatterns) > 0 {
		req.IncludePatterns = c.IncludePatterns
	}
	if len(c.ExcludePatterns) > 0 {
		req.ExcludePatterns = c.ExcludePatterns
	}

	req.LiteMode = c.LiteMode
	req.FatalWarnings = c.FatalWarnings
	req.RegisterAsCompilationRoot = c.RegisterAsCompilationRoot
	req.EmbedSourcesInOutput = c.EmbedSourcesInOutput
	req.IncrementalCompilation = c.IncrementalCompilation
	req.CleanOutputDirectories = c.CleanOutputDirectories
	req.FailOnMissingSources = c.FailOnMissingSources
	req.FailOnMissingTargets = c.FailOnMissingTargets
	req.FailOnInvalidDependencies = c.FailOnInvalidDependencies
	req.IgnoreProjectDependencies = c.IgnoreProjectDependencies

	req.OutputDescriptorFile = c.OutputDescriptorFile
	req.OutputDescriptorIncludeImports = c.OutputDescriptorIncludeImports
	req.OutputDescriptorIncludeSource = c.OutputDescriptorIncludeSource
	req.OutputDescriptorRetainOptions = c.OutputDescriptorRetainOptions

	if len(c.ExtraArgs) > 0 {
		req.ExtraArgs = c.ExtraArgs
	}
	if c.OutputDir != "" {
		req.OutputDir = c.OutputDir
	}
	req.DryRun = req.DryRun || c.DryRun
	req.Verbose = req.Verbose || c.Verbose

	return &req
}

func coordinates(cs []CoordinateConfig) []ArtifactCoordinate {
	if len(cs) == 0 {
		return nil
	}
	out := make([]ArtifactCoordinate, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.toCoordinate())
	}
	return out
}
