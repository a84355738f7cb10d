// Package pluginresolve implements the plugin resolver (C9): turning each
// configured PluginDescriptor into a ResolvedProtocPlugin pointing at a
// local binary, generating a JVM bootstrap script where needed (spec §4.2,
// §6).
package pluginresolve

import (
	"context"
	"fmt"

	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/digest"
	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/errs"
	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/fetch"
	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/fsutil"
	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/pathresolve"
	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/platform"
	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/request"
	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/resolver"
)

// ResolvedProtocPlugin is a plugin descriptor resolved to a local binary,
// owned by this package until the orchestrator consumes it (spec §3).
type ResolvedProtocPlugin struct {
	ID                        string
	LocalPath                 string
	Options                   string
	OutputDirectory           string
	Order                     int
	RegisterAsCompilationRoot bool
	Skip                      bool
}

// Bootstrapper generates a small sanctioned-PATH script that execs a JVM
// plugin's main class, since protoc only knows how to invoke a single
// native binary per plugin (spec §4.2). Grounded on the teacher's JVM
// plugin type in pkg/plugins.
type Bootstrapper interface {
	GenerateBootstrapScript(ctx context.Context, javaExecutablePath, classpathJar, mainClass string, scratchDir string) (string, error)
}

// Resolver resolves every plugin descriptor in a request to a
// ResolvedProtocPlugin, ordering the result per spec §3's tie-break rule.
type Resolver struct {
	Artifacts    resolver.Resolver
	Fetcher      fetch.Fetcher
	PathResolver *pathresolve.Resolver
	Probe        *platform.Probe
	Bootstrap    Bootstrapper
	ScratchRoot  string
}

// New wires the collaborators a plugin resolver needs.
func New(artifacts resolver.Resolver, fetcher fetch.Fetcher, pathResolver *pathresolve.Resolver, probe *platform.Probe, bootstrap Bootstrapper, scratchRoot string) *Resolver {
	return &Resolver{
		Artifacts:    artifacts,
		Fetcher:      fetcher,
		PathResolver: pathResolver,
		Probe:        probe,
		Bootstrap:    bootstrap,
		ScratchRoot:  scratchRoot,
	}
}

// ResolveAll resolves every non-skipped descriptor and returns them sorted
// ascending by (order, id, localPath) as spec §3 requires.
func (r *Resolver) ResolveAll(ctx context.Context, descriptors []request.PluginDescriptor) ([]ResolvedProtocPlugin, error) {
	resolved := make([]ResolvedProtocPlugin, 0, len(descriptors))
	var failures []error

	for _, d := range descriptors {
		if d.Skip {
			continue
		}
		plugin, err := r.resolveOne(ctx, d)
		if err != nil {
			failures = append(failures, fmt.Errorf("plugin %s: %w", d.ID, err))
			continue
		}
		resolved = append(resolved, plugin)
	}

	if len(failures) > 0 {
		return nil, errs.NewMultipleFailures(failures)
	}

	Sort(resolved)
	return resolved, nil
}

func (r *Resolver) resolveOne(ctx context.Context, d request.PluginDescriptor) (ResolvedProtocPlugin, error) {
	base := ResolvedProtocPlugin{
		ID:                        d.ID,
		Options:                   d.Options,
		OutputDirectory:           d.OutputDirectory,
		Order:                     d.Order,
		RegisterAsCompilationRoot: d.RegisterAsCompilationRoot,
	}

	switch d.Kind {
	case request.PluginSourcePath:
		path, err := r.PathResolver.Resolve(d.SystemPath)
		if err != nil {
			return ResolvedProtocPlugin{}, err
		}
		if path == "" {
			return ResolvedProtocPlugin{}, &errs.ResolutionError{What: "plugin " + d.ID + " path " + d.SystemPath}
		}
		base.LocalPath = path
		return base, nil

	case request.PluginSourceURI:
		var expected *digest.Digest
		if d.ExpectedHash != "" {
			parsed, err := digest.ParseDigestString(d.ExpectedHash)
			if err != nil {
				return ResolvedProtocPlugin{}, &errs.ConfigurationError{Reason: "malformed plugin digest: " + err.Error()}
			}
			expected = &parsed
		}
		path, found, err := r.Fetcher.Fetch(ctx, d.URI, platformExecutableExtension(r.Probe), expected)
		if err != nil {
			return ResolvedProtocPlugin{}, err
		}
		if !found {
			return ResolvedProtocPlugin{}, &errs.ResolutionError{What: "plugin " + d.ID + " uri " + d.URI}
		}
		if err := fsutil.SetExecutable(path); err != nil {
			return ResolvedProtocPlugin{}, err
		}
		base.LocalPath = path
		return base, nil

	case request.PluginSourceMavenBinary:
		if d.Coordinate == nil {
			return ResolvedProtocPlugin{}, &errs.ConfigurationError{Reason: "plugin " + d.ID + " has no coordinate"}
		}
		path, err := r.Artifacts.ResolveArtifact(ctx, *d.Coordinate)
		if err != nil {
			return ResolvedProtocPlugin{}, err
		}
		if err := fsutil.SetExecutable(path); err != nil {
			return ResolvedProtocPlugin{}, err
		}
		base.LocalPath = path
		return base, nil

	case request.PluginSourceMavenJvm:
		if d.Coordinate == nil {
			return ResolvedProtocPlugin{}, &errs.ConfigurationError{Reason: "plugin " + d.ID + " has no coordinate"}
		}
		if d.MainClass == "" {
			return ResolvedProtocPlugin{}, &errs.ConfigurationError{Reason: "plugin " + d.ID + " is a JVM plugin with no main class"}
		}
		jarPath, err := r.Artifacts.ResolveArtifact(ctx, *d.Coordinate)
		if err != nil {
			return ResolvedProtocPlugin{}, err
		}
		scriptPath, err := r.Bootstrap.GenerateBootstrapScript(ctx, r.Probe.JavaExecutablePath(), jarPath, d.MainClass, r.ScratchRoot)
		if err != nil {
			return ResolvedProtocPlugin{}, err
		}
		base.LocalPath = scriptPath
		return base, nil

	default:
		return ResolvedProtocPlugin{}, &errs.ConfigurationError{Reason: fmt.Sprintf("plugin %s has unknown source kind %d", d.ID, d.Kind)}
	}
}

func platformExecutableExtension(probe *platform.Probe) string {
	if probe != nil && probe.IsWindows() {
		return "exe"
	}
	return ""
}
