// Package orchestrator implements the build orchestrator (C12): the
// single generate(request) operation that sequences every other
// component, short-circuiting on missing inputs or targets, spawning
// protoc, and committing the incremental cache on success (spec §4.6).
// Grounded on the teacher's DefaultOrchestrator.Compile/CompileAll
// sequencing shape in pkg/codegen/orchestrator/orchestrator.go.
package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/argsfile"
	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/cache"
	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/digest"
	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/errs"
	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/executor"
	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/fetch"
	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/fsutil"
	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/pluginresolve"
	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/protocexec"
	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/registrar"
	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/request"
	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/resolver"
	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/sourceresolve"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Orchestrator sequences every collaborator behind the single Generate
// operation.
type Orchestrator struct {
	Pool        *executor.Pool
	Artifacts   resolver.Resolver
	Fetcher     fetch.Fetcher
	Plugins     *pluginresolve.Resolver
	Sources     *sourceresolve.Resolver
	SourceRoots registrar.SourceRootRegistrar
	Descriptors registrar.DescriptorAttachmentRegistrar
	Log         *logrus.Logger
}

// New wires every collaborator an orchestration run needs.
func New(
	pool *executor.Pool,
	artifacts resolver.Resolver,
	fetcher fetch.Fetcher,
	plugins *pluginresolve.Resolver,
	sources *sourceresolve.Resolver,
	sourceRoots registrar.SourceRootRegistrar,
	descriptors registrar.DescriptorAttachmentRegistrar,
	log *logrus.Logger,
) *Orchestrator {
	if log == nil {
		log = logrus.New()
	}
	return &Orchestrator{
		Pool: pool, Artifacts: artifacts, Fetcher: fetcher, Plugins: plugins,
		Sources: sources, SourceRoots: sourceRoots, Descriptors: descriptors, Log: log,
	}
}

// Generate runs one full generation cycle for req, following spec §4.6's
// linear step sequence. The build-scratch area is named by
// req.ExecutionID, or by a fresh UUID when that is empty, the same
// per-invocation-identity pattern the teacher uses for job/execution
// tracking.
func (o *Orchestrator) Generate(ctx context.Context, req *request.GenerationRequest) request.GenerationOutcome {
	executionID := req.ExecutionID
	if executionID == "" {
		executionID = uuid.NewString()
	}

	outcome, err := o.generate(ctx, req, executionID)
	if err != nil {
		if pf, ok := err.(*errs.ProtocFailure); ok {
			return request.GenerationOutcome{Result: request.ResultProtocFailed, Stderr: pf.Stderr, Err: pf}
		}
		// Resolution/configuration/io errors abort the run without a
		// GenerationResult classification; the host inspects Err. (The
		// missing-sources/targets checks classify their own outcome.)
		return request.GenerationOutcome{Err: err}
	}
	return outcome
}

func (o *Orchestrator) generate(ctx context.Context, req *request.GenerationRequest, executionID string) (request.GenerationOutcome, error) {
	// Verbose (SPEC_FULL.md §4) raises this invocation's log level only;
	// it never mutates global logging state, keeping Generate hermetic.
	if req.Verbose && o.Log.GetLevel() < logrus.DebugLevel {
		previous := o.Log.GetLevel()
		o.Log.SetLevel(logrus.DebugLevel)
		defer o.Log.SetLevel(previous)
	}

	// Step 1: early exit on zero configured inputs.
	if !req.HasAnyInputsConfigured() {
		if req.FailOnMissingSources {
			return request.GenerationOutcome{Result: request.ResultNoSources, Err: &errs.ConfigurationError{Reason: "no source directories, dependencies, or descriptor inputs configured"}}, nil
		}
		return request.GenerationOutcome{Result: request.ResultNothingToDo}, nil
	}

	buildArea := filepath.Join(req.BuildDir, req.PluginID, req.Goal, executionID)
	incrementalDir := filepath.Join(buildArea, "incremental")
	scratchDir := filepath.Join(buildArea, "scratch")

	// Step 2: incremental eligibility (§4.4 step 1) is read directly off
	// req.IncrementalEligible() at the cache-decision step below.

	// Step 3: resolve protoc.
	protocPath, err := o.resolveProtoc(ctx, req, scratchDir)
	if err != nil {
		return request.GenerationOutcome{}, &errs.ResolutionError{What: "protoc distribution", Cause: err}
	}

	// Step 4: resolve plugins.
	resolvedPlugins, err := o.Plugins.ResolveAll(ctx, req.Plugins)
	if err != nil {
		return request.GenerationOutcome{}, err
	}

	// Step 5: resolve project inputs. Only req.SourceRoots/DescriptorSourcePaths
	// are compilable; dependency-resolved listings contribute import paths
	// only and are marked DependencyOnly so they can never become compile
	// targets (spec §5 scenario 5, SPEC_FULL.md §4).
	filter := sourceFilter(req)
	sourceListings, err := o.Sources.ResolveSources(ctx, req.SourceRoots, filter)
	if err != nil {
		return request.GenerationOutcome{}, err
	}
	depSourceListings, err := o.resolveDependencySources(ctx, req, filter)
	if err != nil {
		return request.GenerationOutcome{}, err
	}
	depSourceListings = sourceresolve.MarkDependencyOnly(depSourceListings)
	descListings, err := o.Sources.ResolveDescriptors(ctx, req.DescriptorSourcePaths, filter)
	if err != nil {
		return request.GenerationOutcome{}, err
	}
	depDescListings, err := o.resolveDependencyDescriptors(ctx, req, filter)
	if err != nil {
		return request.GenerationOutcome{}, err
	}

	// FilesToCompile (spec §3) is the subset of *compilable* entries, never
	// dependency-only ones. Every descriptor set (compilable or
	// dependency-only) is registered via --descriptor_set_in so protoc can
	// resolve the virtual proto names the compilable ones contribute.
	allSourceFiles := flattenSourceFiles(sourceListings)
	allDescriptorNames := flattenDescriptorNames(descListings)
	inputDescriptorFiles, err := fsutil.Dedup(append(descriptorFilePaths(descListings), descriptorFilePaths(depDescListings)...))
	if err != nil {
		return request.GenerationOutcome{}, err
	}

	// Step 6: no compilable source/descriptor.
	if len(allSourceFiles) == 0 && len(allDescriptorNames) == 0 {
		if req.FailOnMissingSources {
			return request.GenerationOutcome{Result: request.ResultNoSources, Err: &errs.ConfigurationError{Reason: "no compilable sources or descriptors resolved"}}, nil
		}
		return request.GenerationOutcome{Result: request.ResultNothingToDo}, nil
	}

	// Step 7: no targets.
	if !req.HasAnyTargetsConfigured() {
		if req.FailOnMissingTargets {
			return request.GenerationOutcome{Result: request.ResultNoTargets, Err: &errs.ConfigurationError{Reason: "no languages, plugins, or descriptor output configured"}}, nil
		}
		return request.GenerationOutcome{Result: request.ResultNothingToDo}, nil
	}

	// Step 8: prepare output directories.
	outputRoots := collectOutputRoots(req, resolvedPlugins)
	if req.CleanOutputDirectories && !req.IncrementalEligible() {
		for _, dir := range outputRoots {
			if err := fsutil.RemoveTree(dir); err != nil {
				return request.GenerationOutcome{}, err
			}
		}
	}
	for _, dir := range outputRoots {
		if err := fsutil.EnsureDir(dir); err != nil {
			return request.GenerationOutcome{}, err
		}
	}

	// Step 9: register source roots before compilation.
	if req.RegisterAsCompilationRoot {
		if err := o.SourceRoots.AddCompileSourceRoot(ctx, registrar.RootMain, req.OutputDir); err != nil {
			return request.GenerationOutcome{}, err
		}
	}

	// Step 10: compute FilesToCompile via the cache manager.
	cacheMgr, err := cache.NewManager(o.Pool, incrementalDir, 4096, nil, "", o.Log)
	if err != nil {
		return request.GenerationOutcome{}, err
	}

	binaryPaths := []string{protocPath}
	for _, p := range resolvedPlugins {
		binaryPaths = append(binaryPaths, p.LocalPath)
	}

	var filesToCompile []string
	var decision cache.Decision
	if req.IncrementalEligible() {
		digestInputs := append(append([]string{}, allSourceFiles...), descriptorFilePaths(descListings)...)
		digestInputs = append(digestInputs, binaryPaths...)
		next, err := cacheMgr.DigestInputs(ctx, digestInputs)
		if err != nil {
			return request.GenerationOutcome{}, err
		}
		decision, err = cacheMgr.Decide(next, binaryPaths)
		if err != nil {
			return request.GenerationOutcome{}, err
		}
		if decision.FullRebuild {
			filesToCompile = allSourceFiles
		} else {
			filesToCompile = decision.Delta
		}
	} else {
		filesToCompile = allSourceFiles
	}

	// Step 11: no-op detection.
	if len(filesToCompile) == 0 && len(allDescriptorNames) == 0 {
		if req.IncrementalEligible() {
			if err := cacheMgr.Commit(decision.Next); err != nil {
				return request.GenerationOutcome{}, err
			}
		}
		return request.GenerationOutcome{Result: request.ResultNothingToDo}, nil
	}

	// Step 12: assemble invocation.
	argFileContent, err := buildArgFile(req, resolvedPlugins, filesToCompile, allDescriptorNames, inputDescriptorFiles, sourceListings, depSourceListings)
	if err != nil {
		return request.GenerationOutcome{}, err
	}
	argFilePath := filepath.Join(buildArea, "protoc.args")
	if err := fsutil.EnsureDir(buildArea); err != nil {
		return request.GenerationOutcome{}, err
	}
	if err := writeFile(argFilePath, argFileContent); err != nil {
		return request.GenerationOutcome{}, err
	}

	// Step 13: spawn protoc.
	sanctionedDirs := []string{filepath.Dir(protocPath)}
	for _, p := range resolvedPlugins {
		sanctionedDirs = append(sanctionedDirs, filepath.Dir(p.LocalPath))
	}

	// Dry-run (SPEC_FULL.md §4): stop after assembling the invocation,
	// never spawning protoc or rotating the cache.
	if req.DryRun {
		o.Log.Infof("dry-run: would invoke %s @%s", protocPath, argFilePath)
		o.Log.Debug(argFileContent)
		return request.GenerationOutcome{Result: request.ResultProtocSucceeded}, nil
	}

	procResult, err := protocexec.Run(ctx, protocexec.Invocation{
		ProtocPath:         protocPath,
		ArgumentFilePath:   argFilePath,
		WorkingDirectory:   req.BuildDir,
		Environment:        req.Environment,
		SanctionedPathDirs: sanctionedDirs,
	})
	if err != nil {
		if _, ok := err.(*errs.ProtocFailure); ok {
			// Step 14: failure - cache not committed.
			return request.GenerationOutcome{Result: request.ResultProtocFailed, Stderr: procResult.Stderr}, err
		}
		return request.GenerationOutcome{}, err
	}

	// Step 15: success path.
	if req.IncrementalEligible() {
		if err := cacheMgr.Commit(decision.Next); err != nil {
			return request.GenerationOutcome{}, err
		}
	}

	if req.OutputDescriptorFile != "" {
		if err := o.Descriptors.Attach(ctx, req.OutputDescriptorFile, "", ""); err != nil {
			return request.GenerationOutcome{}, err
		}
	}

	if req.EmbedSourcesInOutput {
		if err := o.SourceRoots.EmbedListing(ctx, registrar.RootMain, allSourceFiles); err != nil {
			return request.GenerationOutcome{}, err
		}
	}

	return request.GenerationOutcome{Result: request.ResultProtocSucceeded}, nil
}

func (o *Orchestrator) resolveProtoc(ctx context.Context, req *request.GenerationRequest, scratchDir string) (string, error) {
	dist := req.Protoc
	switch {
	case dist.SystemPath != "":
		return dist.SystemPath, nil
	case dist.Coordinate != nil:
		path, err := o.Artifacts.ResolveArtifact(ctx, *dist.Coordinate)
		if err != nil {
			return "", err
		}
		return path, fsutil.SetExecutable(path)
	case dist.URI != "":
		var expected *digest.Digest
		if dist.ExpectedHash != "" {
			d, err := digest.ParseDigestString(dist.ExpectedHash)
			if err != nil {
				return "", &errs.ConfigurationError{Reason: "invalid protoc expected hash: " + err.Error()}
			}
			expected = &d
		}
		path, found, err := o.Fetcher.Fetch(ctx, dist.URI, "", expected)
		if err != nil {
			return "", err
		}
		if !found {
			return "", fmt.Errorf("protoc distribution not found at %s", dist.URI)
		}
		return path, fsutil.SetExecutable(path)
	default:
		return "", &errs.ConfigurationError{Reason: "no protoc distribution configured"}
	}
}

func (o *Orchestrator) resolveDependencySources(ctx context.Context, req *request.GenerationRequest, filter sourceresolve.GlobFilter) ([]sourceresolve.SourceListing, error) {
	if len(req.SourceDependencies) == 0 {
		return nil, nil
	}
	paths, err := o.Artifacts.ResolveDependencies(ctx, req.SourceDependencies, req.DependencyDepth, req.Scopes, !req.IgnoreProjectDependencies, req.FailOnInvalidDependencies)
	if err != nil {
		return nil, err
	}
	return o.Sources.ResolveSources(ctx, paths, filter)
}

func (o *Orchestrator) resolveDependencyDescriptors(ctx context.Context, req *request.GenerationRequest, filter sourceresolve.GlobFilter) ([]sourceresolve.DescriptorListing, error) {
	if len(req.DescriptorDependencies) == 0 {
		return nil, nil
	}
	paths, err := o.Artifacts.ResolveDependencies(ctx, req.DescriptorDependencies, req.DependencyDepth, req.Scopes, !req.IgnoreProjectDependencies, req.FailOnInvalidDependencies)
	if err != nil {
		return nil, err
	}
	return o.Sources.ResolveDescriptors(ctx, paths, filter)
}

func sourceFilter(req *request.GenerationRequest) sourceresolve.GlobFilter {
	f := sourceresolve.DefaultGlobFilter()
	f.Includes = req.IncludePatterns
	f.Excludes = req.ExcludePatterns
	return f
}

func flattenSourceFiles(listingSets ...[]sourceresolve.SourceListing) []string {
	var out []string
	for _, listings := range listingSets {
		for _, l := range listings {
			out = append(out, l.Files...)
		}
	}
	return out
}

func flattenDescriptorNames(listingSets ...[]sourceresolve.DescriptorListing) []string {
	var out []string
	for _, listings := range listingSets {
		for _, l := range listings {
			out = append(out, l.ProtoNames...)
		}
	}
	return out
}

func collectOutputRoots(req *request.GenerationRequest, plugins []pluginresolve.ResolvedProtocPlugin) []string {
	roots := make(map[string]struct{})
	if req.OutputDir != "" {
		roots[req.OutputDir] = struct{}{}
	}
	for _, p := range plugins {
		if p.OutputDirectory != "" {
			roots[p.OutputDirectory] = struct{}{}
		}
	}
	if req.OutputDescriptorFile != "" {
		roots[filepath.Dir(req.OutputDescriptorFile)] = struct{}{}
	}
	out := make([]string, 0, len(roots))
	for r := range roots {
		out = append(out, r)
	}
	return out
}

func descriptorFilePaths(listings []sourceresolve.DescriptorListing) []string {
	out := make([]string, 0, len(listings))
	for _, l := range listings {
		out = append(out, l.DescriptorFilePath)
	}
	return out
}

func buildArgFile(
	req *request.GenerationRequest,
	plugins []pluginresolve.ResolvedProtocPlugin,
	sourceFiles []string,
	descriptorNames []string,
	inputDescriptorFiles []string,
	sourceListings, depSourceListings []sourceresolve.SourceListing,
) (string, error) {
	var targets []argsfile.Target

	for _, lang := range req.Languages {
		targets = append(targets, argsfile.Target{
			Kind: argsfile.TargetLanguage, Language: lang, OutputDir: req.OutputDir,
			Lite: req.LiteMode, StableString: string(lang),
		})
	}
	for _, p := range plugins {
		targets = append(targets, argsfile.Target{
			Kind: argsfile.TargetPlugin, PluginID: p.ID, PluginLocalPath: p.LocalPath,
			OutputDir: p.OutputDirectory, PluginOptions: p.Options, Order: p.Order, StableString: p.ID,
		})
	}
	if req.OutputDescriptorFile != "" {
		targets = append(targets, argsfile.Target{
			Kind: argsfile.TargetDescriptorFile, DescriptorOutFile: req.OutputDescriptorFile,
			IncludeImports: req.OutputDescriptorIncludeImports, IncludeSourceInfo: req.OutputDescriptorIncludeSource,
			RetainOptions: req.OutputDescriptorRetainOptions, StableString: "descriptor-set",
		})
	}

	importRoots, err := fsutil.Dedup(append(append(append([]string{}, rootsOf(sourceListings)...), rootsOf(depSourceListings)...), req.ImportRoots...))
	if err != nil {
		return "", err
	}

	// Compilable descriptor virtual proto names are compiled alongside raw
	// source paths once their owning set is registered via
	// --descriptor_set_in (inputDescriptorFiles, assembled by the caller).
	allCompileTargets := append(append([]string{}, sourceFiles...), descriptorNames...)

	b := argsfile.Builder{
		FatalWarnings:        req.FatalWarnings,
		Targets:              targets,
		SourcePaths:          allCompileTargets,
		InputDescriptorFiles: inputDescriptorFiles,
		ImportRoots:          importRoots,
	}
	content, err := b.Build()
	if err != nil {
		return "", err
	}
	if len(req.ExtraArgs) > 0 {
		content += fmtJoinLines(req.ExtraArgs)
	}
	return content, nil
}

func rootsOf(listings []sourceresolve.SourceListing) []string {
	out := make([]string, 0, len(listings))
	for _, l := range listings {
		out = append(out, l.SourceRoot)
	}
	return out
}

func fmtJoinLines(lines []string) string {
	out := ""
	for _, l := range lines {
		out += l + "\n"
	}
	return out
}

func writeFile(path, content string) error {
	return fsutil.WriteTextFile(path, content)
}
