// Command protocgen is a thin CLI front end over pkg/orchestrator. A real
// build-tool integration (a Maven/Gradle/Bazel plugin) drives Generate
// directly; this binary exists only so the module is runnable stand-alone
// for manual testing and the watch-mode supplement (SPEC_FULL.md §4). The
// CLI surface itself is out of scope (spec §1 Non-goals), so flag parsing
// stays minimal: stdlib flag, no subcommands, grounded on
// cmd/spoke-cli/main.go's flag.Parse-then-dispatch shape.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/executor"
	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/fetch"
	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/orchestrator"
	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/pathresolve"
	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/platform"
	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/pluginresolve"
	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/registrar"
	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/request"
	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/resolver"
	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/sourceresolve"
	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/watch"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
)

func main() {
	var (
		sourceDir   = flag.String("source", ".", "directory of .proto sources to compile")
		outputDir   = flag.String("output", "./generated", "directory to write generated code into")
		repoDir     = flag.String("repo", filepath.Join(os.TempDir(), "protocgen", "repository"), "local artifact repository root")
		scratchDir  = flag.String("scratch", filepath.Join(os.TempDir(), "protocgen", "scratch"), "scratch directory for downloads/extraction")
		buildDir    = flag.String("build", filepath.Join(os.TempDir(), "protocgen", "build"), "incremental build-state directory")
		languages   = flag.String("languages", "java", "comma-separated target languages")
		incremental = flag.Bool("incremental", true, "enable incremental compilation")
		dryRun      = flag.Bool("dry-run", false, "assemble the protoc invocation but never run it")
		verbose     = flag.Bool("verbose", false, "enable debug logging for this run")
		watchMode   = flag.Bool("watch", false, "keep running, regenerating on .proto changes")
		s3Bucket    = flag.String("s3-bucket", "", "S3 bucket backing the artifact repository and URI fetcher (empty disables S3)")
		s3Prefix    = flag.String("s3-prefix", "", "key prefix under -s3-bucket for resolved artifacts")
		configFile  = flag.String("config", "", "optional YAML goal-configuration file overlaying the flag defaults")
	)
	flag.Parse()

	log := logrus.New()
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	req := &request.GenerationRequest{
		SourceRoots:            []string{*sourceDir},
		Languages:              parseLanguages(*languages),
		Protoc:                 request.ProtocDistribution{SystemPath: "protoc"},
		OutputDir:              *outputDir,
		BuildDir:               *buildDir,
		PluginID:               "protocgen",
		Goal:                   "generate",
		IncrementalCompilation: *incremental,
		FailOnMissingSources:   true,
		FailOnMissingTargets:   true,
		DryRun:                 *dryRun,
		Verbose:                *verbose,
	}

	if *configFile != "" {
		fileCfg, err := request.LoadFileConfig(*configFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "protocgen: loading config:", err)
			os.Exit(1)
		}
		req = fileCfg.Merge(*req)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool := executor.New(ctx, 0)
	defer pool.Shutdown()

	probe := platform.NewProbe(platform.OSEnvironmentProvider{}, log)
	pathResolver := pathresolve.New(probe, log)
	local := resolver.NewLocalRepository(*repoDir, log)

	var remote resolver.RemoteStore
	httpFetcher := fetch.NewHTTPFetcher(nil, *scratchDir, log)
	var fetcher fetch.Fetcher = httpFetcher
	if *s3Bucket != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, "protocgen: loading aws config:", err)
			os.Exit(1)
		}
		s3Client := s3.NewFromConfig(awsCfg)
		remote = resolver.NewS3Store(s3Client, *s3Bucket, *s3Prefix)
		fetcher = fetch.NewS3Fetcher(s3Client, *scratchDir, httpFetcher)
	}
	artifacts := resolver.NewLayered(local, remote, nil)
	plugins := pluginresolve.New(artifacts, fetcher, pathResolver, probe, pluginresolve.ScriptBootstrapper{}, *scratchDir)
	sources := sourceresolve.New(pool, *scratchDir, log)

	orc := orchestrator.New(pool, artifacts, fetcher, plugins, sources,
		registrar.NoopSourceRootRegistrar{}, registrar.NoopDescriptorAttachmentRegistrar{}, log)

	if *watchMode {
		w := watch.NewWatcher(orc, req, log)
		if err := w.Run(ctx); err != nil {
			fmt.Fprintln(os.Stderr, "protocgen:", err)
			os.Exit(1)
		}
		return
	}

	outcome := orc.Generate(ctx, req)
	if outcome.Stderr != "" {
		fmt.Fprintln(os.Stderr, outcome.Stderr)
	}
	if !outcome.Result.OK() {
		if outcome.Err != nil {
			fmt.Fprintln(os.Stderr, "protocgen:", outcome.Err)
		}
		os.Exit(1)
	}
}

func parseLanguages(raw string) []request.Language {
	parts := strings.Split(raw, ",")
	out := make([]request.Language, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, request.Language(p))
		}
	}
	return out
}
