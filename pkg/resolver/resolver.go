// Package resolver implements the artifact resolver collaborator contract
// (spec §6 "Artifact resolver"): turning Maven-style coordinates into
// absolute local file paths, with an S3-backed cache tier for coordinates
// that aren't already present in a local repository.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/errs"
	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/request"
	"github.com/sirupsen/logrus"
)

// ErrNotFound is returned when a coordinate cannot be located in any
// configured repository.
var ErrNotFound = errors.New("resolver: artifact not found")

// Resolver resolves Maven-style coordinates to local file paths, as
// required by C6.
type Resolver interface {
	ResolveArtifact(ctx context.Context, coordinate request.ArtifactCoordinate) (string, error)
	ResolveDependencies(ctx context.Context, coordinates []request.ArtifactCoordinate, depth request.DependencyDepth, scopes []request.DependencyScope, includeProjectDependencies, failOnInvalid bool) ([]string, error)
}

// DependencyGraph supplies the transitive edges for a coordinate when
// DependencyDepth is DepthTransitive. A project's own build model is the
// natural implementer; callers resolving a fixed bill of materials can use
// StaticGraph.
type DependencyGraph interface {
	TransitiveDependencies(coordinate request.ArtifactCoordinate) []request.ArtifactCoordinate
}

// StaticGraph is a DependencyGraph backed by a fixed edge map, useful in
// tests and for pre-flattened dependency sets.
type StaticGraph map[string][]request.ArtifactCoordinate

func (g StaticGraph) TransitiveDependencies(c request.ArtifactCoordinate) []request.ArtifactCoordinate {
	return g[c.String()]
}

// LocalRepository looks artifacts up under a directory laid out the way a
// Maven local repository is: <groupId-with-slashes>/<artifactId>/<version>/<artifactId>-<version>[-<classifier>].<type>
type LocalRepository struct {
	Root string
	Log  *logrus.Logger
}

// NewLocalRepository constructs a repository rooted at root.
func NewLocalRepository(root string, log *logrus.Logger) *LocalRepository {
	return &LocalRepository{Root: root, Log: log}
}

func (r *LocalRepository) pathFor(c request.ArtifactCoordinate) string {
	artifactType := c.Type
	if artifactType == "" {
		artifactType = "jar"
	}
	fileName := c.ArtifactID + "-" + c.Version
	if c.Classifier != "" {
		fileName += "-" + c.Classifier
	}
	fileName += "." + artifactType

	groupPath := strings.ReplaceAll(c.GroupID, ".", string(filepath.Separator))
	return filepath.Join(r.Root, groupPath, c.ArtifactID, c.Version, fileName)
}

// Layered composes a LocalRepository lookup with a fallback fetcher (the S3
// tier) for coordinates that are absent locally, mirroring the teacher's
// cache-then-origin pattern.
type Layered struct {
	Local  *LocalRepository
	Remote RemoteStore
	Graph  DependencyGraph
}

// RemoteStore is the subset of the artifact-store contract the resolver
// needs: retrieve a coordinate's backing artifact and write it to destPath
// in the local repository layout.
type RemoteStore interface {
	Materialize(ctx context.Context, coordinate request.ArtifactCoordinate, destPath string) error
}

// NewLayered wires a local repository and remote store into a Resolver.
// graph may be nil, in which case DepthTransitive behaves like DepthDirect.
func NewLayered(local *LocalRepository, remote RemoteStore, graph DependencyGraph) *Layered {
	return &Layered{Local: local, Remote: remote, Graph: graph}
}

func (l *Layered) ResolveArtifact(ctx context.Context, c request.ArtifactCoordinate) (string, error) {
	path := l.Local.pathFor(c)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	} else if !os.IsNotExist(err) {
		return "", &errs.IoError{Path: path, Op: "stat", Cause: err}
	}

	if l.Remote == nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, c.String())
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", &errs.IoError{Path: path, Op: "mkdir", Cause: err}
	}
	if err := l.Remote.Materialize(ctx, c, path); err != nil {
		return "", &errs.ResolutionError{What: c.String(), Cause: err}
	}
	return path, nil
}

func (l *Layered) ResolveDependencies(
	ctx context.Context,
	coordinates []request.ArtifactCoordinate,
	depth request.DependencyDepth,
	scopes []request.DependencyScope,
	includeProjectDependencies bool,
	failOnInvalid bool,
) ([]string, error) {
	scopeSet := make(map[request.DependencyScope]struct{}, len(scopes))
	for _, s := range scopes {
		scopeSet[s] = struct{}{}
	}

	seen := make(map[string]struct{})
	var order []request.ArtifactCoordinate
	var enqueue func(c request.ArtifactCoordinate)
	enqueue = func(c request.ArtifactCoordinate) {
		key := c.String()
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		order = append(order, c)
		if depth == request.DepthTransitive && l.Graph != nil {
			for _, child := range l.Graph.TransitiveDependencies(c) {
				enqueue(child)
			}
		}
	}
	for _, c := range coordinates {
		enqueue(c)
	}

	paths := make([]string, 0, len(order))
	var failures []error
	for _, c := range order {
		path, err := l.ResolveArtifact(ctx, c)
		if err != nil {
			if failOnInvalid {
				failures = append(failures, fmt.Errorf("%s: %w", c.String(), err))
				continue
			}
			continue
		}
		paths = append(paths, path)
	}

	if len(failures) > 0 {
		sort.Slice(failures, func(i, j int) bool { return failures[i].Error() < failures[j].Error() })
		return nil, errs.NewMultipleFailures(failures)
	}
	return paths, nil
}
