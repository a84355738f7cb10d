// Package sourceresolve implements the source resolver (C8): parallel
// directory/archive/descriptor walking that produces the listings fed to
// the incremental cache and the argument-file builder (spec §4.3).
package sourceresolve

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/executor"
	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/fsutil"
	"github.com/jhump/protoreflect/desc"
	"github.com/sirupsen/logrus"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"
)

// SourceListing pairs a source root with every accepted file beneath it.
// DependencyOnly marks a listing resolved from an import-only root (a
// dependency coordinate or explicit import root rather than a configured
// source root): its files contribute a --proto_path import root but must
// never appear in FilesToCompile (spec §5 scenario 5, SPEC_FULL.md §4).
type SourceListing struct {
	SourceRoot     string
	Files          []string
	DependencyOnly bool
}

// MarkDependencyOnly returns a copy of listings with DependencyOnly set,
// for callers that resolve the same roots in both a compile and an
// import-only capacity (the orchestrator resolving source dependencies).
func MarkDependencyOnly(listings []SourceListing) []SourceListing {
	out := make([]SourceListing, len(listings))
	for i, l := range listings {
		l.DependencyOnly = true
		out[i] = l
	}
	return out
}

// DescriptorListing pairs a descriptor file with the virtual proto names it
// declares.
type DescriptorListing struct {
	DescriptorFilePath string
	ProtoNames         []string
}

// GlobFilter implements the SourceGlobFilter rule of spec §4.3: default
// extension matching, narrowed by include patterns and widened exclusion
// by exclude patterns.
type GlobFilter struct {
	Extensions []string // case-insensitive, default {".proto"}
	Includes   []string
	Excludes   []string
}

// DefaultGlobFilter matches .proto files with no include/exclude narrowing.
func DefaultGlobFilter() GlobFilter {
	return GlobFilter{Extensions: []string{".proto"}}
}

// Matches reports whether file (relative to root) passes this filter.
func (f GlobFilter) Matches(root, file string) bool {
	ext := strings.ToLower(filepath.Ext(file))
	extensionOK := len(f.Extensions) == 0
	for _, e := range f.Extensions {
		if strings.EqualFold(e, ext) {
			extensionOK = true
			break
		}
	}
	if !extensionOK {
		return false
	}

	rel, err := filepath.Rel(root, file)
	if err != nil {
		rel = file
	}
	rel = filepath.ToSlash(rel)

	if len(f.Includes) > 0 {
		matched := false
		for _, pattern := range f.Includes {
			if ok, _ := filepath.Match(pattern, rel); ok {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	for _, pattern := range f.Excludes {
		if ok, _ := filepath.Match(pattern, rel); ok {
			return false
		}
	}
	return true
}

// Resolver walks source roots and descriptor files on the shared executor.
type Resolver struct {
	Pool        *executor.Pool
	ScratchRoot string
	Log         *logrus.Logger
}

// New constructs a Resolver. pool is the shared bounded executor (C4);
// scratchRoot is the archive-extraction scratch directory root.
func New(pool *executor.Pool, scratchRoot string, log *logrus.Logger) *Resolver {
	return &Resolver{Pool: pool, ScratchRoot: scratchRoot, Log: log}
}

// ResolveSources implements spec §4.3 steps 1-7: normalize and dedup every
// root, fan out over the executor, and collect one SourceListing per root
// that actually produced files.
func (r *Resolver) ResolveSources(ctx context.Context, rootPaths []string, filter GlobFilter) ([]SourceListing, error) {
	normalized, err := fsutil.Dedup(rootPaths)
	if err != nil {
		return nil, err
	}

	var handles []*executor.Handle
	for _, root := range normalized {
		root := root
		handles = append(handles, r.Pool.Submit(func(ctx context.Context) (any, error) {
			return r.resolveOneRoot(root, filter)
		}))
	}

	results, err := executor.AwaitAll(handles)
	if err != nil {
		return nil, err
	}

	listings := make([]SourceListing, 0, len(results))
	for _, res := range results {
		listing := res.(SourceListing)
		if len(listing.Files) > 0 {
			listings = append(listings, listing)
		}
	}
	return listings, nil
}

func (r *Resolver) resolveOneRoot(root string, filter GlobFilter) (SourceListing, error) {
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			if r.Log != nil {
				r.Log.Debugf("source root %s does not exist, skipping", root)
			}
			return SourceListing{SourceRoot: root}, nil
		}
		return SourceListing{}, err
	}

	if info.IsDir() {
		files, err := r.walkDir(root, root, filter)
		if err != nil {
			return SourceListing{}, err
		}
		return SourceListing{SourceRoot: root, Files: files}, nil
	}

	return r.resolveRegularFile(root, filter)
}

func (r *Resolver) walkDir(originalRoot, dir string, filter GlobFilter) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if filter.Matches(originalRoot, path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func (r *Resolver) resolveRegularFile(path string, filter GlobFilter) (SourceListing, error) {
	ext := fsutil.Extension(path)

	switch {
	case fsutil.IsArchive(path):
		root, _, err := fsutil.ExtractArchive(path, r.ScratchRoot, func(relPath string) bool {
			return filter.Matches("", relPath)
		})
		if err != nil {
			return SourceListing{}, err
		}
		files, err := r.walkDir(root, root, filter)
		if err != nil {
			return SourceListing{}, err
		}
		return SourceListing{SourceRoot: root, Files: files}, nil

	case ext == ".pom" || ext == ".xml":
		if r.Log != nil {
			r.Log.Debugf("ignoring project descriptor %s", path)
		}
		return SourceListing{SourceRoot: path}, nil

	default:
		if filter.Matches(filepath.Dir(path), path) {
			return SourceListing{SourceRoot: filepath.Dir(path), Files: []string{path}}, nil
		}
		if r.Log != nil {
			r.Log.Warnf("ignoring unrecognized source input %s", path)
		}
		return SourceListing{SourceRoot: path}, nil
	}
}

// ResolveDescriptors implements spec §4.3 step 8: parse each path as a
// FileDescriptorSet and emit its declared proto names, filtered.
func (r *Resolver) ResolveDescriptors(ctx context.Context, paths []string, filter GlobFilter) ([]DescriptorListing, error) {
	normalized, err := fsutil.Dedup(paths)
	if err != nil {
		return nil, err
	}

	var handles []*executor.Handle
	for _, path := range normalized {
		path := path
		handles = append(handles, r.Pool.Submit(func(ctx context.Context) (any, error) {
			return r.resolveOneDescriptor(path, filter)
		}))
	}

	results, err := executor.AwaitAll(handles)
	if err != nil {
		return nil, err
	}

	listings := make([]DescriptorListing, 0, len(results))
	for _, res := range results {
		listing := res.(DescriptorListing)
		if len(listing.ProtoNames) > 0 {
			listings = append(listings, listing)
		}
	}
	return listings, nil
}

func (r *Resolver) resolveOneDescriptor(path string, filter GlobFilter) (DescriptorListing, error) {
	fds, err := parseDescriptorSet(path)
	if err != nil {
		return DescriptorListing{}, err
	}

	var names []string
	for _, fd := range fds {
		name := fd.GetName()
		if filter.Matches("", name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return DescriptorListing{DescriptorFilePath: path, ProtoNames: names}, nil
}

// parseDescriptorSet reads path as a compiled binary FileDescriptorSet (the
// output of an earlier `protoc --descriptor_set_out` run or a dependency's
// attached descriptor artifact) and links it into queryable descriptors.
func parseDescriptorSet(path string) ([]*desc.FileDescriptor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var fds descriptorpb.FileDescriptorSet
	if err := proto.Unmarshal(raw, &fds); err != nil {
		return nil, err
	}

	byName, err := desc.CreateFileDescriptorsFromSet(&fds)
	if err != nil {
		return nil, err
	}

	out := make([]*desc.FileDescriptor, 0, len(byName))
	for _, fd := range byName {
		out = append(out, fd)
	}
	return out, nil
}
