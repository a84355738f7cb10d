// Package cache implements the incremental cache manager (C10): the
// previous/next fingerprint files that decide whether a generation run is
// a full rebuild, a differential rebuild, or a no-op (spec §4.4).
package cache

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/digest"
	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/errs"
)

// Fingerprints is an ordered mapping from normalized input path to content
// digest (spec §3 "IncrementalCacheEntry").
type Fingerprints struct {
	order   []string
	entries map[string]digest.Digest
}

// NewFingerprints builds an empty fingerprint set.
func NewFingerprints() *Fingerprints {
	return &Fingerprints{entries: make(map[string]digest.Digest)}
}

// Set records path's digest, preserving first-insertion order.
func (f *Fingerprints) Set(path string, d digest.Digest) {
	if _, exists := f.entries[path]; !exists {
		f.order = append(f.order, path)
	}
	f.entries[path] = d
}

// Get returns path's digest and whether it was present.
func (f *Fingerprints) Get(path string) (digest.Digest, bool) {
	d, ok := f.entries[path]
	return d, ok
}

// Paths returns every recorded path in insertion order.
func (f *Fingerprints) Paths() []string {
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

// Len reports the number of recorded entries.
func (f *Fingerprints) Len() int { return len(f.entries) }

// WriteFile persists f as the line-oriented "<path>\t<algorithm>:<base64>"
// format spec §4.4 names, writing through a temp file and renaming so a
// crash mid-write never leaves a half-written cache behind.
func (f *Fingerprints) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &errs.IoError{Path: path, Op: "mkdir", Cause: err}
	}

	tmp := path + ".tmp"
	file, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return &errs.IoError{Path: tmp, Op: "write", Cause: err}
	}

	w := bufio.NewWriter(file)
	for _, p := range f.order {
		if _, err := fmt.Fprintf(w, "%s\t%s\n", p, f.entries[p].String()); err != nil {
			file.Close()
			return &errs.IoError{Path: tmp, Op: "write", Cause: err}
		}
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return &errs.IoError{Path: tmp, Op: "write", Cause: err}
	}
	if err := file.Close(); err != nil {
		return &errs.IoError{Path: tmp, Op: "write", Cause: err}
	}

	if err := os.Rename(tmp, path); err != nil {
		return &errs.IoError{Path: path, Op: "rename", Cause: err}
	}
	return nil
}

// ReadFile loads a Fingerprints set from path. A missing file is treated
// as an empty, cold cache (not an error). A malformed line is reported as
// a *errs.CorruptCacheWarning — callers should recover by treating the
// whole cache as cold.
func ReadFile(path string) (*Fingerprints, error) {
	f := NewFingerprints()

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return f, nil
		}
		return nil, &errs.IoError{Path: path, Op: "read", Cause: err}
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" {
			continue
		}
		tabIdx := strings.IndexByte(line, '\t')
		if tabIdx < 0 {
			return nil, &errs.CorruptCacheWarning{Path: path, Cause: fmt.Errorf("line %d: missing tab separator", lineNo)}
		}
		p := line[:tabIdx]
		d, err := digest.ParseDigestString(line[tabIdx+1:])
		if err != nil {
			return nil, &errs.CorruptCacheWarning{Path: path, Cause: fmt.Errorf("line %d: %w", lineNo, err)}
		}
		f.Set(p, d)
	}
	if err := scanner.Err(); err != nil {
		return nil, &errs.IoError{Path: path, Op: "read", Cause: err}
	}
	return f, nil
}

// Delta computes the differential rebuild set per spec §4.4 step 4: paths
// present in next but absent or changed relative to previous. A binary
// change (any of binaryPaths differing between previous and next) forces
// a full rebuild, signaled by fullRebuild=true with delta left empty.
func Delta(previous, next *Fingerprints, binaryPaths []string) (delta []string, fullRebuild bool) {
	for _, bp := range binaryPaths {
		prevDigest, prevOK := previous.Get(bp)
		nextDigest, nextOK := next.Get(bp)
		if prevOK != nextOK || (prevOK && nextOK && !prevDigest.Equal(nextDigest)) {
			return nil, true
		}
	}

	for _, p := range next.Paths() {
		isBinary := false
		for _, bp := range binaryPaths {
			if bp == p {
				isBinary = true
				break
			}
		}
		if isBinary {
			continue
		}
		prevDigest, ok := previous.Get(p)
		nextDigest, _ := next.Get(p)
		if !ok || !prevDigest.Equal(nextDigest) {
			delta = append(delta, p)
		}
	}
	sort.Strings(delta)
	return delta, false
}
