// Package pathresolve locates a named executable on the host search path
// (spec §4.2), applying OS-specific matching rules: POSIX exact-name plus
// execute-permission checks, or Windows case-insensitive base-name plus
// PATHEXT matching.
package pathresolve

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/errs"
	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/platform"
	"github.com/sirupsen/logrus"
)

// Resolver searches a Probe's PATH for named executables. Non-recursive:
// it never descends into subdirectories, and the first match wins.
type Resolver struct {
	probe *platform.Probe
	log   *logrus.Logger
}

// New creates a Resolver bound to the given platform probe.
func New(probe *platform.Probe, log *logrus.Logger) *Resolver {
	if log == nil {
		log = logrus.New()
	}
	return &Resolver{probe: probe, log: log}
}

// Resolve searches PATH in declared order for an executable named name,
// returning its absolute path or "" if not found. Access-denied errors on
// individual directories are warned and skipped; any other I/O error
// aborts with a typed *errs.IoError.
func (r *Resolver) Resolve(name string) (string, error) {
	for _, dir := range r.probe.Path() {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsPermission(err) {
				r.log.Warnf("permission denied listing PATH entry %s, skipping", dir)
				continue
			}
			if os.IsNotExist(err) {
				continue
			}
			return "", &errs.IoError{Path: dir, Op: "readdir", Cause: err}
		}

		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			candidate := filepath.Join(dir, entry.Name())
			if r.probe.IsWindows() {
				if r.matchesWindows(entry.Name(), name) {
					return candidate, nil
				}
				continue
			}
			if r.matchesPosix(entry.Name(), name, candidate) {
				return candidate, nil
			}
		}
	}
	return "", nil
}

func (r *Resolver) matchesPosix(entryName, name, fullPath string) bool {
	if entryName != name {
		return false
	}
	info, err := os.Stat(fullPath) // follows symlinks, per spec: "symbolic links accepted"
	if err != nil {
		return false
	}
	if !info.Mode().IsRegular() {
		return false
	}
	return info.Mode().Perm()&0o111 != 0
}

func (r *Resolver) matchesWindows(entryName, name string) bool {
	ext := filepath.Ext(entryName)
	if ext == "" {
		return false
	}
	base := strings.TrimSuffix(entryName, ext)
	if !strings.EqualFold(base, name) {
		return false
	}
	for _, pathExt := range r.probe.PathExtensions() {
		if strings.EqualFold(pathExt, ext) {
			return true
		}
	}
	return false
}
