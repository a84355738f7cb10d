// Package fsutil provides the filesystem primitives shared by the source
// resolver and orchestrator: path normalization, extension extraction,
// archive-as-virtual-filesystem traversal, tree copying, and POSIX
// executable-bit handling (spec §4.3, §4.5, §4.6).
package fsutil

import (
	"os"
	"path/filepath"
	"strings"
)

// Normalize returns the absolute, cleaned form of p. Every path that ends
// up in a SourceListing, DescriptorListing, or ProtocInvocation must equal
// Normalize(path) (spec §8 "Path normalization").
func Normalize(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	return filepath.Clean(abs), nil
}

// Extension returns the lowercase extension of p, including the leading
// dot, or "" if there is none.
func Extension(p string) string {
	return strings.ToLower(filepath.Ext(p))
}

// IsRegularFile reports whether path exists and names a regular file.
func IsRegularFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// IsDir reports whether path exists and names a directory.
func IsDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

// SetExecutable adds the POSIX executable bits (u+x,g+x,o+x, ORed into the
// existing permission bits) on path. On Windows, where executability is
// determined by PATHEXT rather than a permission bit, the chmod has no
// practical effect.
func SetExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	mode := info.Mode().Perm() | 0o111
	return os.Chmod(path, mode)
}

// Dedup removes duplicate paths from an ordered list, preserving the
// first occurrence's position (spec §4.3 step 1, §8 "Deduplication").
// Inputs are normalized before comparison so that two aliases of the same
// path collapse to one entry.
func Dedup(paths []string) ([]string, error) {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		norm, err := Normalize(p)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}
		out = append(out, norm)
	}
	return out, nil
}
