package fsutil

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/digest"
	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/errs"
)

// ArchiveExtensions are the file extensions treated as a virtual
// filesystem to descend into (spec §4.3 step 5), matched case-sensitively
// per the host zip-filesystem contract.
var ArchiveExtensions = map[string]struct{}{
	".jar": {},
	".zip": {},
}

// IsArchive reports whether path's extension names a supported archive,
// matched case-sensitively (spec §4.3 step 5).
func IsArchive(path string) bool {
	_, ok := ArchiveExtensions[filepath.Ext(path)]
	return ok
}

// ExtractArchive opens archivePath as a zip/jar virtual filesystem and
// copies every entry accepted by accept into a scratch directory isolated
// by a digest of the archive's file:// URI (its canonical path):
//
//	scratchRoot/archives/<basename>-<digest>/<entry path>
//
// so that two archives with colliding internal paths never collide on
// disk (spec §4.3 step 5, §5 "Shared resources"). Archive-internal entry
// names always use forward slashes per the zip spec; they are rejoined
// with filepath.Join so the result is valid on the host OS (spec §9 open
// question 1). Returns the scratch root directory and the relative paths
// of every extracted, accepted entry.
func ExtractArchive(archivePath, scratchRoot string, accept func(relPath string) bool) (root string, extracted []string, err error) {
	canonical, err := Normalize(archivePath)
	if err != nil {
		return "", nil, err
	}
	d := digest.OfBytes([]byte("file://" + canonical))
	base := strings.TrimSuffix(filepath.Base(canonical), filepath.Ext(canonical))
	root = filepath.Join(scratchRoot, "archives", base+"-"+d.Hex())

	r, err := zip.OpenReader(canonical)
	if err != nil {
		return "", nil, &errs.IoError{Path: canonical, Op: "open-archive", Cause: err}
	}
	defer r.Close()

	for _, f := range r.File {
		relPath := filepath.FromSlash(f.Name)
		if f.FileInfo().IsDir() {
			continue
		}
		if !accept(relPath) {
			continue
		}

		destPath := filepath.Join(root, relPath)
		if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			return "", nil, &errs.IoError{Path: destPath, Op: "mkdir", Cause: err}
		}

		if err := copyZipEntry(f, destPath); err != nil {
			return "", nil, err
		}
		extracted = append(extracted, relPath)
	}

	return root, extracted, nil
}

func copyZipEntry(f *zip.File, destPath string) error {
	src, err := f.Open()
	if err != nil {
		return &errs.IoError{Path: f.Name, Op: "open-entry", Cause: err}
	}
	defer src.Close()

	dst, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return &errs.IoError{Path: destPath, Op: "create", Cause: err}
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return &errs.IoError{Path: destPath, Op: "write", Cause: err}
	}
	return nil
}
