package fsutil

import (
	"io"
	"os"
	"path/filepath"

	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/errs"
)

// CopyTree copies every regular file under srcRoot into a mirrored layout
// under destRoot, creating directories as needed. Nothing else in this
// module calls it; embed-sources goes through the registrar instead.
func CopyTree(srcRoot, destRoot string) error {
	return filepath.Walk(srcRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return &errs.IoError{Path: path, Op: "walk", Cause: err}
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(srcRoot, path)
		if err != nil {
			return err
		}
		destPath := filepath.Join(destRoot, rel)
		if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			return &errs.IoError{Path: destPath, Op: "mkdir", Cause: err}
		}
		return copyFile(path, destPath, info.Mode())
	})
}

func copyFile(src, dest string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return &errs.IoError{Path: src, Op: "read", Cause: err}
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm())
	if err != nil {
		return &errs.IoError{Path: dest, Op: "write", Cause: err}
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return &errs.IoError{Path: dest, Op: "write", Cause: err}
	}
	return nil
}

// RemoveTree deletes an entire directory tree, used when
// CleanOutputDirectories is set on a non-incremental build (spec §4.6
// step 8).
func RemoveTree(root string) error {
	if err := os.RemoveAll(root); err != nil {
		return &errs.IoError{Path: root, Op: "remove", Cause: err}
	}
	return nil
}

// EnsureDir creates dir and any missing parents.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &errs.IoError{Path: dir, Op: "mkdir", Cause: err}
	}
	return nil
}

// WriteTextFile writes content to path, creating parent directories as
// needed. Used for the assembled protoc argument file (spec §4.7).
func WriteTextFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &errs.IoError{Path: path, Op: "mkdir", Cause: err}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return &errs.IoError{Path: path, Op: "write", Cause: err}
	}
	return nil
}

// WriteReaderToFile streams src to path, creating parent directories as
// needed. Used by the URI fetcher's s3:// download path (spec §6).
func WriteReaderToFile(path string, src io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &errs.IoError{Path: path, Op: "mkdir", Cause: err}
	}
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return &errs.IoError{Path: path, Op: "write", Cause: err}
	}
	defer out.Close()
	if _, err := io.Copy(out, src); err != nil {
		return &errs.IoError{Path: path, Op: "write", Cause: err}
	}
	return nil
}
