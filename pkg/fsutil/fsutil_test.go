package fsutil

import (
	"archive/zip"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_IsAbsoluteAndIdempotent(t *testing.T) {
	n1, err := Normalize("./testdata/../fsutil_test.go")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(n1))

	n2, err := Normalize(n1)
	require.NoError(t, err)
	assert.Equal(t, n1, n2)
}

func TestDedup_CollapsesAliasedPaths(t *testing.T) {
	dir := t.TempDir()
	alias := filepath.Join(dir, "a", "..")

	out, err := Dedup([]string{dir, alias})
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestExtension_Lowercased(t *testing.T) {
	assert.Equal(t, ".proto", Extension("Foo.PROTO"))
	assert.Equal(t, "", Extension("README"))
}

func TestSetExecutable_SetsPermBits(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix-only")
	}
	f := filepath.Join(t.TempDir(), "script")
	require.NoError(t, os.WriteFile(f, []byte("x"), 0o644))

	require.NoError(t, SetExecutable(f))

	info, err := os.Stat(f)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode().Perm()&0o111)
}

func TestExtractArchive_RelocatesUnderDigestScopedScratch(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "lib.jar")
	writeZip(t, archivePath, map[string]string{
		"well/known/X.proto": "syntax = \"proto3\";",
		"META-INF/MANIFEST.MF": "Manifest-Version: 1.0",
	})

	scratch := filepath.Join(dir, "scratch")
	root, extracted, err := ExtractArchive(archivePath, scratch, func(rel string) bool {
		return filepath.Ext(rel) == ".proto"
	})
	require.NoError(t, err)
	require.Len(t, extracted, 1)
	assert.Contains(t, root, "lib-")

	content, err := os.ReadFile(filepath.Join(root, "well", "known", "X.proto"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "proto3")
}

func TestExtractArchive_IsolatesCollidingInternalPaths(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.jar")
	b := filepath.Join(dir, "b.jar")
	writeZip(t, a, map[string]string{"X.proto": "a-content"})
	writeZip(t, b, map[string]string{"X.proto": "b-content"})

	scratch := filepath.Join(dir, "scratch")
	acceptAll := func(string) bool { return true }

	rootA, _, err := ExtractArchive(a, scratch, acceptAll)
	require.NoError(t, err)
	rootB, _, err := ExtractArchive(b, scratch, acceptAll)
	require.NoError(t, err)

	assert.NotEqual(t, rootA, rootB)

	contentA, err := os.ReadFile(filepath.Join(rootA, "X.proto"))
	require.NoError(t, err)
	contentB, err := os.ReadFile(filepath.Join(rootB, "X.proto"))
	require.NoError(t, err)
	assert.Equal(t, "a-content", string(contentA))
	assert.Equal(t, "b-content", string(contentB))
}

func TestCopyTree_MirrorsLayout(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "nested", "f.proto"), []byte("data"), 0o644))

	dest := t.TempDir()
	require.NoError(t, CopyTree(src, dest))

	content, err := os.ReadFile(filepath.Join(dest, "nested", "f.proto"))
	require.NoError(t, err)
	assert.Equal(t, "data", string(content))
}

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	for name, content := range files {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
}
