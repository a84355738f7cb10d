package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch_FileURIPassesThroughWithoutCopying(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "protoc")
	require.NoError(t, os.WriteFile(src, []byte("binary"), 0o755))

	f := NewHTTPFetcher(nil, filepath.Join(dir, "scratch"), nil)
	path, found, err := f.Fetch(context.Background(), "file://"+src, "", nil)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, src, path)
}

func TestFetch_FileURIMissingYieldsNotFound(t *testing.T) {
	f := NewHTTPFetcher(nil, t.TempDir(), nil)
	_, found, err := f.Fetch(context.Background(), "file:///does/not/exist", "", nil)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFetch_HTTPDownloadsAndCachesLocally(t *testing.T) {
	body := "plugin-binary-contents"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()

	dir := t.TempDir()
	f := NewHTTPFetcher(nil, dir, nil)

	path, found, err := f.Fetch(context.Background(), srv.URL+"/plugin.exe", "exe", nil)
	require.NoError(t, err)
	require.True(t, found)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, body, string(content))

	info, err := os.Stat(path)
	require.NoError(t, err)
	mtimeBefore := info.ModTime()

	path2, found2, err := f.Fetch(context.Background(), srv.URL+"/plugin.exe", "exe", nil)
	require.NoError(t, err)
	assert.True(t, found2)
	assert.Equal(t, path, path2)

	info2, err := os.Stat(path2)
	require.NoError(t, err)
	assert.Equal(t, mtimeBefore, info2.ModTime())
}

func TestFetch_HTTPNotFoundYieldsEmptyNoError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(nil, t.TempDir(), nil)
	_, found, err := f.Fetch(context.Background(), srv.URL+"/missing.jar", "jar", nil)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFetch_DigestMismatchIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("actual-content"))
	}))
	defer srv.Close()

	wrong := digest.OfBytes([]byte("something-else"))
	f := NewHTTPFetcher(nil, t.TempDir(), nil)

	_, _, err := f.Fetch(context.Background(), srv.URL+"/x.jar", "jar", &wrong)
	require.Error(t, err)
}

func TestFetch_DigestMatchSucceeds(t *testing.T) {
	content := "actual-content"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(content))
	}))
	defer srv.Close()

	correct := digest.OfBytes([]byte(content))
	f := NewHTTPFetcher(nil, t.TempDir(), nil)

	path, found, err := f.Fetch(context.Background(), srv.URL+"/x.jar", "jar", &correct)
	require.NoError(t, err)
	assert.True(t, found)
	assert.FileExists(t, path)
}
