package protocexec

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFakeProtoc(t *testing.T, dir, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("posix-only fake binary")
	}
	path := filepath.Join(dir, "fake-protoc")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestRun_SuccessfulExitYieldsZeroExitCode(t *testing.T) {
	dir := t.TempDir()
	protoc := writeFakeProtoc(t, dir, "exit 0\n")
	argfile := filepath.Join(dir, "args.txt")
	require.NoError(t, os.WriteFile(argfile, []byte("--java_out=/out\n"), 0o644))

	result, err := Run(context.Background(), Invocation{
		ProtocPath:         protoc,
		ArgumentFilePath:   argfile,
		WorkingDirectory:   dir,
		SanctionedPathDirs: []string{dir},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
}

func TestRun_NonZeroExitReturnsProtocFailure(t *testing.T) {
	dir := t.TempDir()
	protoc := writeFakeProtoc(t, dir, "echo 'boom' 1>&2\nexit 3\n")
	argfile := filepath.Join(dir, "args.txt")
	require.NoError(t, os.WriteFile(argfile, []byte(""), 0o644))

	_, err := Run(context.Background(), Invocation{
		ProtocPath:         protoc,
		ArgumentFilePath:   argfile,
		WorkingDirectory:   dir,
		SanctionedPathDirs: []string{dir},
	})
	require.Error(t, err)

	var failure *errs.ProtocFailure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, 3, failure.ExitCode)
	assert.Contains(t, failure.Stderr, "boom")
}

func TestRun_EnvironmentIsExactlyConfiguredMapping(t *testing.T) {
	dir := t.TempDir()
	protoc := writeFakeProtoc(t, dir, `
if [ "$FOO" != "bar" ]; then
  exit 7
fi
exit 0
`)
	argfile := filepath.Join(dir, "args.txt")
	require.NoError(t, os.WriteFile(argfile, []byte(""), 0o644))

	result, err := Run(context.Background(), Invocation{
		ProtocPath:         protoc,
		ArgumentFilePath:   argfile,
		WorkingDirectory:   dir,
		Environment:        map[string]string{"FOO": "bar"},
		SanctionedPathDirs: []string{dir},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
}
