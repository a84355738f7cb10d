package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEnv map[string]string

func (f fakeEnv) Getenv(key string) string         { return f[key] }
func (f fakeEnv) UserHomeDir() (string, error)      { return f["HOME"], nil }

func TestNewProbe_SkipsEmptyPathEntries(t *testing.T) {
	env := fakeEnv{"PATH": "/usr/bin::/usr/local/bin"}
	p := NewProbe(env, nil)
	require.NotNil(t, p)
	assert.Contains(t, p.Path(), "/usr/bin")
	assert.Contains(t, p.Path(), "/usr/local/bin")
	assert.Len(t, p.Path(), 2)
}

func TestNewProbe_OSPredicatesAreMutuallyConsistent(t *testing.T) {
	p := NewProbe(fakeEnv{}, nil)
	count := 0
	for _, b := range []bool{p.IsLinux(), p.IsMacOs(), p.IsWindows()} {
		if b {
			count++
		}
	}
	assert.LessOrEqual(t, count, 1)
}

func TestNewProbe_PathExtensionsEmptyOnNonWindows(t *testing.T) {
	p := NewProbe(fakeEnv{"PATHEXT": ".EXE"}, nil)
	if !p.IsWindows() {
		assert.Empty(t, p.PathExtensions())
	}
}
