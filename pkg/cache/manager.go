package cache

import (
	"context"
	"os"
	"path/filepath"

	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/digest"
	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/errs"
	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/executor"
	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/metrics"
	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
)

// Decision is the outcome of the incremental-cache protocol (spec §4.4).
type Decision struct {
	FullRebuild bool
	NoOp        bool
	Delta       []string
	Next        *Fingerprints
}

// Manager implements the incremental cache protocol: digesting inputs in
// parallel via the shared executor, comparing against the previous
// on-disk fingerprint set, and committing on success. Digest computation
// is memoized through an L1 in-process LRU (mirroring the teacher's
// MultiLevelCache.l1) with an optional L2 Redis tier so a fleet of build
// agents sharing a cache backend can skip re-hashing files other agents
// already fingerprinted this build generation.
type Manager struct {
	Pool        *executor.Pool
	PreviousDir string
	l1          *lru.Cache[string, string]
	l2          *redis.Client
	l2Prefix    string
	Log         *logrus.Logger
}

// NewManager builds a Manager. l1Size of 0 disables memoization entirely;
// redisClient may be nil to skip the L2 tier.
func NewManager(pool *executor.Pool, previousDir string, l1Size int, redisClient *redis.Client, l2Prefix string, log *logrus.Logger) (*Manager, error) {
	m := &Manager{Pool: pool, PreviousDir: previousDir, l2: redisClient, l2Prefix: l2Prefix, Log: log}
	if l1Size > 0 {
		l1, err := lru.New[string, string](l1Size)
		if err != nil {
			return nil, err
		}
		m.l1 = l1
	}
	return m, nil
}

func (m *Manager) previousPath() string { return filepath.Join(m.PreviousDir, "previous.cache") }
func (m *Manager) nextPath() string     { return filepath.Join(m.PreviousDir, "next.cache") }

// DigestInputs computes the content digest of every input path in
// parallel, consulting the memoization tiers before hashing.
func (m *Manager) DigestInputs(ctx context.Context, paths []string) (*Fingerprints, error) {
	var handles []*executor.Handle
	for _, p := range paths {
		p := p
		handles = append(handles, m.Pool.Submit(func(ctx context.Context) (any, error) {
			d, err := m.digestOne(ctx, p)
			if err != nil {
				return nil, err
			}
			return fingerprintPair{path: p, digest: d}, nil
		}))
	}

	results, err := executor.AwaitAll(handles)
	if err != nil {
		return nil, err
	}

	next := NewFingerprints()
	for _, res := range results {
		pair := res.(fingerprintPair)
		next.Set(pair.path, pair.digest)
	}
	return next, nil
}

type fingerprintPair struct {
	path   string
	digest digest.Digest
}

func (m *Manager) digestOne(ctx context.Context, path string) (digest.Digest, error) {
	if m.l1 != nil {
		if cached, ok := m.l1.Get(path); ok {
			if d, err := digest.ParseDigestString(cached); err == nil {
				metrics.CacheDigestLookups.WithLabelValues("l1", "hit").Inc()
				return d, nil
			}
		}
		metrics.CacheDigestLookups.WithLabelValues("l1", "miss").Inc()
	}

	if m.l2 != nil {
		if cached, err := m.l2.Get(ctx, m.l2Key(path)).Result(); err == nil {
			if d, err := digest.ParseDigestString(cached); err == nil {
				if m.l1 != nil {
					m.l1.Add(path, cached)
				}
				metrics.CacheDigestLookups.WithLabelValues("l2", "hit").Inc()
				return d, nil
			}
		}
		metrics.CacheDigestLookups.WithLabelValues("l2", "miss").Inc()
	}

	f, err := os.Open(path)
	if err != nil {
		return digest.Digest{}, &errs.IoError{Path: path, Op: "read", Cause: err}
	}
	defer f.Close()

	d, err := digest.OfReader(f)
	if err != nil {
		return digest.Digest{}, &errs.IoError{Path: path, Op: "read", Cause: err}
	}
	metrics.CacheDigestLookups.WithLabelValues("disk", "miss").Inc()

	serialized := d.String()
	if m.l1 != nil {
		m.l1.Add(path, serialized)
	}
	if m.l2 != nil {
		m.l2.Set(ctx, m.l2Key(path), serialized, 0)
	}
	return d, nil
}

func (m *Manager) l2Key(path string) string { return m.l2Prefix + path }

// Decide implements spec §4.4 steps 2-5 given the already-resolved
// current fingerprints and the set of binary inputs (plugin binaries,
// protoc path) that force a full rebuild on change.
func (m *Manager) Decide(next *Fingerprints, binaryPaths []string) (Decision, error) {
	previous, err := ReadFile(m.previousPath())
	if err != nil {
		if cw, ok := err.(*errs.CorruptCacheWarning); ok {
			if m.Log != nil {
				m.Log.Warn(cw.Error())
			}
			previous = NewFingerprints()
		} else {
			return Decision{}, err
		}
	}

	delta, fullRebuild := Delta(previous, next, binaryPaths)
	if fullRebuild {
		return Decision{FullRebuild: true, Next: next}, nil
	}
	if len(delta) == 0 {
		return Decision{NoOp: true, Next: next}, nil
	}
	return Decision{Delta: delta, Next: next}, nil
}

// Commit replaces previous.cache with next, to be called only after a
// successful protoc invocation (spec §4.4 step 6).
func (m *Manager) Commit(next *Fingerprints) error {
	if err := next.WriteFile(m.nextPath()); err != nil {
		return err
	}
	return os.Rename(m.nextPath(), m.previousPath())
}
