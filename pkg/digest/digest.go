// Package digest computes stable content digests and their serialized
// forms, used by the incremental cache (spec §4.4) to fingerprint inputs
// and by the source resolver to name scratch-extraction directories
// deterministically (spec §4.3 step 5).
package digest

import (
	"crypto/sha1" //nolint:gosec // content-addressing, not a security boundary (spec §4.4)
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
)

// Algorithm identifies the hash function used to produce a Digest.
type Algorithm string

const SHA1 Algorithm = "sha1"

// Digest is an algorithm-tagged content hash with value equality.
type Digest struct {
	Algorithm Algorithm
	Bytes     []byte
}

// Equal reports whether two digests have the same algorithm and bytes.
func (d Digest) Equal(other Digest) bool {
	if d.Algorithm != other.Algorithm || len(d.Bytes) != len(other.Bytes) {
		return false
	}
	for i := range d.Bytes {
		if d.Bytes[i] != other.Bytes[i] {
			return false
		}
	}
	return true
}

// Hex returns the lowercase hex encoding of the digest bytes.
func (d Digest) Hex() string { return hex.EncodeToString(d.Bytes) }

// Base64 returns the URL-safe, unpadded base-64 string form of the digest
// bytes, the stable serialization used by the incremental cache file
// format (spec §4.4).
func (d Digest) Base64() string { return base64.RawURLEncoding.EncodeToString(d.Bytes) }

// String renders the digest as "<algorithm>:<base64>", matching the cache
// file record format in spec §4.4.
func (d Digest) String() string {
	return fmt.Sprintf("%s:%s", d.Algorithm, d.Base64())
}

// IsZero reports whether this digest carries no bytes (e.g. a file that
// could not be read).
func (d Digest) IsZero() bool { return len(d.Bytes) == 0 }

// OfBytes computes the SHA-1 digest of b.
func OfBytes(b []byte) Digest {
	h := sha1.Sum(b) //nolint:gosec
	return Digest{Algorithm: SHA1, Bytes: h[:]}
}

// OfReader computes the SHA-1 digest of everything read from r.
func OfReader(r io.Reader) (Digest, error) {
	h := sha1.New() //nolint:gosec
	if _, err := io.Copy(h, r); err != nil {
		return Digest{}, err
	}
	return Digest{Algorithm: SHA1, Bytes: h.Sum(nil)}, nil
}

// ParseDigestString parses the "<algorithm>:<base64>" form produced by
// String(). Used when reading incremental cache files back off disk.
func ParseDigestString(s string) (Digest, error) {
	for i := 0; i < len(s); i++ {
		if s[i] == ':' {
			algo := Algorithm(s[:i])
			b, err := base64.RawURLEncoding.DecodeString(s[i+1:])
			if err != nil {
				return Digest{}, fmt.Errorf("invalid digest encoding: %w", err)
			}
			return Digest{Algorithm: algo, Bytes: b}, nil
		}
	}
	return Digest{}, fmt.Errorf("malformed digest string %q: missing algorithm separator", s)
}
