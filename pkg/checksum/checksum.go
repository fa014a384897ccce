// Package checksum provides content-digest utilities for the tamper-evidence
// ledger. Every mutating record is hashed before it is persisted, and the same
// digest is recomputed during verification, so the exact hashing behaviour must
// be identical across the anchor, verify, and chain-audit paths. Keeping it in
// a dedicated package avoids duplicating crypto wiring throughout the codebase
// and makes the supported algorithms auditable in one place.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"

	"golang.org/x/crypto/sha3"
)

// Supported digest algorithm names as they appear in configuration
// (ledger.digest_algorithm).
const (
	AlgorithmSHA256  = "sha256"
	AlgorithmSHA3256 = "sha3-256"
)

// New returns a fresh hash.Hash for the named algorithm. Unknown names fail
// rather than silently falling back: a deployment that switches algorithms
// would otherwise produce digests that never verify against stored chains.
func New(algorithm string) (hash.Hash, error) {
	switch algorithm {
	case AlgorithmSHA256, "":
		return sha256.New(), nil
	case AlgorithmSHA3256:
		return sha3.New256(), nil
	default:
		return nil, fmt.Errorf("unsupported digest algorithm: %s", algorithm)
	}
}

// Sum computes the hex-encoded digest of data using the named algorithm.
func Sum(algorithm string, data []byte) (string, error) {
	h, err := New(algorithm)
	if err != nil {
		return "", err
	}
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// SumReader computes the hex-encoded digest of everything read from r.
func SumReader(algorithm string, r io.Reader) (string, error) {
	h, err := New(algorithm)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("failed to calculate checksum: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Verify recomputes the digest of data and compares it to expected.
func Verify(algorithm string, data []byte, expected string) (bool, error) {
	actual, err := Sum(algorithm, data)
	if err != nil {
		return false, err
	}
	return actual == expected, nil
}
