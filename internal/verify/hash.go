// Package verify computes the SHA-256 content digests used to validate
// downloaded payloads against their transfer plans.
package verify

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
)

// DigestOfBytes returns the hex SHA-256 of b.
func DigestOfBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// DigestOfString returns the hex SHA-256 of s.
func DigestOfString(s string) string {
	return DigestOfBytes([]byte(s))
}

// DigestOfReader returns the hex SHA-256 of everything readable from r.
func DigestOfReader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Accumulator computes a digest over incrementally fed chunks.
type Accumulator struct {
	h hash.Hash
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{h: sha256.New()}
}

// Write feeds the next chunk. It never fails.
func (a *Accumulator) Write(p []byte) {
	a.h.Write(p)
}

// Sum returns the hex digest of everything written so far.
func (a *Accumulator) Sum() string {
	return hex.EncodeToString(a.h.Sum(nil))
}
