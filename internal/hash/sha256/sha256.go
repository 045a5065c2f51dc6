// Package sha256 provides SHA-256 hashing utilities.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Hasher produces hex digests of byte content.
type Hasher struct{}

// New returns a SHA-256 hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash hashes the input and returns the full hex digest.
func (h *Hasher) Hash(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// ShortHash returns the first n characters of the hex digest. Useful
// for compact stable identifiers such as fallback file names.
func (h *Hasher) ShortHash(data []byte, n int) (string, error) {
	digest, err := h.Hash(data)
	if err != nil {
		return "", fmt.Errorf("short hash: %w", err)
	}
	if n <= 0 || n > len(digest) {
		return digest, nil
	}
	return digest[:n], nil
}
