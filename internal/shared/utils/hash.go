package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
	"os"

	"golang.org/x/crypto/blake2b"
)

// HashAlgorithm represents the hashing algorithm to use
type HashAlgorithm string

const (
	SHA256    HashAlgorithm = "sha256"
	BLAKE2b   HashAlgorithm = "blake2b-256"
	CRC32IEEE HashAlgorithm = "crc32"
)

// Hasher produces hex digests for manifest entries and source archives
type Hasher struct {
	algorithm HashAlgorithm
}

// NewHasher creates a new hasher with the specified algorithm
func NewHasher(algorithm HashAlgorithm) *Hasher {
	return &Hasher{algorithm: algorithm}
}

// DefaultHasher returns the hasher used for per-entry checksums
func DefaultHasher() *Hasher {
	return NewHasher(BLAKE2b)
}

// Algorithm returns the configured algorithm
func (h *Hasher) Algorithm() HashAlgorithm {
	return h.algorithm
}

// New returns a fresh hash.Hash for streaming use
func (h *Hasher) New() hash.Hash {
	switch h.algorithm {
	case BLAKE2b:
		// only errors for keys longer than 64 bytes
		d, _ := blake2b.New256(nil)
		return d
	case CRC32IEEE:
		return crc32.NewIEEE()
	default:
		return sha256.New()
	}
}

// Hash computes a digest of the input data
func (h *Hasher) Hash(data []byte) string {
	d := h.New()
	d.Write(data)
	return hex.EncodeToString(d.Sum(nil))
}

// HashReader digests everything read from r
func (h *Hasher) HashReader(r io.Reader) (string, int64, error) {
	d := h.New()
	n, err := io.Copy(d, r)
	if err != nil {
		return "", n, err
	}
	return hex.EncodeToString(d.Sum(nil)), n, nil
}

// HashFile digests the file at path
func (h *Hasher) HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	sum, _, err := h.HashReader(f)
	if err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return sum, nil
}

// TeeWriter returns a writer that writes to w and feeds the digest
func (h *Hasher) TeeWriter(w io.Writer) (io.Writer, func() string) {
	d := h.New()
	return io.MultiWriter(w, d), func() string {
		return hex.EncodeToString(d.Sum(nil))
	}
}
