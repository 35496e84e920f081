package common

import (
	"fmt"
	"hash"
	"io"

	"golang.org/x/crypto/blake2b"
)

// Hasher wraps a blake2b digest and isn't safe for concurrent use.
type Hasher interface {
	Compute(string) []byte
	Size() int
	Writer() io.Writer
	Bytes() []byte
}

type blake2bHasher struct {
	hash.Hash
}

// NewBlake2bHasher panics on a size above 64 bytes; 0 selects the 32-byte digest.
func NewBlake2bHasher(size int) Hasher {
	if size == 0 {
		size = blake2b.Size256
	}

	h, err := blake2b.New(size, nil)
	if err != nil {
		panic(fmt.Sprintf("blake2b hasher of size %d: %v", size, err))
	}

	return &blake2bHasher{h}
}

func (h *blake2bHasher) Compute(s string) []byte {
	h.Reset()
	_, _ = io.WriteString(h.Hash, s)
	return h.Sum(nil)
}

func (h *blake2bHasher) Writer() io.Writer {
	return h.Hash
}

func (h *blake2bHasher) Bytes() []byte {
	return h.Sum(nil)
}

// HashBytes is the 32-byte blake2b digest of the concatenation of parts.
func HashBytes(parts ...[]byte) []byte {
	h := NewBlake2bHasher(0)
	for _, p := range parts {
		_, _ = h.Writer().Write(p)
	}

	return h.Bytes()
}
