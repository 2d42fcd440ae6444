package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// DefaultChunkSize is the read size used while hashing a response body.
const DefaultChunkSize = 1024

var (
	// ErrEmptyContent is returned when there is nothing to hash.
	ErrEmptyContent = errors.New("empty content")

	// ErrHashingFailure wraps read errors encountered while hashing.
	ErrHashingFailure = errors.New("hashing failure")
)

// Hasher computes a strong validator for a response body.
type Hasher interface {
	Hash(ctx context.Context, r io.Reader) (ETag, error)
}

// MD5Hasher hashes content with MD5 and renders the digest as upper-case hex.
type MD5Hasher struct {
	// ChunkSize overrides DefaultChunkSize when positive.
	ChunkSize int
}

// Hash implements Hasher.
func (h MD5Hasher) Hash(ctx context.Context, r io.Reader) (ETag, error) {
	return digest(ctx, r, md5.New(), h.ChunkSize)
}

// XXHasher hashes content with xxHash64. Cheaper than MD5 for large bodies.
type XXHasher struct {
	ChunkSize int
}

// Hash implements Hasher.
func (h XXHasher) Hash(ctx context.Context, r io.Reader) (ETag, error) {
	return digest(ctx, r, xxhash.New(), h.ChunkSize)
}

// NewHasher returns the hasher registered under name ("md5" or "xxhash").
func NewHasher(name string) (Hasher, error) {
	switch strings.ToLower(name) {
	case "", "md5":
		return MD5Hasher{}, nil
	case "xxhash":
		return XXHasher{}, nil
	default:
		return nil, fmt.Errorf("unknown hasher %q", name)
	}
}

func digest(ctx context.Context, r io.Reader, h hash.Hash, chunkSize int) (ETag, error) {
	if r == nil {
		return ETag{}, ErrEmptyContent
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	buf := make([]byte, chunkSize)
	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return ETag{}, err
		}

		n, err := r.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
			total += int64(n)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return ETag{}, fmt.Errorf("%w: %v", ErrHashingFailure, err)
		}
	}

	if total == 0 {
		return ETag{}, ErrEmptyContent
	}
	return ETag{
		Value:  strings.ToUpper(hex.EncodeToString(h.Sum(nil))),
		Strong: true,
	}, nil
}
