package vector

import (
	"encoding/binary"
	"fmt"
	"math"

	"bitharbor/internal/hashing"
)

// roundScale matches a rounding epsilon of 1e-6: vectors that agree to six
// decimal places canonicalize identically regardless of how they were
// produced.
const roundScale = 1e6

// ErrDimensionMismatch reports a vector whose length differs from the
// deployment dimension.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Canonical is the byte-exact normalized form of an embedding.
type Canonical struct {
	Vector []float32
	Bytes  []byte
	Digest string
}

// Canonicalizer normalizes raw embeddings into a platform-independent byte
// layout so that numerically equal vectors hash equal.
type Canonicalizer struct {
	dims int
}

// NewCanonicalizer creates a canonicalizer for the deployment's fixed
// dimension.
func NewCanonicalizer(dims int) *Canonicalizer {
	return &Canonicalizer{dims: dims}
}

// Dims returns the expected vector dimensionality.
func (c *Canonicalizer) Dims() int {
	return c.dims
}

// Canonicalize L2-normalizes the raw vector, rounds each component to the
// canonical precision, serializes little-endian float32, and digests the
// result. Deterministic: equal inputs always produce equal bytes and digest.
func (c *Canonicalizer) Canonicalize(raw []float32) (Canonical, error) {
	if len(raw) != c.dims {
		return Canonical{}, &ErrDimensionMismatch{Expected: c.dims, Actual: len(raw)}
	}

	vec := make([]float32, len(raw))
	var sum float64
	for _, v := range raw {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	for i, v := range raw {
		value := float64(v)
		if norm > 0 {
			value /= norm
		}
		vec[i] = float32(math.Round(value*roundScale) / roundScale)
	}

	bytes := Encode(vec)
	return Canonical{Vector: vec, Bytes: bytes, Digest: hashing.HashBytes(bytes)}, nil
}

// Encode serializes a vector as little-endian float32, the canonical wire
// and storage layout shared with the flat vector file.
func Encode(vec []float32) []byte {
	out := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

// Decode deserializes a canonical byte payload back into a vector.
func Decode(payload []byte, dims int) ([]float32, error) {
	if len(payload) != dims*4 {
		return nil, fmt.Errorf("canonical payload is %d bytes, want %d", len(payload), dims*4)
	}
	out := make([]float32, dims)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(payload[i*4:]))
	}
	return out, nil
}

// Normalize returns an L2-normalized copy of the query vector without
// rounding; used on the search path where byte identity does not matter.
func Normalize(raw []float32) []float32 {
	out := make([]float32, len(raw))
	var sum float64
	for _, v := range raw {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	for i, v := range raw {
		if norm > 0 {
			out[i] = float32(float64(v) / norm)
		} else {
			out[i] = v
		}
	}
	return out
}
