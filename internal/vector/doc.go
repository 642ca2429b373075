// Package vector canonicalizes raw embeddings: L2 normalization, fixed
// rounding, a little-endian float32 byte layout, and a BLAKE3 digest over
// those bytes.
package vector
