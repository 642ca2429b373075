// Package hashing computes BLAKE3 content digests by streaming files in
// fixed-size chunks, keeping memory bounded for multi-gigabyte sources.
package hashing

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"lukechampine.com/blake3"
)

const chunkSize = 1 << 20

// HashFile streams the file at path through BLAKE3 and returns the hex
// digest together with the byte count consumed. Errors from the underlying
// reader propagate; a partial digest is never returned.
func HashFile(path string) (string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open source: %w", err)
	}
	defer file.Close()

	hasher := blake3.New(32, nil)
	written, err := io.CopyBuffer(hasher, file, make([]byte, chunkSize))
	if err != nil {
		return "", 0, fmt.Errorf("hash source: %w", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), written, nil
}

// HashBytes returns the hex BLAKE3 digest of an in-memory payload.
func HashBytes(payload []byte) string {
	sum := blake3.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
