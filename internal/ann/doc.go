// Package ann maintains the approximate-nearest-neighbor index: an
// append-only flat file of canonical vectors paired with an in-memory HNSW
// graph that is snapshotted to disk and rebuilt from the flat file when the
// snapshot is missing or stale.
package ann
