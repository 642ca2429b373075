// Package cas implements the content-addressed file pool: digest-derived
// paths with bounded fan-out, idempotent stores, and crash-safe atomic
// publication.
package cas
