// Package embedder provides the client for the embedding sidecar that
// turns media files and text into joint-space vectors.
package embedder
