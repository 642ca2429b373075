// Package media defines the domain vocabulary shared across the pipeline:
// modalities, media types, and typed metadata with explicit merge rules.
package media
