// Package internetarchive wraps the archive.org advancedsearch, metadata,
// and download APIs used by the catalog acquisition flow.
package internetarchive
