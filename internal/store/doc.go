// Package store persists the relational side of the library in SQLite:
// file records, vector row mappings, media entities with per-type detail
// rows, the ingestion intent log, and ANN tombstones.
package store
