// Package ingest implements the ingestion pipeline: validate, hash, pool,
// enrich, embed, canonicalize, index, and commit, plus the startup
// reconciliation that repairs ingestions interrupted between the index and
// the relational store.
package ingest
