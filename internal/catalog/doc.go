// Package catalog searches external media catalogs, ranks and
// deduplicates the results, and stages downloaded assets for ingestion.
// Matches are held in a TTL cache so an acquisition can reference a prior
// search result by opaque identifier.
package catalog
