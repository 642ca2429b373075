// Package tmdb wraps The Movie Database API used to enrich movie metadata
// during ingestion.
package tmdb
