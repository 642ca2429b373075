// Command bitharbor is the CLI for the BitHarbor media library: ingest
// files, search the library by text similarity, and pull movies in from
// external catalogs.
package main
