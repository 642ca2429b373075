// Package config loads, normalizes, and validates BitHarbor configuration
// from TOML files.
package config
