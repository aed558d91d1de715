// Package config loads, normalizes, and validates dropkit's TOML
// configuration. Load resolves the file location, fills defaults, expands
// home-relative paths, and rejects unusable settings before anything else
// starts.
package config
