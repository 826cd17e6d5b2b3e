// Package config loads, normalizes, and validates Marquee's TOML
// configuration.
//
// Load resolves the config file location, applies repository defaults for
// anything the file omits, expands ~ in path values, and rejects settings the
// daemon cannot run with. Other packages receive a fully normalized *Config
// and never re-derive defaults themselves.
package config
