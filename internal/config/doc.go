// Package config loads and validates inkcast configuration from TOML with
// environment fallbacks for credentials.
package config
