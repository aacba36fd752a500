// Package config loads, normalizes, and validates ttm configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours TTM_* environment overrides. The
// Config type centralizes every knob the daemon and CLI need so the data
// directory, API bind, tracker policy and log settings are discovered in one
// pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
