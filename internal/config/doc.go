// Package config loads, normalizes, and validates folio configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and applies FOLIO_* environment overrides. The
// Config type centralizes every knob the CLI and export worker need: lifecycle
// thresholds, quality weights, research limits, worker timing, artifact
// storage, identity secrets, telemetry, and logging.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
