// Package config loads, normalizes, and validates planreel configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// PLANREEL_TTS_API_KEY. The Config type centralizes every directory root,
// naming convention, and external tool setting the pipeline needs, and is
// passed explicitly into each stage rather than read from globals.
//
// Always obtain settings through this package so downstream code receives
// absolute paths, canonical extensions, and clear validation errors.
package config
