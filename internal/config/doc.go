// Package config loads, normalizes, and validates marclink configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts) and reads TOML files. The Config type centralizes the link and
// merge policy, the guesser index location and the logging knobs, so the CLI
// and the pipeline packages discover every setting in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, upper-cased tags and clear validation errors.
package config
