// Package config loads, normalizes, and validates feedcurator configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// GROQ_API_KEY and FEEDCURATOR_API_TOKEN. The Config type centralizes the
// coordinator cache/debounce knobs, the ordered reranking endpoint list, and
// the reranking service settings.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
