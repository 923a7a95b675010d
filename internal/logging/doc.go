// Package logging assembles structured slog loggers and formatting helpers used
// across feedcurator components.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so coordinator and service code
// can tag log lines with correlation IDs, request generations, and candidate
// fingerprints. The package also provides a no-op logger for tests and wiring
// code that cannot fail.
package logging
