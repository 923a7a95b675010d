// Package services defines shared utilities consumed by the reranking
// coordinator, the dispatcher, and the reranking service.
//
// Key responsibilities:
//   - Context helpers that stamp correlation identifiers, request generations,
//     and fingerprints for logging.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures (unreachable endpoints, malformed payloads, configuration).
//
// Use these helpers when wiring new components so operational behaviour (error
// handling, observability) stays uniform across the module.
package services
