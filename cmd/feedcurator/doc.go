// Package main hosts the feedcurator CLI entrypoint and command graph.
//
// The Cobra command tree wires configuration, logging, and the internal
// packages together: `rerank` runs a single coordinator pass over a candidate
// file or feed, `watch` drives the debounced coordinator from an NDJSON
// stream, `serve` runs the reranking HTTP service, and `cache` and `config`
// cover maintenance. Functionality belongs in internal packages first; this
// package only surfaces it.
package main
