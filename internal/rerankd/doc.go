// Package rerankd serves the HTTP reranking endpoint that coordinators
// dispatch to.
//
// POST /rerank accepts {"videos": [...]} and answers {"groups": [...]}.
// Repeated requests for the same candidate set inside the minimum request
// interval are answered from a bounded in-memory cache, and curated results
// can be persisted in the SQLite result store so restarts do not repeat
// model calls. Concurrent requests for one set share a single curation.
// The service also exposes /healthz and Prometheus metrics on /metrics.
package rerankd
