// Package llm provides an OpenAI-compatible chat client (Groq by default)
// used by the reranking service to group candidate videos.
//
// NewClient builds a client from Config. Client.CompleteSchema sends a
// system and user prompt with a json_schema response format and returns the
// raw content. DecodeLLMJSON decodes that content, tolerating code fences
// and surrounding prose.
//
// Requests are retried on HTTP 408, 429 and 5xx, on empty completions, and
// on network timeouts. Backoff is exponential (1s base, 10s ceiling, five
// attempts by default) unless the server sends Retry-After. Context
// cancellation stops retrying immediately.
package llm
