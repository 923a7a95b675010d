// Package feed defines the candidate item and group model shared by the
// coordinator, the sanitizer, and the reranking service.
//
// A CandidateItem's URL is its identity across the whole pipeline. Normalize
// cleans raw extractor output, Split caps a candidate list before
// fingerprinting and dispatch, and the clone helpers let caches hand out
// copies callers may freely mutate.
package feed
