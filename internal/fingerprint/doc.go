// Package fingerprint computes deterministic identities for candidate sets.
//
// A fingerprint is the SHA-256 of the sorted URLs of the first N items, so
// any permutation of the same capped URL set yields the same value. It is
// the cache key shared by the coordinator, the result cache, and the
// reranking service. The empty string means "no fingerprint" and is never
// stored or looked up.
package fingerprint
