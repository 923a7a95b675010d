// Package sanitize validates untrusted grouping responses against the
// candidate set that was sent to the reranking service.
//
// The service may invent URLs, repeat items across groups, drop items, or
// return something that is not a grouping at all. Sanitize repairs all of
// these: only allowed URLs survive, each at most once (the first group that
// claims an item keeps it), and every allowed item the service did not place
// is appended, in original order, to a trailing "Other picks" group. The
// output therefore always contains every allowed item exactly once.
//
// Decode wraps Sanitize for raw response bodies and reports, as a tagged
// Result, whether the body had the expected shape. Neither function panics
// or returns an error.
package sanitize
