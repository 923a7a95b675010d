// Package source turns external candidate payloads into normalized
// feed.CandidateItem lists.
//
// Three shapes are understood: a JSON document (a bare array or an object
// with a "videos" array, accepting the text/href aliases some extractors
// emit), an NDJSON stream of such documents used to drive the debounced
// coordinator, and RSS/Atom feeds such as YouTube channel feeds read through
// gofeed.
package source
