// Package coordinator decides when candidate sets are reranked and what the
// renderer shows while that happens.
//
// A Coordinator owns all of its state on one event-loop goroutine started by
// Run. Trigger, Leave, and Snapshot only post events to that loop, so state
// transitions follow event order exactly and no coordinator state is shared
// with callers.
//
// Cycle overview:
//
//   - Trigger fingerprints the first MaxItems candidates. A fingerprint
//     equal to the last one processed is ignored. Otherwise a new generation
//     Ticket is issued, superseding any earlier cycle.
//   - A cached grouping is delivered at once. On a miss the debounce timer
//     is (re)started so bursts of triggers collapse into one dispatch.
//   - When the timer fires the cache is consulted again; on a miss the
//     renderer shows a loading state and the candidates are dispatched on a
//     separate goroutine through a single-flight group keyed by fingerprint.
//   - The dispatch outcome comes back to the loop as an event and passes
//     through commit, the only place tickets are checked. Stale outcomes are
//     dropped before they can touch the cache or the renderer.
//   - Successful results are sanitized, cached, merged with the overflow
//     group, and delivered. Failures deliver the original order together
//     with the error.
//
// Leave stops the debounce timer, invalidates the current ticket, and clears
// the last fingerprint so the next trigger starts fresh.
package coordinator
