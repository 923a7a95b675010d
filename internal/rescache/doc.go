// Package rescache holds sanitized groupings keyed by candidate fingerprint.
//
// The cache is bounded and time-expiring: entries older than the TTL are
// evicted when read, and inserting beyond capacity evicts the oldest-inserted
// entry (FIFO, reads do not refresh position). Every Get and Put copies the
// groups so callers can never corrupt cached state through a returned slice.
package rescache
