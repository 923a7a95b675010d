// Package resultstore persists curated groupings produced by the reranking
// service in SQLite, keyed by candidate fingerprint.
//
// The store lets a restarted service answer repeated candidate sets without
// another model call and backs the `feedcurator cache` commands. Records
// carry their creation time and are pruned by age; the schema is versioned
// and a mismatch asks the operator to clear the database.
package resultstore
