// Package pipeline drives document ingestion jobs through their state
// machine: PENDING, PARSING, CHUNKING, STORING, NOTIFYING and the
// terminal SUCCEEDED, FAILED, CANCELLED.
//
// A bounded worker pool pulls jobs from the job store. Exactly one
// worker runs a job at a time, enforced by an ownership token installed
// with a compare-and-set acquire; there is no other lock. Workers renew
// their lease while making progress, and a background sweep reclaims
// jobs whose lease expired, resuming from the last durable checkpoint:
// parsing restarts fully, storing skips blob keys that are already
// committed.
//
// Retry policy lives here and only here. The parser client, content
// store, and notifier each perform single attempts so attempt counts
// stay observable through the job record.
package pipeline
