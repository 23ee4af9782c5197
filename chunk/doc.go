// Package chunk partitions parsed blocks into retrieval-sized chunks.
//
// Partitioning is pure and deterministic: identical blocks and options
// always yield an identical chunk sequence, which is what makes
// content-addressed artifact deduplication sound. Blocks are packed in
// order up to the target size; a block larger than the target is split
// by a pluggable strategy with the configured overlap applied at the
// split points. Tables and code regions are split on line boundaries
// only, never mid-row.
package chunk
