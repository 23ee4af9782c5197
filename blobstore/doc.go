// Package blobstore provides content-addressed storage for pipeline
// artifacts.
//
// Keys are derived from the BLAKE2b hash of the stored bytes, so writing
// the same content twice is always a no-op and concurrent duplicate writes
// from a reclaimed worker are safe. Implementations must guarantee that a
// key is either absent or fully present; partial writes are never visible.
package blobstore
