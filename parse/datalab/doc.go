// Package datalab implements the parse.Parser capability against the
// Datalab Marker conversion API.
//
// A parse attempt is submit-then-poll: the document is uploaded as a
// multipart form, the API answers with a request id, and the client polls
// the request until its status leaves "processing". The returned markdown
// carries page delimiters, which the client splits into per-page content
// before block extraction.
//
// The client performs one attempt per Parse call and classifies failures
// through the parse package sentinels; retry policy belongs to the caller.
package datalab
