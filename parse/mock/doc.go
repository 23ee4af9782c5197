// Package mock provides a test double for the parse.Parser capability.
//
// The mock lets orchestration tests run without an external conversion
// backend. Default behavior turns the document bytes into markdown
// blocks; custom behavior (canned failures, scripted sequences) is
// injected via the ParseFunc field.
package mock
