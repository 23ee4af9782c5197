// Package parse defines the document parsing capability and its
// implementations.
//
// Parsers turn source bytes into an ordered sequence of structural blocks
// (headings, paragraphs, tables, code). Failures are classified through
// the sentinel errors in this package: ErrFatal for documents that can
// never parse, ErrTransient for outages worth another attempt, and
// ErrTimeout when a parse run exceeded its budget. Callers own retry
// policy; implementations perform a single attempt.
package parse
