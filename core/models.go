package core

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated deterministically from content so identical input
// collapses to the same identity.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// JobState identifies the current stage of a job in the pipeline.
type JobState uint8

const (
	// StatePending means the job record exists but no worker has started it.
	StatePending JobState = iota + 1
	// StateParsing means the document is at the external parsing stage.
	StateParsing
	// StateChunking means parsed blocks are being partitioned into chunks.
	StateChunking
	// StateStoring means artifacts are being written to the blob store.
	StateStoring
	// StateNotifying means the completion callback is being delivered.
	StateNotifying
	// StateSucceeded is the successful terminal state.
	StateSucceeded
	// StateFailed is the unsuccessful terminal state.
	StateFailed
	// StateCancelled is the terminal state for cooperatively cancelled jobs.
	StateCancelled
)

var stateNames = map[JobState]string{
	StatePending:   "PENDING",
	StateParsing:   "PARSING",
	StateChunking:  "CHUNKING",
	StateStoring:   "STORING",
	StateNotifying: "NOTIFYING",
	StateSucceeded: "SUCCEEDED",
	StateFailed:    "FAILED",
	StateCancelled: "CANCELLED",
}

func (s JobState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("JobState(%d)", uint8(s))
}

// Terminal reports whether s is one of the three terminal states.
func (s JobState) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateCancelled
}

// CanTransition reports whether the state machine permits moving from one
// state to another. Same-state transitions are permitted for the retryable
// stages (parsing, storing, notifying) so attempt bookkeeping can be
// persisted without regressing the machine. Any non-terminal state may move to FAILED (retry
// exhaustion, internal fault, or the overall job deadline) or to CANCELLED.
func CanTransition(from, to JobState) bool {
	if from.Terminal() {
		return false
	}
	if to == StateFailed || to == StateCancelled {
		return true
	}
	switch from {
	case StatePending:
		return to == StateParsing
	case StateParsing:
		return to == StateParsing || to == StateChunking
	case StateChunking:
		return to == StateStoring
	case StateStoring:
		return to == StateStoring || to == StateNotifying
	case StateNotifying:
		return to == StateNotifying || to == StateSucceeded
	}
	return false
}

// Stable machine-readable reason codes for LastError.
const (
	ReasonParseFatal         = "parse_fatal"
	ReasonParseTransient     = "parse_transient"
	ReasonParseTimeout       = "parse_timeout"
	ReasonStorageUnavailable = "storage_unavailable"
	ReasonInternal           = "internal"
	ReasonDeadline           = "deadline"
	ReasonCancelled          = "cancelled"
)

// JobError is the terminal failure detail recorded on a job. Reason is a
// stable machine-readable code; Detail is human-readable context.
type JobError struct {
	Reason string `json:"reason"`
	Detail string `json:"detail"`
}

func (e *JobError) Error() string {
	return e.Reason + ": " + e.Detail
}

// StageAttempts records how many attempts each retryable stage has consumed.
// Chunking is pure and never retried, so it has no counter.
type StageAttempts struct {
	Parsing   int
	Storing   int
	Notifying int
}

// Job is the unit of work driven through the pipeline. Records are owned
// exclusively by the job store; at most one worker holds the ownership
// token at any time.
type Job struct {
	Id          ID
	State       JobState
	DocumentRef string // opaque pointer to the source bytes, owned by the caller
	CallbackURL string // optional completion webhook
	Options     JobOptions
	Attempts    StageAttempts

	// OwnerToken proves which worker currently runs the job. Empty when no
	// worker holds the job. LeaseExpiresAt bounds how long the token is
	// honored before the sweep may reclaim the job.
	OwnerToken     string
	LeaseExpiresAt time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
	LastError *JobError
	ResultRef string // blob key of the artifact manifest once produced
}

// JobOptions are the caller-supplied processing options. They participate
// in the job fingerprint, so two submissions differing only in options run
// as distinct jobs.
type JobOptions struct {
	Chunking ChunkOptions
	Parsing  ParseOptions
}

// Splitter strategy names for ChunkOptions.Splitter.
const (
	SplitterSentence  = "sentence"
	SplitterRecursive = "recursive"
)

// ChunkOptions controls how parsed blocks are partitioned into chunks.
type ChunkOptions struct {
	// TargetSize is the maximum chunk size in characters.
	TargetSize int
	// Overlap is the desired character overlap applied where an oversized
	// block is split.
	Overlap int
	// MaxOverlapRatio bounds the effective overlap as a fraction of
	// TargetSize, whatever Overlap asks for.
	MaxOverlapRatio float64
	// RespectHeadings keeps a heading block in the same chunk as the text
	// that follows it.
	RespectHeadings bool
	// Splitter selects the oversized-block splitting strategy.
	// Empty means SplitterSentence.
	Splitter string
}

// ParseOptions are passed through to the parsing capability.
type ParseOptions struct {
	ForceOCR               bool
	FormatLines            bool
	StripExistingOCR       bool
	DisableImageExtraction bool
	DisableOCRMath         bool
	UseLLM                 bool
	Mode                   string
}

// JobFingerprint derives the deterministic job identity from the document
// reference and a canonical encoding of the processing options. The
// document reference is itself content-addressed, so identical content with
// identical options always maps to the same job.
func JobFingerprint(documentRef string, opts JobOptions) ID {
	var b strings.Builder
	b.WriteString("doc=")
	b.WriteString(documentRef)
	b.WriteString("|size=")
	b.WriteString(strconv.Itoa(opts.Chunking.TargetSize))
	b.WriteString("|overlap=")
	b.WriteString(strconv.Itoa(opts.Chunking.Overlap))
	b.WriteString("|ratio=")
	b.WriteString(strconv.FormatFloat(opts.Chunking.MaxOverlapRatio, 'g', -1, 64))
	b.WriteString("|headings=")
	b.WriteString(strconv.FormatBool(opts.Chunking.RespectHeadings))
	b.WriteString("|splitter=")
	b.WriteString(opts.Chunking.Splitter)
	b.WriteString("|ocr=")
	b.WriteString(strconv.FormatBool(opts.Parsing.ForceOCR))
	b.WriteString("|lines=")
	b.WriteString(strconv.FormatBool(opts.Parsing.FormatLines))
	b.WriteString("|strip=")
	b.WriteString(strconv.FormatBool(opts.Parsing.StripExistingOCR))
	b.WriteString("|noimg=")
	b.WriteString(strconv.FormatBool(opts.Parsing.DisableImageExtraction))
	b.WriteString("|nomath=")
	b.WriteString(strconv.FormatBool(opts.Parsing.DisableOCRMath))
	b.WriteString("|llm=")
	b.WriteString(strconv.FormatBool(opts.Parsing.UseLLM))
	b.WriteString("|mode=")
	b.WriteString(opts.Parsing.Mode)
	return IDFromContent(b.String())
}

// BlockType identifies the structural kind of a parsed block.
type BlockType uint8

const (
	// BlockParagraph is running text.
	BlockParagraph BlockType = iota + 1
	// BlockHeading is a section heading.
	BlockHeading
	// BlockTable is tabular content.
	BlockTable
	// BlockCode is a fenced or indented code region.
	BlockCode
)

var blockTypeNames = map[BlockType]string{
	BlockParagraph: "paragraph",
	BlockHeading:   "heading",
	BlockTable:     "table",
	BlockCode:      "code",
}

func (t BlockType) String() string {
	if name, ok := blockTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("BlockType(%d)", uint8(t))
}

// Position locates a block within the source document.
type Position struct {
	// Page is 1-based for paged sources and 0 for unpaged ones.
	Page int `json:"page"`
	// Offset is the byte offset of the block within its page's source.
	Offset int `json:"offset"`
}

// Block is one unit of parsed document structure. Blocks are immutable once
// produced by the parser and are held in memory only for the duration of a
// single job run.
type Block struct {
	Type     BlockType         `json:"type"`
	Text     string            `json:"text"`
	Position Position          `json:"position"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// BlockRange is an inclusive range of block indices a chunk was derived
// from. Consecutive chunks repeat a block index only when that block was
// larger than the target size and had to be split.
type BlockRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Chunk is one retrieval unit. Chunks for a job form a contiguous sequence
// ordered by SequenceIndex starting at 0 and are write-once artifacts.
type Chunk struct {
	SequenceIndex int               `json:"sequence_index"`
	Text          string            `json:"text"`
	SourceBlocks  BlockRange        `json:"source_block_range"`
	CharCount     int               `json:"char_count"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Manifest lists the blob keys produced by a successful job plus aggregate
// totals. It is written exactly once per job and is itself content-addressed
// from its constituent keys.
type Manifest struct {
	JobId           string   `json:"job_id"`
	RawKey          string   `json:"raw_key"`
	ChunksKey       string   `json:"chunks_key"`
	AuxKeys         []string `json:"aux_keys,omitempty"`
	Checksum        string   `json:"checksum"`
	TotalChunks     int      `json:"total_chunks"`
	TotalCharacters int      `json:"total_characters"`
	PageCount       int      `json:"page_count,omitempty"`
}
