// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package chunk

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/neurosnap/sentences"
	"github.com/tmc/langchaingo/textsplitter"

	"github.com/poiesic/docmill/core"
)

// Splitter splits the text of a single oversized block into ordered
// segments no larger than targetSize characters, applying overlap at the
// split points. Implementations must be deterministic.
type Splitter interface {
	Split(text string, targetSize, overlap int) ([]string, error)
}

// newSplitter resolves the strategy named in the options. The options
// are validated upstream, so an unknown name is a programming error.
func newSplitter(name string) (Splitter, error) {
	switch name {
	case "", core.SplitterSentence:
		return NewSentenceSplitter(), nil
	case core.SplitterRecursive:
		return NewRecursiveSplitter(), nil
	}
	return nil, fmt.Errorf("unknown splitter strategy %q", name)
}

func charLen(s string) int {
	return utf8.RuneCountInString(s)
}

// SentenceSplitter packs whole sentences into segments, so a split never
// lands mid-sentence. Sentences longer than the target are the only
// exception and fall back to a windowed character split.
type SentenceSplitter struct {
	tokenizer *sentences.DefaultSentenceTokenizer
}

var _ Splitter = (*SentenceSplitter)(nil)

// NewSentenceSplitter creates the default splitting strategy.
func NewSentenceSplitter() *SentenceSplitter {
	return &SentenceSplitter{tokenizer: sentences.NewSentenceTokenizer(nil)}
}

// Split packs sentences greedily up to targetSize. Each new segment is
// seeded with trailing sentences of the previous one totaling at most
// overlap characters.
func (s *SentenceSplitter) Split(text string, targetSize, overlap int) ([]string, error) {
	var parts []string
	for _, sent := range s.tokenizer.Tokenize(text) {
		trimmed := strings.TrimSpace(sent.Text)
		if trimmed == "" {
			continue
		}
		parts = append(parts, windowSplit(trimmed, targetSize, overlap)...)
	}
	if len(parts) == 0 {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil, nil
		}
		parts = windowSplit(trimmed, targetSize, overlap)
	}

	var segments []string
	var current []string
	size := func(parts []string) int { return charLen(strings.Join(parts, " ")) }

	for _, part := range parts {
		if len(current) > 0 && size(append(current[:len(current):len(current)], part)) > targetSize {
			segments = append(segments, strings.Join(current, " "))

			tail := overlapTail(current, overlap)
			// The overlap seed must leave room for the sentence that
			// forced the split; shed seed sentences until it fits.
			for len(tail) > 0 && size(append(tail[:len(tail):len(tail)], part)) > targetSize {
				tail = tail[1:]
			}
			current = tail
		}
		current = append(current, part)
	}
	if len(current) > 0 {
		segments = append(segments, strings.Join(current, " "))
	}
	return segments, nil
}

// overlapTail returns the longest run of trailing sentences whose joined
// length stays within the overlap budget.
func overlapTail(parts []string, overlap int) []string {
	if overlap <= 0 {
		return nil
	}
	total := 0
	start := len(parts)
	for i := len(parts) - 1; i >= 0; i-- {
		length := charLen(parts[i])
		if total > 0 {
			length++ // joining space
		}
		if total+length > overlap {
			break
		}
		total += length
		start = i
	}
	return parts[start:]
}

// windowSplit hard-splits text into rune windows of targetSize advancing
// by targetSize-overlap. Used only when a single sentence or line exceeds
// the target on its own.
func windowSplit(text string, targetSize, overlap int) []string {
	if charLen(text) <= targetSize {
		return []string{text}
	}

	step := targetSize - overlap
	if step < 1 {
		step = 1
	}

	runes := []rune(text)
	var out []string
	for start := 0; start < len(runes); start += step {
		end := start + targetSize
		if end >= len(runes) {
			out = append(out, string(runes[start:]))
			break
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}

// RecursiveSplitter delegates to a recursive character splitter that
// prefers paragraph, then line, then word boundaries.
type RecursiveSplitter struct{}

var _ Splitter = RecursiveSplitter{}

// NewRecursiveSplitter creates the recursive splitting strategy.
func NewRecursiveSplitter() RecursiveSplitter {
	return RecursiveSplitter{}
}

func (RecursiveSplitter) Split(text string, targetSize, overlap int) ([]string, error) {
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(targetSize),
		textsplitter.WithChunkOverlap(overlap),
	)
	parts, err := splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("recursive split: %w", err)
	}

	out := parts[:0]
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out, nil
}

// lineSplit packs whole lines into segments up to targetSize. Tables and
// code regions go through this path so a row or line of code is never
// torn; no overlap is applied because repeating rows between chunks
// would duplicate structured data.
func lineSplit(text string, targetSize int) []string {
	lines := strings.Split(text, "\n")

	var segments []string
	var current []string
	currentLen := 0
	for _, line := range lines {
		lineLen := charLen(line)
		if lineLen > targetSize {
			// A single monster line still has to go somewhere.
			if len(current) > 0 {
				segments = append(segments, strings.Join(current, "\n"))
				current, currentLen = nil, 0
			}
			segments = append(segments, windowSplit(line, targetSize, 0)...)
			continue
		}
		joined := currentLen + lineLen
		if len(current) > 0 {
			joined++ // newline
		}
		if len(current) > 0 && joined > targetSize {
			segments = append(segments, strings.Join(current, "\n"))
			current, currentLen = nil, 0
		}
		current = append(current, line)
		currentLen = charLen(strings.Join(current, "\n"))
	}
	if len(current) > 0 {
		segments = append(segments, strings.Join(current, "\n"))
	}
	return segments
}
