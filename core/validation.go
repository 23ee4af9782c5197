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


package core

import (
	"fmt"
	"net/url"
)

// ValidateChunkOptions validates chunking options according to domain rules.
//
// Validation rules:
//   - TargetSize must be positive
//   - Overlap must be non-negative and smaller than TargetSize
//   - MaxOverlapRatio must be within [0, 1]
//   - Splitter must be empty (default) or a known strategy name
func ValidateChunkOptions(opts ChunkOptions) error {
	if opts.TargetSize <= 0 {
		return fmt.Errorf("%w: %w (got %d)", ErrInvalidOptions, ErrInvalidTargetSize, opts.TargetSize)
	}

	if opts.Overlap < 0 || opts.Overlap >= opts.TargetSize {
		return fmt.Errorf("%w: %w (got %d)", ErrInvalidOptions, ErrInvalidOverlap, opts.Overlap)
	}

	if opts.MaxOverlapRatio < 0 || opts.MaxOverlapRatio > 1 {
		return fmt.Errorf("%w: %w (got %g)", ErrInvalidOptions, ErrInvalidOverlapRatio, opts.MaxOverlapRatio)
	}

	switch opts.Splitter {
	case "", SplitterSentence, SplitterRecursive:
	default:
		return fmt.Errorf("%w: %w %q", ErrInvalidOptions, ErrUnknownSplitter, opts.Splitter)
	}

	return nil
}

// ValidateSubmission validates an ingestion request before any job record
// is created. A failure here is the only synchronous rejection path.
func ValidateSubmission(documentRef string, opts JobOptions, callbackURL string) error {
	if documentRef == "" {
		return fmt.Errorf("%w: %w", ErrInvalidOptions, ErrEmptyDocumentRef)
	}

	if err := ValidateChunkOptions(opts.Chunking); err != nil {
		return err
	}

	if callbackURL != "" {
		u, err := url.Parse(callbackURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: %w %q", ErrInvalidOptions, ErrInvalidCallbackURL, callbackURL)
		}
	}

	return nil
}

// EffectiveOverlap resolves the overlap actually applied at split points:
// the requested overlap capped by MaxOverlapRatio of the target size.
func (o ChunkOptions) EffectiveOverlap() int {
	overlap := o.Overlap
	if o.MaxOverlapRatio > 0 {
		limit := int(o.MaxOverlapRatio * float64(o.TargetSize))
		if overlap > limit {
			overlap = limit
		}
	}
	if overlap >= o.TargetSize {
		overlap = o.TargetSize - 1
	}
	if overlap < 0 {
		overlap = 0
	}
	return overlap
}
