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


package parse

import (
	"context"

	"github.com/poiesic/docmill/core"
)

// Document is the input to a parse attempt. Data holds the full source
// bytes; Name and MIME are optional hints used for format detection.
type Document struct {
	Name string
	MIME string
	Data []byte
}

// Result is the outcome of a successful parse.
type Result struct {
	// Blocks in document order. Position.Page is 1-based for paged
	// sources and 0 for unpaged ones; Position.Offset is relative to
	// the block's page.
	Blocks []core.Block

	// PageCount is the source page count, 0 when the source is unpaged.
	PageCount int
}

// Parser converts document bytes into structural blocks.
//
// Implementations perform exactly one attempt and classify failures via
// ErrFatal, ErrTransient, and ErrTimeout so the caller can decide whether
// to retry.
type Parser interface {
	Parse(ctx context.Context, doc Document, opts core.ParseOptions) (*Result, error)
}
