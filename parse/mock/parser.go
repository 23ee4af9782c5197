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


package mock

import (
	"context"
	"sync"

	"github.com/poiesic/docmill/core"
	"github.com/poiesic/docmill/parse"
)

// MockParser is a test double for parse.Parser.
// It allows custom behavior injection via function fields.
type MockParser struct {
	// ParseFunc is called by Parse if set.
	// If nil, the document bytes are parsed as markdown.
	ParseFunc func(ctx context.Context, doc parse.Document, opts core.ParseOptions) (*parse.Result, error)

	// FailFirst makes the first N calls fail with the given error before
	// the default behavior takes over. Ignored when ParseFunc is set.
	FailFirst int
	FailWith  error

	mu        sync.Mutex
	callCount int
}

var _ parse.Parser = (*MockParser)(nil)

// NewMockParser creates a mock parser with default markdown behavior.
func NewMockParser() *MockParser {
	return &MockParser{}
}

// Parse returns the injected behavior, or parses doc.Data as markdown.
func (m *MockParser) Parse(ctx context.Context, doc parse.Document, opts core.ParseOptions) (*parse.Result, error) {
	m.mu.Lock()
	m.callCount++
	calls := m.callCount
	m.mu.Unlock()

	if m.ParseFunc != nil {
		return m.ParseFunc(ctx, doc, opts)
	}
	if m.FailWith != nil && calls <= m.FailFirst {
		return nil, m.FailWith
	}

	return &parse.Result{Blocks: parse.BlocksFromMarkdown(doc.Data, 0)}, nil
}

// CallCount returns the number of times Parse was called.
func (m *MockParser) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears the call count and injected behavior.
func (m *MockParser) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.ParseFunc = nil
	m.FailFirst = 0
	m.FailWith = nil
}
