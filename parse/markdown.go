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
	"strconv"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/poiesic/docmill/core"
)

// markdownInstance is initialized once and reused. The parser
// configuration never changes and the goldmark Parser is safe to share;
// each Parse call creates its own state.
var (
	markdownInstance goldmark.Markdown
	markdownOnce     sync.Once
)

func getMarkdown() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdownInstance = goldmark.New(
			goldmark.WithExtensions(extension.GFM),
		)
	})
	return markdownInstance
}

// BlocksFromMarkdown parses markdown source into structural blocks in
// document order. Each top-level AST node becomes one block; tables and
// code regions keep their raw source text so downstream partitioning
// never tears them mid-structure. Offsets are byte positions within
// source, and page is stamped onto every block as given.
func BlocksFromMarkdown(source []byte, page int) []core.Block {
	root := getMarkdown().Parser().Parse(text.NewReader(source))

	var blocks []core.Block
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		block, ok := blockFromNode(n, source, page)
		if !ok {
			continue
		}
		blocks = append(blocks, block)
	}
	return blocks
}

// blockFromNode converts one top-level AST node into a block. Nodes with
// no textual content (thematic breaks, empty paragraphs) are dropped.
func blockFromNode(n ast.Node, source []byte, page int) (core.Block, bool) {
	start, stop, ok := nodeSpan(n, source)
	if !ok {
		return core.Block{}, false
	}

	content := strings.TrimSpace(string(source[start:stop]))
	if content == "" {
		return core.Block{}, false
	}

	block := core.Block{
		Type:     core.BlockParagraph,
		Text:     content,
		Position: core.Position{Page: page, Offset: start},
	}

	switch v := n.(type) {
	case *ast.Heading:
		block.Type = core.BlockHeading
		block.Metadata = map[string]string{"level": strconv.Itoa(v.Level)}
	case *ast.FencedCodeBlock:
		block.Type = core.BlockCode
		if lang := v.Language(source); len(lang) > 0 {
			block.Metadata = map[string]string{"language": string(lang)}
		}
	case *ast.CodeBlock:
		block.Type = core.BlockCode
	case *extast.Table:
		block.Type = core.BlockTable
	}
	return block, true
}

// nodeSpan computes the source byte range covered by n and its
// descendants. Container nodes (tables, lists, blockquotes) carry no
// lines themselves, so the span is accumulated from every descendant
// that maps back to the source.
func nodeSpan(n ast.Node, source []byte) (start, stop int, found bool) {
	start = len(source)
	extend := func(s, e int) {
		if s < start {
			start = s
		}
		if e > stop {
			stop = e
		}
		found = true
	}

	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if c.Type() == ast.TypeBlock {
			lines := c.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				extend(seg.Start, seg.Stop)
			}
		}
		if t, isText := c.(*ast.Text); isText {
			extend(t.Segment.Start, t.Segment.Stop)
		}
		return ast.WalkContinue, nil
	})

	if !found || stop <= start {
		return 0, 0, false
	}
	return start, stop, true
}
