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
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/docmill/core"
)

type sourceFormat int

const (
	formatUnknown sourceFormat = iota
	formatText
	formatCSV
	formatTSV
)

// LocalParser handles text-native formats in process: markdown, plain
// text, and delimiter-separated tables. Binary formats need an external
// conversion backend and are rejected as fatal.
type LocalParser struct {
	logger *slog.Logger
}

var _ Parser = (*LocalParser)(nil)

// NewLocalParser creates a parser for text-native documents.
func NewLocalParser() *LocalParser {
	return &LocalParser{
		logger: slog.Default().With("component", "parse.local"),
	}
}

// Parse converts the document into blocks. Parse options are accepted for
// interface compatibility; none of them apply to text-native sources.
func (p *LocalParser) Parse(ctx context.Context, doc Document, _ core.ParseOptions) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(doc.Data) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrFatal)
	}
	if !utf8.Valid(doc.Data) {
		return nil, fmt.Errorf("%w: %q is not valid UTF-8 text", ErrFatal, doc.Name)
	}

	source := doc.Data
	format := detectFormat(doc)
	switch format {
	case formatCSV, formatTSV:
		comma := ','
		if format == formatTSV {
			comma = '\t'
		}
		table, err := csvToMarkdown(doc.Data, comma)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed delimited table: %w", ErrFatal, err)
		}
		source = []byte(table)
	case formatText:
		// Markdown and plain text go straight through; plain text simply
		// parses as a sequence of paragraphs.
	default:
		return nil, fmt.Errorf("%w: unsupported document type %q (name %q)", ErrFatal, doc.MIME, doc.Name)
	}

	blocks := BlocksFromMarkdown(source, 0)
	p.logger.Debug("parsed local document",
		"name", doc.Name,
		"bytes", len(doc.Data),
		"blocks", len(blocks))

	return &Result{Blocks: blocks}, nil
}

// detectFormat decides how to treat the document, extension first and
// MIME type second. A document with no hints at all is treated as text;
// callers using LocalParser directly are feeding it text by construction.
func detectFormat(doc Document) sourceFormat {
	switch strings.ToLower(filepath.Ext(doc.Name)) {
	case ".csv":
		return formatCSV
	case ".tsv":
		return formatTSV
	case ".md", ".markdown", ".txt", ".text":
		return formatText
	}

	mime := strings.ToLower(doc.MIME)
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	switch mime {
	case "text/csv", "application/csv":
		return formatCSV
	case "text/tab-separated-values":
		return formatTSV
	case "text/markdown", "text/plain", "":
		return formatText
	}
	if strings.HasPrefix(mime, "text/") {
		return formatText
	}
	return formatUnknown
}

// csvToMarkdown renders delimited rows as a compact markdown table so the
// result flows through the same block extraction as every other source.
// The first row is treated as the header.
func csvToMarkdown(data []byte, comma rune) (string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = comma
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", nil
	}

	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		b.WriteByte('|')
		for i := 0; i < width; i++ {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			b.WriteString(markdownCell(cell))
			b.WriteByte('|')
		}
		b.WriteByte('\n')
	}

	writeRow(rows[0])
	b.WriteByte('|')
	for i := 0; i < width; i++ {
		b.WriteString("---|")
	}
	b.WriteByte('\n')
	for _, row := range rows[1:] {
		writeRow(row)
	}
	return b.String(), nil
}

func markdownCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.TrimSpace(s)
}
