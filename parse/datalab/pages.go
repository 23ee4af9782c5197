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


package datalab

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/poiesic/docmill/core"
	"github.com/poiesic/docmill/parse"
)

var (
	// Paginated Marker output separates pages with a numbered marker line
	// of 48 dashes.
	pageDelimiter = regexp.MustCompile(`\n\n\{\d+\}-{48}\n\n`)

	// Marker sometimes emits an image as an empty-target captioned ref
	// immediately followed by a bare ref holding the real target; merge
	// the pair into one well-formed image.
	brokenImageRef = regexp.MustCompile(`!\[([^\]]+)\]\(\s*\)\s*!\[\s*\]\(\s*([^)]+?)\s*\)`)
)

// resultFromMarkdown splits paginated Marker markdown into per-page
// content and extracts blocks from each page. Page numbers are 1-based;
// blank pages are dropped without renumbering their neighbors.
func resultFromMarkdown(markdown string, pageCount int) *parse.Result {
	markdown = brokenImageRef.ReplaceAllString(markdown, "![$1]($2)")

	pages := pageDelimiter.Split(markdown, -1)
	if len(pages) <= 1 {
		// No page structure in the output; treat it as a single page.
		return &parse.Result{
			Blocks:    parse.BlocksFromMarkdown([]byte(markdown), 1),
			PageCount: pageCount,
		}
	}

	// The segment before the first delimiter is always empty.
	var blocks []core.Block
	for idx, page := range pages[1:] {
		page = strings.TrimSpace(page)
		if page == "" {
			continue
		}
		blocks = append(blocks, parse.BlocksFromMarkdown([]byte(page), idx+1)...)
	}

	return &parse.Result{Blocks: blocks, PageCount: pageCount}
}

// Marker handles binary document and image formats; text-native content
// is parsed in process instead.
var (
	supportedMIMETypes = map[string]bool{
		"application/pdf": true,
		"application/vnd.ms-excel":                                                  true,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         true,
		"application/vnd.oasis.opendocument.spreadsheet":                            true,
		"application/msword":                                                        true,
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   true,
		"application/vnd.oasis.opendocument.text":                                   true,
		"application/vnd.ms-powerpoint":                                             true,
		"application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
		"application/vnd.oasis.opendocument.presentation":                           true,
		"application/epub+zip":                                                      true,
		"image/png":                                                                 true,
		"image/jpeg":                                                                true,
		"image/jpg":                                                                 true,
		"image/webp":                                                                true,
		"image/gif":                                                                 true,
		"image/tiff":                                                                true,
	}

	supportedExtensions = map[string]bool{
		".pdf": true, ".xls": true, ".xlsx": true, ".ods": true,
		".doc": true, ".docx": true, ".ppt": true, ".pptx": true,
		".odp": true, ".epub": true, ".jpg": true, ".jpeg": true,
		".png": true, ".gif": true, ".tiff": true, ".tif": true,
		".webp": true,
	}
)

// Supports reports whether the Marker API can convert this document.
func Supports(doc parse.Document) bool {
	mime := strings.ToLower(doc.MIME)
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	if supportedMIMETypes[mime] {
		return true
	}
	return supportedExtensions[strings.ToLower(filepath.Ext(doc.Name))]
}
