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
	"strconv"
	"strings"

	"github.com/poiesic/docmill/core"
)

// blockSeparator joins block texts inside one chunk.
const blockSeparator = "\n\n"

type pendingItem struct {
	index int
	block core.Block
}

// Partition packs blocks into chunks of at most opts.TargetSize
// characters. The result is deterministic for identical inputs.
//
// Blocks are packed in document order. A block that alone exceeds the
// target is split by the configured strategy and its pieces become
// chunks of their own; consecutive chunks repeat a block index only in
// that case. Undersized trailing blocks merge forward until the target
// would be exceeded, and then form a final short chunk.
//
// An empty block sequence yields an empty chunk sequence.
func Partition(blocks []core.Block, opts core.ChunkOptions) ([]core.Chunk, error) {
	if err := core.ValidateChunkOptions(opts); err != nil {
		return nil, err
	}
	if len(blocks) == 0 {
		return nil, nil
	}

	splitter, err := newSplitter(opts.Splitter)
	if err != nil {
		return nil, err
	}
	overlap := opts.EffectiveOverlap()

	var chunks []core.Chunk
	var cur []pendingItem

	emit := func(text string, start, end int, first core.Block) {
		chunk := core.Chunk{
			SequenceIndex: len(chunks),
			Text:          text,
			SourceBlocks:  core.BlockRange{Start: start, End: end},
			CharCount:     charLen(text),
		}
		if first.Position.Page > 0 {
			chunk.Metadata = map[string]string{"page": strconv.Itoa(first.Position.Page)}
		}
		chunks = append(chunks, chunk)
	}

	flush := func(items []pendingItem) {
		if len(items) == 0 {
			return
		}
		texts := make([]string, 0, len(items))
		for _, it := range items {
			if it.block.Text != "" {
				texts = append(texts, it.block.Text)
			}
		}
		emit(strings.Join(texts, blockSeparator),
			items[0].index, items[len(items)-1].index, items[0].block)
	}

	for i, block := range blocks {
		item := pendingItem{index: i, block: block}

		// A whitespace-only block contributes no text but still occupies
		// its slot in the coverage ranges; fold it into the current run
		// instead of letting the splitter swallow it.
		if strings.TrimSpace(block.Text) == "" {
			item.block.Text = ""
			cur = append(cur, item)
			continue
		}

		if charLen(block.Text) > opts.TargetSize {
			flush(cur)
			cur = nil

			pieces, err := splitOversized(block, opts.TargetSize, overlap, splitter)
			if err != nil {
				return nil, fmt.Errorf("split block %d: %w", i, err)
			}
			for _, piece := range pieces {
				emit(piece, i, i, block)
			}
			continue
		}

		if len(cur) > 0 && appendedSize(cur, block.Text) > opts.TargetSize {
			var carry []pendingItem
			if opts.RespectHeadings && len(cur) > 1 && cur[len(cur)-1].block.Type == core.BlockHeading {
				// Keep the trailing heading with the text that follows it.
				carry = []pendingItem{cur[len(cur)-1]}
				cur = cur[:len(cur)-1]
			}
			flush(cur)
			cur = carry

			// The target size is a hard bound: if even heading+block
			// overflow it, the heading stands alone.
			if len(cur) > 0 && appendedSize(cur, block.Text) > opts.TargetSize {
				flush(cur)
				cur = nil
			}
		}
		cur = append(cur, item)
	}
	flush(cur)

	return chunks, nil
}

// joinedSize measures the text flush would emit for items; blank folded
// blocks add no separators.
func joinedSize(items []pendingItem) int {
	total := 0
	for _, it := range items {
		if it.block.Text == "" {
			continue
		}
		if total > 0 {
			total += charLen(blockSeparator)
		}
		total += charLen(it.block.Text)
	}
	return total
}

// appendedSize measures the chunk that would result from adding text to
// the pending run.
func appendedSize(items []pendingItem, text string) int {
	total := joinedSize(items)
	if total > 0 {
		total += charLen(blockSeparator)
	}
	return total + charLen(text)
}

// splitOversized picks the split path for a block larger than the
// target. Tables and code regions split on line boundaries so rows are
// never torn; running text goes through the configured strategy.
func splitOversized(block core.Block, targetSize, overlap int, splitter Splitter) ([]string, error) {
	switch block.Type {
	case core.BlockTable, core.BlockCode:
		return lineSplit(block.Text, targetSize), nil
	default:
		return splitter.Split(block.Text, targetSize, overlap)
	}
}
