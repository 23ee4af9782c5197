package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/docmill/core"
)

func paragraph(text string, page int) core.Block {
	return core.Block{
		Type:     core.BlockParagraph,
		Text:     text,
		Position: core.Position{Page: page},
	}
}

// assertCoverage checks the block coverage invariant: chunk source
// ranges in sequence order cover every block exactly once, and a block
// index repeats across chunks only when the block was split.
func assertCoverage(t *testing.T, chunks []core.Chunk, blockCount int) {
	t.Helper()
	require.NotEmpty(t, chunks)

	assert.Equal(t, 0, chunks[0].SourceBlocks.Start)
	assert.Equal(t, blockCount-1, chunks[len(chunks)-1].SourceBlocks.End)

	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.SequenceIndex)
		assert.LessOrEqual(t, chunk.SourceBlocks.Start, chunk.SourceBlocks.End)
		if i == 0 {
			continue
		}
		prev := chunks[i-1].SourceBlocks
		cur := chunk.SourceBlocks
		contiguous := cur.Start == prev.End+1
		splitRepeat := cur.Start == prev.End && cur.Start == cur.End && prev.Start == prev.End
		assert.True(t, contiguous || splitRepeat,
			"chunk %d range %+v does not follow %+v", i, cur, prev)
	}
}

func TestPartitionEmptyInput(t *testing.T) {
	chunks, err := Partition(nil, core.ChunkOptions{TargetSize: 100})
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestPartitionSingleChunk(t *testing.T) {
	blocks := []core.Block{
		paragraph("First block.", 1),
		paragraph("Second block.", 1),
		paragraph("Third block.", 2),
	}

	chunks, err := Partition(blocks, core.ChunkOptions{TargetSize: 200})
	require.NoError(t, err)

	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].SequenceIndex)
	assert.Equal(t, core.BlockRange{Start: 0, End: 2}, chunks[0].SourceBlocks)
	assert.Equal(t, "First block.\n\nSecond block.\n\nThird block.", chunks[0].Text)
	assert.Equal(t, len(chunks[0].Text), chunks[0].CharCount)
	assert.Equal(t, "1", chunks[0].Metadata["page"])
}

func TestPartitionPacksUpToTarget(t *testing.T) {
	blocks := []core.Block{
		paragraph(strings.Repeat("a", 40), 0),
		paragraph(strings.Repeat("b", 40), 0),
		paragraph(strings.Repeat("c", 40), 0),
		paragraph("tail", 0),
	}

	chunks, err := Partition(blocks, core.ChunkOptions{TargetSize: 90})
	require.NoError(t, err)

	// a+b fit (82 chars with separator), c starts a new chunk and the
	// short trailing block merges forward into it.
	require.Len(t, chunks, 2)
	assert.Equal(t, core.BlockRange{Start: 0, End: 1}, chunks[0].SourceBlocks)
	assert.Equal(t, core.BlockRange{Start: 2, End: 3}, chunks[1].SourceBlocks)
	assertCoverage(t, chunks, len(blocks))
}

func TestPartitionShortFinalChunk(t *testing.T) {
	blocks := []core.Block{
		paragraph(strings.Repeat("a", 90), 0),
		paragraph(strings.Repeat("b", 90), 0),
	}

	chunks, err := Partition(blocks, core.ChunkOptions{TargetSize: 100})
	require.NoError(t, err)

	// Merging would exceed the target, so the trailing block forms its
	// own short chunk.
	require.Len(t, chunks, 2)
	assertCoverage(t, chunks, len(blocks))
}

func TestPartitionWhitespaceOnlyBlocks(t *testing.T) {
	// A run of spaces longer than the target must not vanish from the
	// coverage ranges; it folds into the neighboring chunk without
	// contributing text.
	blocks := []core.Block{
		paragraph("Intro.", 0),
		paragraph(strings.Repeat(" ", 50), 0),
		paragraph("Outro.", 0),
	}

	chunks, err := Partition(blocks, core.ChunkOptions{TargetSize: 20})
	require.NoError(t, err)

	assertCoverage(t, chunks, len(blocks))
	require.Len(t, chunks, 1)
	assert.Equal(t, core.BlockRange{Start: 0, End: 2}, chunks[0].SourceBlocks)
	assert.Equal(t, "Intro.\n\nOutro.", chunks[0].Text)

	// All-blank input still covers every block.
	blank, err := Partition([]core.Block{
		paragraph("\n\t  \n", 0),
		paragraph(strings.Repeat(" ", 30), 0),
	}, core.ChunkOptions{TargetSize: 10})
	require.NoError(t, err)
	require.Len(t, blank, 1)
	assert.Equal(t, core.BlockRange{Start: 0, End: 1}, blank[0].SourceBlocks)
	assert.Empty(t, blank[0].Text)
	assert.Zero(t, blank[0].CharCount)
}

func TestPartitionRespectHeadings(t *testing.T) {
	blocks := []core.Block{
		paragraph(strings.Repeat("x", 60), 0),
		{Type: core.BlockHeading, Text: "Section two"},
		paragraph(strings.Repeat("y", 60), 0),
	}

	withPolicy, err := Partition(blocks, core.ChunkOptions{TargetSize: 80, RespectHeadings: true})
	require.NoError(t, err)

	// The heading moves into the chunk holding its following text.
	require.Len(t, withPolicy, 2)
	assert.Equal(t, core.BlockRange{Start: 0, End: 0}, withPolicy[0].SourceBlocks)
	assert.Equal(t, core.BlockRange{Start: 1, End: 2}, withPolicy[1].SourceBlocks)
	assert.True(t, strings.HasPrefix(withPolicy[1].Text, "Section two"))
	assertCoverage(t, withPolicy, len(blocks))

	without, err := Partition(blocks, core.ChunkOptions{TargetSize: 80})
	require.NoError(t, err)
	assert.Equal(t, core.BlockRange{Start: 0, End: 1}, without[0].SourceBlocks)
}

func TestPartitionOversizedBlockSplit(t *testing.T) {
	long := strings.TrimSpace(strings.Repeat("This sentence repeats itself here. ", 12))
	blocks := []core.Block{
		paragraph("Short intro.", 0),
		paragraph(long, 0),
		paragraph("Short outro.", 0),
	}

	opts := core.ChunkOptions{TargetSize: 120, Overlap: 40, MaxOverlapRatio: 0.5}
	chunks, err := Partition(blocks, opts)
	require.NoError(t, err)

	assertCoverage(t, chunks, len(blocks))

	splitChunks := 0
	for _, chunk := range chunks {
		assert.LessOrEqual(t, chunk.CharCount, opts.TargetSize,
			"chunk %d exceeds target", chunk.SequenceIndex)
		if chunk.SourceBlocks == (core.BlockRange{Start: 1, End: 1}) {
			splitChunks++
		}
	}
	assert.Greater(t, splitChunks, 1, "oversized block must split into several chunks")
}

func TestPartitionOversizedTableSplitsOnRows(t *testing.T) {
	var rows []string
	rows = append(rows, "|id|name|", "|---|---|")
	for i := 0; i < 30; i++ {
		rows = append(rows, "|row|value|")
	}
	table := core.Block{Type: core.BlockTable, Text: strings.Join(rows, "\n")}

	chunks, err := Partition([]core.Block{table}, core.ChunkOptions{TargetSize: 60})
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for _, chunk := range chunks {
		for _, line := range strings.Split(chunk.Text, "\n") {
			assert.True(t, strings.HasSuffix(line, "|"), "torn table row %q", line)
		}
	}
}

func TestPartitionDeterministic(t *testing.T) {
	blocks := []core.Block{
		paragraph(strings.Repeat("One sentence here. ", 20), 1),
		{Type: core.BlockHeading, Text: "Heading", Position: core.Position{Page: 1}},
		paragraph("Short paragraph.", 1),
	}
	opts := core.ChunkOptions{TargetSize: 100, Overlap: 20, RespectHeadings: true}

	first, err := Partition(blocks, opts)
	require.NoError(t, err)
	second, err := Partition(blocks, opts)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestPartitionInvalidOptions(t *testing.T) {
	_, err := Partition([]core.Block{paragraph("x", 0)}, core.ChunkOptions{TargetSize: 0})
	assert.ErrorIs(t, err, core.ErrInvalidOptions)

	_, err = Partition([]core.Block{paragraph("x", 0)}, core.ChunkOptions{TargetSize: 10, Splitter: "bogus"})
	assert.ErrorIs(t, err, core.ErrInvalidOptions)
}
