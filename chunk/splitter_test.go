package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentenceSplitter(t *testing.T) {
	splitter := NewSentenceSplitter()
	text := strings.TrimSpace(strings.Repeat("Alpha beta gamma delta epsilon zeta. ", 10))

	segments, err := splitter.Split(text, 100, 30)
	require.NoError(t, err)
	require.Greater(t, len(segments), 1)

	for i, seg := range segments {
		assert.LessOrEqual(t, charLen(seg), 100, "segment %d too large", i)
		assert.NotEmpty(t, strings.TrimSpace(seg))
	}

	// Overlap seeds each segment with the tail of the previous one.
	for i := 1; i < len(segments); i++ {
		prev := segments[i-1]
		assert.True(t, strings.HasPrefix(segments[i], "Alpha"),
			"segment %d should start at a sentence boundary", i)
		assert.True(t, strings.HasSuffix(prev, "."),
			"segment %d should end at a sentence boundary", i-1)
	}
}

func TestSentenceSplitterNoOverlap(t *testing.T) {
	splitter := NewSentenceSplitter()
	text := "First point stands alone. Second point stands alone. Third point stands alone."

	segments, err := splitter.Split(text, 30, 0)
	require.NoError(t, err)
	require.Len(t, segments, 3)

	// Without overlap, concatenation loses nothing and repeats nothing.
	assert.Equal(t, text, strings.Join(segments, " "))
}

func TestSentenceSplitterMonsterSentence(t *testing.T) {
	splitter := NewSentenceSplitter()
	text := strings.Repeat("x", 250)

	segments, err := splitter.Split(text, 100, 0)
	require.NoError(t, err)
	require.Len(t, segments, 3)
	for _, seg := range segments {
		assert.LessOrEqual(t, charLen(seg), 100)
	}
	assert.Equal(t, text, strings.Join(segments, ""))
}

func TestSentenceSplitterEmpty(t *testing.T) {
	splitter := NewSentenceSplitter()

	segments, err := splitter.Split("   ", 100, 10)
	require.NoError(t, err)
	assert.Empty(t, segments)
}

func TestRecursiveSplitter(t *testing.T) {
	splitter := NewRecursiveSplitter()
	text := strings.TrimSpace(strings.Repeat("one two three four five six seven eight.\n\n", 8))

	segments, err := splitter.Split(text, 90, 10)
	require.NoError(t, err)
	require.Greater(t, len(segments), 1)
	for i, seg := range segments {
		assert.LessOrEqual(t, charLen(seg), 90, "segment %d too large", i)
		assert.NotEmpty(t, seg)
	}
}

func TestOverlapTail(t *testing.T) {
	parts := []string{"aaaa", "bbbb", "cccc"}

	assert.Empty(t, overlapTail(parts, 0))
	assert.Equal(t, []string{"cccc"}, overlapTail(parts, 4))
	assert.Equal(t, []string{"bbbb", "cccc"}, overlapTail(parts, 9))
	assert.Equal(t, parts, overlapTail(parts, 100))
	// A budget smaller than the last sentence yields no overlap rather
	// than a torn sentence.
	assert.Empty(t, overlapTail(parts, 3))
}

func TestWindowSplit(t *testing.T) {
	assert.Equal(t, []string{"short"}, windowSplit("short", 10, 2))

	segments := windowSplit("abcdefghij", 4, 2)
	assert.Equal(t, []string{"abcd", "cdef", "efgh", "ghij"}, segments)
}

func TestLineSplit(t *testing.T) {
	text := "|h|\n|---|\n|1|\n|2|\n|3|"

	segments := lineSplit(text, 10)
	require.Greater(t, len(segments), 1)
	assert.Equal(t, text, strings.Join(segments, "\n"))
	for _, seg := range segments {
		assert.LessOrEqual(t, charLen(seg), 10)
	}
}
