package parse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/docmill/core"
)

func TestLocalParserMarkdown(t *testing.T) {
	parser := NewLocalParser()

	doc := Document{
		Name: "notes.md",
		Data: []byte("# Heading\n\nBody text.\n"),
	}
	result, err := parser.Parse(context.Background(), doc, core.ParseOptions{})
	require.NoError(t, err)

	require.Len(t, result.Blocks, 2)
	assert.Equal(t, core.BlockHeading, result.Blocks[0].Type)
	assert.Equal(t, core.BlockParagraph, result.Blocks[1].Type)
	assert.Equal(t, 0, result.PageCount, "text sources are unpaged")
}

func TestLocalParserCSV(t *testing.T) {
	parser := NewLocalParser()

	doc := Document{
		Name: "people.csv",
		Data: []byte("name,age\nada,36\ngrace,45\n"),
	}
	result, err := parser.Parse(context.Background(), doc, core.ParseOptions{})
	require.NoError(t, err)

	require.Len(t, result.Blocks, 1)
	assert.Equal(t, core.BlockTable, result.Blocks[0].Type)
	assert.Contains(t, result.Blocks[0].Text, "ada")
	assert.Contains(t, result.Blocks[0].Text, "grace")
}

func TestLocalParserRejections(t *testing.T) {
	parser := NewLocalParser()
	ctx := context.Background()

	tests := []struct {
		name string
		doc  Document
	}{
		{"empty document", Document{Name: "empty.txt"}},
		{"invalid utf-8", Document{Name: "bin.txt", Data: []byte{0xff, 0xfe, 0x00, 0x01}}},
		{"unsupported type", Document{Name: "scan.pdf", MIME: "application/pdf", Data: []byte("%PDF-1.4")}},
		{"malformed csv", Document{Name: "bad.csv", Data: []byte("a,\"b\nc")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parser.Parse(ctx, tt.doc, core.ParseOptions{})
			assert.ErrorIs(t, err, ErrFatal)
			assert.False(t, Retryable(err))
		})
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		doc  Document
		want sourceFormat
	}{
		{"csv extension", Document{Name: "x.csv"}, formatCSV},
		{"tsv extension", Document{Name: "x.tsv"}, formatTSV},
		{"markdown extension", Document{Name: "x.md"}, formatText},
		{"csv mime", Document{MIME: "text/csv; charset=utf-8"}, formatCSV},
		{"plain mime", Document{MIME: "text/plain"}, formatText},
		{"other text mime", Document{MIME: "text/html"}, formatText},
		{"no hints", Document{}, formatText},
		{"binary mime", Document{Name: "doc.pdf", MIME: "application/pdf"}, formatUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detectFormat(tt.doc))
		})
	}
}

func TestCSVToMarkdown(t *testing.T) {
	table, err := csvToMarkdown([]byte("h1,h2\na|b,c\n"), ',')
	require.NoError(t, err)
	assert.Equal(t, "|h1|h2|\n|---|---|\n|a\\|b|c|\n", table)

	// Ragged rows pad to the widest row.
	table, err = csvToMarkdown([]byte("a,b,c\n1\n"), ',')
	require.NoError(t, err)
	assert.Equal(t, "|a|b|c|\n|---|---|---|\n|1|||\n", table)
}
