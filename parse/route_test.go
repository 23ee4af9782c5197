package parse

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/docmill/core"
)

// countingParser records how often it was invoked.
type countingParser struct {
	calls  int
	result *Result
}

func (p *countingParser) Parse(context.Context, Document, core.ParseOptions) (*Result, error) {
	p.calls++
	return p.result, nil
}

func TestRouterDispatch(t *testing.T) {
	remote := &countingParser{result: &Result{PageCount: 3}}
	local := &countingParser{result: &Result{}}

	isPDF := func(doc Document) bool {
		return filepath.Ext(doc.Name) == ".pdf"
	}
	router := NewRouter(local, Route{Match: isPDF, Parser: remote})

	ctx := context.Background()

	res, err := router.Parse(ctx, Document{Name: "report.pdf"}, core.ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, res.PageCount)
	assert.Equal(t, 1, remote.calls)
	assert.Equal(t, 0, local.calls)

	_, err = router.Parse(ctx, Document{Name: "notes.md"}, core.ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, remote.calls)
	assert.Equal(t, 1, local.calls)

	_, err = router.Parse(ctx, Document{Name: "table.csv"}, core.ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, local.calls)
}

func TestRouterFirstMatchWins(t *testing.T) {
	first := &countingParser{result: &Result{}}
	second := &countingParser{result: &Result{}}
	always := func(Document) bool { return true }

	router := NewRouter(second, Route{Match: always, Parser: first}, Route{Match: always, Parser: second})

	_, err := router.Parse(context.Background(), Document{Name: "x"}, core.ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, second.calls)
}
