package datalab

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/docmill/core"
	"github.com/poiesic/docmill/parse"
)

func pageMarker(n int) string {
	return fmt.Sprintf("\n\n{%d}%s\n\n", n, strings.Repeat("-", 48))
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New("test-key",
		WithBaseURL(server.URL),
		WithHTTPClient(server.Client()),
		WithPollInterval(time.Millisecond),
		WithMaxPolls(10),
	)
	require.NoError(t, err)
	return client, server
}

func TestClientParse(t *testing.T) {
	var polls atomic.Int32

	markdown := pageMarker(0) + "# Page one\n\nFirst page text." +
		pageMarker(1) + "Second page text."

	mux := http.NewServeMux()
	mux.HandleFunc("POST /", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "true", r.FormValue("force_ocr"))
		assert.Equal(t, "markdown", r.FormValue("output_format"))
		assert.Equal(t, "true", r.FormValue("paginate"))

		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		assert.Equal(t, "report.pdf", header.Filename)

		json.NewEncoder(w).Encode(submitResponse{Success: true, RequestID: "req-1"})
	})
	mux.HandleFunc("GET /req-1", func(w http.ResponseWriter, r *http.Request) {
		if polls.Add(1) < 3 {
			json.NewEncoder(w).Encode(conversionStatus{Status: "processing"})
			return
		}
		json.NewEncoder(w).Encode(conversionStatus{
			Status:    "complete",
			Success:   true,
			Markdown:  markdown,
			PageCount: 2,
		})
	})

	client, _ := newTestClient(t, mux)

	doc := parse.Document{Name: "report.pdf", Data: []byte("%PDF-1.4")}
	result, err := client.Parse(context.Background(), doc, core.ParseOptions{ForceOCR: true})
	require.NoError(t, err)

	assert.Equal(t, 2, result.PageCount)
	require.Len(t, result.Blocks, 3)
	assert.Equal(t, core.BlockHeading, result.Blocks[0].Type)
	assert.Equal(t, 1, result.Blocks[0].Position.Page)
	assert.Equal(t, 1, result.Blocks[1].Position.Page)
	assert.Equal(t, 2, result.Blocks[2].Position.Page)
	assert.Equal(t, "Second page text.", result.Blocks[2].Text)
	assert.GreaterOrEqual(t, polls.Load(), int32(3))
}

func TestClientSubmitClassification(t *testing.T) {
	tests := []struct {
		name    string
		code    int
		wantErr error
	}{
		{"client error is fatal", http.StatusUnprocessableEntity, parse.ErrFatal},
		{"auth error is fatal", http.StatusUnauthorized, parse.ErrFatal},
		{"server error is transient", http.StatusServiceUnavailable, parse.ErrTransient},
		{"rate limit is transient", http.StatusTooManyRequests, parse.ErrTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
			}))

			_, err := client.Parse(context.Background(), parse.Document{Data: []byte("x")}, core.ParseOptions{})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestClientSubmitRejected(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(submitResponse{Success: false, Error: "unsupported file"})
	}))

	_, err := client.Parse(context.Background(), parse.Document{Data: []byte("x")}, core.ParseOptions{})
	assert.ErrorIs(t, err, parse.ErrFatal)
	assert.Contains(t, err.Error(), "unsupported file")
}

func TestClientConversionFailed(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(submitResponse{Success: true, RequestID: "req-2"})
	})
	mux.HandleFunc("GET /req-2", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(conversionStatus{Status: "failed", Error: "corrupt document"})
	})

	client, _ := newTestClient(t, mux)

	_, err := client.Parse(context.Background(), parse.Document{Data: []byte("x")}, core.ParseOptions{})
	assert.ErrorIs(t, err, parse.ErrFatal)
	assert.Contains(t, err.Error(), "corrupt document")
}

func TestClientPollBudgetExhausted(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(submitResponse{Success: true, RequestID: "req-3"})
	})
	mux.HandleFunc("GET /req-3", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(conversionStatus{Status: "processing"})
	})

	client, _ := newTestClient(t, mux)

	_, err := client.Parse(context.Background(), parse.Document{Data: []byte("x")}, core.ParseOptions{})
	assert.ErrorIs(t, err, parse.ErrTimeout)
	assert.True(t, parse.Retryable(err))
}

func TestClientToleratesTransientPolls(t *testing.T) {
	var polls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("POST /", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(submitResponse{Success: true, RequestID: "req-4"})
	})
	mux.HandleFunc("GET /req-4", func(w http.ResponseWriter, r *http.Request) {
		if polls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(conversionStatus{
			Status:   "complete",
			Success:  true,
			Markdown: "just one paragraph",
		})
	})

	client, _ := newTestClient(t, mux)

	result, err := client.Parse(context.Background(), parse.Document{Data: []byte("x")}, core.ParseOptions{})
	require.NoError(t, err)
	require.Len(t, result.Blocks, 1)
	assert.Equal(t, "just one paragraph", result.Blocks[0].Text)
	assert.Equal(t, 1, result.Blocks[0].Position.Page)
}

func TestSupports(t *testing.T) {
	assert.True(t, Supports(parse.Document{MIME: "application/pdf"}))
	assert.True(t, Supports(parse.Document{Name: "slides.pptx"}))
	assert.True(t, Supports(parse.Document{MIME: "image/png; something"}))
	assert.False(t, Supports(parse.Document{Name: "notes.md", MIME: "text/markdown"}))
	assert.False(t, Supports(parse.Document{}))
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New("")
	require.Error(t, err)
}

// TestRoutedParse covers the deployment wiring: Marker-convertible
// formats reach the remote client, text-native formats never leave the
// process.
func TestRoutedParse(t *testing.T) {
	var remoteCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /", func(w http.ResponseWriter, r *http.Request) {
		remoteCalls.Add(1)
		json.NewEncoder(w).Encode(submitResponse{Success: true, RequestID: "req-9"})
	})
	mux.HandleFunc("GET /req-9", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(conversionStatus{
			Status:   "complete",
			Success:  true,
			Markdown: "Converted body.",
		})
	})
	client, _ := newTestClient(t, mux)

	router := parse.NewRouter(parse.NewLocalParser(), parse.Route{Match: Supports, Parser: client})
	ctx := context.Background()

	res, err := router.Parse(ctx, parse.Document{Name: "scan.pdf", Data: []byte{0x25, 0x50}}, core.ParseOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, res.Blocks)
	assert.Equal(t, int32(1), remoteCalls.Load())

	res, err = router.Parse(ctx, parse.Document{
		Name: "table.csv",
		MIME: "text/csv",
		Data: []byte("h1,h2\na,b\n"),
	}, core.ParseOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, res.Blocks)
	assert.Equal(t, core.BlockTable, res.Blocks[0].Type)
	assert.Equal(t, int32(1), remoteCalls.Load(), "text-native formats must not hit the remote API")
}
