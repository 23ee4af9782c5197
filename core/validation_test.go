package core

import (
	"errors"
	"testing"
)

func TestValidateChunkOptions(t *testing.T) {
	tests := []struct {
		name    string
		opts    ChunkOptions
		wantErr error
	}{
		{
			name:    "valid options",
			opts:    ChunkOptions{TargetSize: 1000, Overlap: 100, MaxOverlapRatio: 0.2},
			wantErr: nil,
		},
		{
			name:    "valid with named splitter",
			opts:    ChunkOptions{TargetSize: 500, Splitter: SplitterRecursive},
			wantErr: nil,
		},
		{
			name:    "zero target size",
			opts:    ChunkOptions{TargetSize: 0},
			wantErr: ErrInvalidTargetSize,
		},
		{
			name:    "negative target size",
			opts:    ChunkOptions{TargetSize: -10},
			wantErr: ErrInvalidTargetSize,
		},
		{
			name:    "negative overlap",
			opts:    ChunkOptions{TargetSize: 100, Overlap: -1},
			wantErr: ErrInvalidOverlap,
		},
		{
			name:    "overlap at target size",
			opts:    ChunkOptions{TargetSize: 100, Overlap: 100},
			wantErr: ErrInvalidOverlap,
		},
		{
			name:    "ratio above one",
			opts:    ChunkOptions{TargetSize: 100, MaxOverlapRatio: 1.5},
			wantErr: ErrInvalidOverlapRatio,
		},
		{
			name:    "unknown splitter",
			opts:    ChunkOptions{TargetSize: 100, Splitter: "semantic"},
			wantErr: ErrUnknownSplitter,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChunkOptions(tt.opts)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateChunkOptions() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateChunkOptions() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidOptions) {
				t.Errorf("ValidateChunkOptions() error should wrap ErrInvalidOptions, got %v", err)
			}
		})
	}
}

func TestValidateSubmission(t *testing.T) {
	valid := JobOptions{Chunking: ChunkOptions{TargetSize: 100}}

	tests := []struct {
		name        string
		documentRef string
		opts        JobOptions
		callbackURL string
		wantErr     error
	}{
		{
			name:        "valid without callback",
			documentRef: "blobs/abc",
			opts:        valid,
		},
		{
			name:        "valid with callback",
			documentRef: "blobs/abc",
			opts:        valid,
			callbackURL: "https://platform.example.com/hooks/jobs",
		},
		{
			name:    "empty document ref",
			opts:    valid,
			wantErr: ErrEmptyDocumentRef,
		},
		{
			name:        "invalid chunk options propagate",
			documentRef: "blobs/abc",
			opts:        JobOptions{Chunking: ChunkOptions{TargetSize: 0}},
			wantErr:     ErrInvalidTargetSize,
		},
		{
			name:        "non-http callback",
			documentRef: "blobs/abc",
			opts:        valid,
			callbackURL: "ftp://example.com/hook",
			wantErr:     ErrInvalidCallbackURL,
		},
		{
			name:        "callback without host",
			documentRef: "blobs/abc",
			opts:        valid,
			callbackURL: "https://",
			wantErr:     ErrInvalidCallbackURL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSubmission(tt.documentRef, tt.opts, tt.callbackURL)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateSubmission() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateSubmission() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestChunkOptions_EffectiveOverlap(t *testing.T) {
	tests := []struct {
		name string
		opts ChunkOptions
		want int
	}{
		{"no ratio cap", ChunkOptions{TargetSize: 100, Overlap: 30}, 30},
		{"ratio caps overlap", ChunkOptions{TargetSize: 100, Overlap: 30, MaxOverlapRatio: 0.1}, 10},
		{"ratio above overlap is inert", ChunkOptions{TargetSize: 100, Overlap: 5, MaxOverlapRatio: 0.5}, 5},
		{"zero overlap", ChunkOptions{TargetSize: 100}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.opts.EffectiveOverlap(); got != tt.want {
				t.Errorf("EffectiveOverlap() = %d, want %d", got, tt.want)
			}
		})
	}
}
