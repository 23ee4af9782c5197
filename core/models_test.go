package core

import (
	"testing"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "same content produces same ID", content: "test content"},
		{name: "empty string", content: ""},
		{name: "long content", content: "This is a much longer piece of content that should still hash consistently"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)

			if id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	id1 := IDFromContent("content1")
	id2 := IDFromContent("content2")

	if id1 == id2 {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestJobFingerprint(t *testing.T) {
	opts := JobOptions{
		Chunking: ChunkOptions{TargetSize: 1000, Overlap: 100, RespectHeadings: true},
	}

	t.Run("deterministic", func(t *testing.T) {
		if JobFingerprint("blobs/abc", opts) != JobFingerprint("blobs/abc", opts) {
			t.Error("same input produced different fingerprints")
		}
	})

	t.Run("document changes fingerprint", func(t *testing.T) {
		if JobFingerprint("blobs/abc", opts) == JobFingerprint("blobs/def", opts) {
			t.Error("different documents produced same fingerprint")
		}
	})

	t.Run("options change fingerprint", func(t *testing.T) {
		other := opts
		other.Chunking.TargetSize = 500
		if JobFingerprint("blobs/abc", opts) == JobFingerprint("blobs/abc", other) {
			t.Error("different options produced same fingerprint")
		}
	})
}

func TestJobState_Terminal(t *testing.T) {
	terminals := []JobState{StateSucceeded, StateFailed, StateCancelled}
	active := []JobState{StatePending, StateParsing, StateChunking, StateStoring, StateNotifying}

	for _, s := range terminals {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range active {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from JobState
		to   JobState
		want bool
	}{
		{"start", StatePending, StateParsing, true},
		{"parse success", StateParsing, StateChunking, true},
		{"parse retry re-enters parsing", StateParsing, StateParsing, true},
		{"parse fatal", StateParsing, StateFailed, true},
		{"chunk success", StateChunking, StateStoring, true},
		{"chunk internal error", StateChunking, StateFailed, true},
		{"store retry re-enters storing", StateStoring, StateStoring, true},
		{"store success", StateStoring, StateNotifying, true},
		{"notify always succeeds the job", StateNotifying, StateSucceeded, true},
		{"cancel from pending", StatePending, StateCancelled, true},
		{"cancel from storing", StateStoring, StateCancelled, true},
		{"no skipping stages", StatePending, StateChunking, false},
		{"no rewinding", StateStoring, StateParsing, false},
		{"no rewinding to chunking", StateNotifying, StateChunking, false},
		{"terminal states are final", StateSucceeded, StateParsing, false},
		{"no cancelling terminal", StateFailed, StateCancelled, false},
		{"chunking never re-enters", StateChunking, StateChunking, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}
