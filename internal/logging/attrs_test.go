package logging_test

import (
	"testing"

	"chunkvtt/internal/logging"
)

func TestChunkPosition(t *testing.T) {
	tests := []struct {
		name  string
		index int
		total int
		keys  []string
	}{
		{"with total", 3, 12, []string{logging.FieldChunkIndex, logging.FieldChunkCount}},
		{"unknown total", 3, 0, []string{logging.FieldChunkIndex}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attrs := logging.ChunkPosition(tt.index, tt.total)
			if len(attrs) != len(tt.keys) {
				t.Fatalf("got %d attrs, want %d", len(attrs), len(tt.keys))
			}
			for i, key := range tt.keys {
				if attrs[i].Key != key {
					t.Fatalf("attr %d key = %q, want %q", i, attrs[i].Key, key)
				}
			}
			if got := attrs[0].Value.Int64(); got != int64(tt.index) {
				t.Fatalf("chunk_index = %d", got)
			}
		})
	}
}

func TestOffsetRoundsToMilliseconds(t *testing.T) {
	attr := logging.Offset(1799.99949)
	if attr.Key != logging.FieldOffset {
		t.Fatalf("key = %q", attr.Key)
	}
	if got := attr.Value.Float64(); got != 1799.999 {
		t.Fatalf("offset = %v, want 1799.999", got)
	}
}

func TestChunkAttr(t *testing.T) {
	attr := logging.Chunk("/work/chunks/speech-004.wav")
	if attr.Key != logging.FieldChunk || attr.Value.String() != "/work/chunks/speech-004.wav" {
		t.Fatalf("unexpected attr %v", attr)
	}
}
