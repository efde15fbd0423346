package testsupport

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile fills the target path with the requested number of bytes, enough
// to stand in for a source media file. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	const chunkSize = 32 * 1024
	buf := make([]byte, chunkSize)
	for i := range buf {
		buf[i] = 0x42
	}

	remaining := size
	for remaining > 0 {
		toWrite := int64(chunkSize)
		if remaining < toWrite {
			toWrite = remaining
		}
		if _, err := f.Write(buf[:toWrite]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		remaining -= toWrite
	}
}

// Chunk audio matches what the chunker asks ffmpeg for: 16 kHz mono s16le.
const (
	wavSampleRate = 16000
	wavChannels   = 1
	wavBitDepth   = 16
)

// WriteWAV writes a silent PCM WAV file of the given duration in the chunk
// format. The header is valid, so the file can stand in for a real chunk.
func WriteWAV(t testing.TB, path string, seconds float64) {
	t.Helper()

	if seconds < 0 {
		seconds = 0
	}
	blockAlign := wavChannels * wavBitDepth / 8
	dataSize := uint32(seconds*wavSampleRate) * uint32(blockAlign)

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, 36+dataSize)
	buf.WriteString("WAVEfmt ")
	for _, v := range []any{
		uint32(16), // fmt chunk size
		uint16(1),  // PCM
		uint16(wavChannels),
		uint32(wavSampleRate),
		uint32(wavSampleRate * blockAlign),
		uint16(blockAlign),
		uint16(wavBitDepth),
	} {
		_ = binary.Write(&buf, binary.LittleEndian, v)
	}
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, dataSize)
	buf.Write(make([]byte, dataSize))

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteChunkSet writes count short speech-NNN.wav files into dir and returns
// their paths in playback order.
func WriteChunkSet(t testing.TB, dir string, count int) []string {
	t.Helper()

	paths := make([]string, 0, count)
	for i := 1; i <= count; i++ {
		path := filepath.Join(dir, fmt.Sprintf("speech-%03d.wav", i))
		WriteWAV(t, path, 0.01)
		paths = append(paths, path)
	}
	return paths
}
