package ledger_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"chunkvtt/internal/caption"
	"chunkvtt/internal/ledger"
)

func sampleState() ledger.State {
	return ledger.State{
		SchemaVersion: ledger.SchemaVersion,
		TotalSeconds:  1199.9,
		Captions: []caption.Caption{
			{Start: 0, End: 598.2, Text: "a", SourceChunk: "/w/speech-001.wav"},
			{Start: 599.9, End: 1199.9, Text: "b", SourceChunk: "/w/speech-002.wav"},
		},
		CompletedChunks: []string{"/w/speech-001.wav", "/w/speech-002.wav"},
		Job: &ledger.JobInfo{
			Source:       "/media/a.wav",
			ChunkSeconds: 600,
			ChunkCount:   3,
			Recognizer:   "whisperx",
			RunID:        "run-1",
			UpdatedAt:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		},
	}
}

func writeLedger(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "resume.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingReturnsEmpty(t *testing.T) {
	state, err := ledger.Load(filepath.Join(t.TempDir(), "resume.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !state.IsEmpty() || state.SchemaVersion != ledger.SchemaVersion || state.Captions == nil {
		t.Fatalf("unexpected empty state: %+v", state)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "resume.json")
	want := sampleState()
	if err := ledger.Save(path, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := ledger.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}

	if err := ledger.Save(path, got); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	again, err := ledger.Load(path)
	if err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if !reflect.DeepEqual(again, want) {
		t.Fatalf("second round trip mismatch: %+v", again)
	}
}

func TestSaveSupersedesPreviousSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resume.json")
	if err := ledger.Save(path, sampleState()); err != nil {
		t.Fatal(err)
	}
	next := ledger.Empty()
	next.TotalSeconds = 600
	next.CompletedChunks = []string{"/w/speech-001.wav"}
	if err := ledger.Save(path, next); err != nil {
		t.Fatal(err)
	}
	got, err := ledger.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, next) {
		t.Fatalf("got %+v, want %+v", got, next)
	}
}

func TestLoadLegacyFormat(t *testing.T) {
	path := writeLedger(t, `{"total_seconds": 599.9, "captions": [{"start_seconds": 0, "end_seconds": 12.5, "text": "hi", "wav_file": "split_wavs/speech-001.wav"}]}`)
	state, err := ledger.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if state.SchemaVersion != 1 || state.TotalSeconds != 599.9 || len(state.Captions) != 1 {
		t.Fatalf("unexpected state: %+v", state)
	}
	if state.Captions[0].SourceChunk != "split_wavs/speech-001.wav" || state.Captions[0].Text != "hi" {
		t.Fatalf("unexpected caption: %+v", state.Captions[0])
	}
	if state.CompletedChunks != nil || state.Job != nil {
		t.Fatalf("expected no optional fields: %+v", state)
	}
	if _, ok := state.DoneChunks()["split_wavs/speech-001.wav"]; !ok {
		t.Fatal("expected caption chunk in done set")
	}
}

func TestLoadCorrupt(t *testing.T) {
	tests := map[string]string{
		"empty file":         "",
		"whitespace":         "  \n",
		"truncated":          `{"total_seconds": 1, "captions": [`,
		"not json":           "resume",
		"array":              `[]`,
		"missing total":      `{"captions": []}`,
		"missing captions":   `{"total_seconds": 0}`,
		"null captions":      `{"total_seconds": 0, "captions": null}`,
		"negative total":     `{"total_seconds": -1, "captions": []}`,
		"caption no start":   `{"total_seconds": 1, "captions": [{"end_seconds": 1, "text": "x", "wav_file": "a"}]}`,
		"caption no end":     `{"total_seconds": 1, "captions": [{"start_seconds": 1, "text": "x", "wav_file": "a"}]}`,
		"caption no text":    `{"total_seconds": 1, "captions": [{"start_seconds": 0, "end_seconds": 1, "wav_file": "a"}]}`,
		"caption null chunk": `{"total_seconds": 1, "captions": [{"start_seconds": 0, "end_seconds": 1, "text": "x", "wav_file": null}]}`,
		"caption inverted":   `{"total_seconds": 1, "captions": [{"start_seconds": 2, "end_seconds": 1, "text": "x", "wav_file": "a"}]}`,
		"caption negative":   `{"total_seconds": 1, "captions": [{"start_seconds": -2, "end_seconds": 1, "text": "x", "wav_file": "a"}]}`,
		"wrong type":         `{"total_seconds": "1", "captions": []}`,
		"unknown field":      `{"total_seconds": 1, "captions": [], "offset": 3}`,
		"future version":     `{"schema_version": 2, "total_seconds": 1, "captions": []}`,
		"zero version":       `{"schema_version": 0, "total_seconds": 1, "captions": []}`,
		"trailing data":      `{"total_seconds": 1, "captions": []} {}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ledger.Load(writeLedger(t, body))
			if !errors.Is(err, ledger.ErrCorrupt) {
				t.Fatalf("expected ErrCorrupt, got %v", err)
			}
		})
	}
}

func TestLoadUnreadableIsNotCorrupt(t *testing.T) {
	dir := t.TempDir()
	_, err := ledger.Load(dir)
	if err == nil {
		t.Fatal("expected error reading a directory")
	}
	if errors.Is(err, ledger.ErrCorrupt) {
		t.Fatalf("I/O failure should not be reported as corrupt: %v", err)
	}
}

func TestSaveWritesSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resume.json")
	if err := ledger.Save(path, ledger.State{}); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, fragment := range []string{`"schema_version": 1`, `"total_seconds": 0`, `"captions": []`} {
		if !strings.Contains(string(data), fragment) {
			t.Fatalf("expected %s in %s", fragment, data)
		}
	}
}

func TestDiscard(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resume.json")
	if err := ledger.Discard(path); err != nil {
		t.Fatalf("Discard missing: %v", err)
	}
	if err := ledger.Save(path, sampleState()); err != nil {
		t.Fatal(err)
	}
	if err := ledger.Discard(path); err != nil {
		t.Fatalf("Discard: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("ledger still present: %v", err)
	}
	state, err := ledger.Load(path)
	if err != nil || !state.IsEmpty() {
		t.Fatalf("expected empty state after discard: %+v %v", state, err)
	}
}

func TestDoneChunksUnion(t *testing.T) {
	state := ledger.State{
		Captions:        []caption.Caption{{SourceChunk: "a"}, {SourceChunk: "a"}, {SourceChunk: "b"}},
		CompletedChunks: []string{"b", "c"},
	}
	done := state.DoneChunks()
	if len(done) != 3 {
		t.Fatalf("done = %v", done)
	}
	for _, id := range []string{"a", "b", "c"} {
		if _, ok := done[id]; !ok {
			t.Fatalf("missing %s", id)
		}
	}
}
