package recognizer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"chunkvtt/internal/services"
)

func writeModel(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ggml-base.bin")
	if err := os.WriteFile(path, []byte("model"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestWhisperCppTranscribe(t *testing.T) {
	model := writeModel(t)
	w := NewWhisperCpp(WhisperCppConfig{Model: model, Language: "ja", Threads: 8}, nil)
	var gotArgs []string
	w.WithCommandRunner(func(_ context.Context, name string, args ...string) error {
		if name != "whisper-cli" {
			t.Errorf("binary = %q", name)
		}
		gotArgs = args
		payload := `{"result":{"language":"ja"},"transcription":[
			{"timestamps":{"from":"00:00:00,000","to":"00:00:02,500"},"offsets":{"from":0,"to":2500},"text":" hello"},
			{"timestamps":{"from":"00:00:02,500","to":"00:00:04,000"},"offsets":{"from":2500,"to":4000},"text":" [BLANK_AUDIO] "},
			{"offsets":{"from":4000,"to":4000},"text":" "}
		]}`
		return os.WriteFile(argValue(args, "-of")+".json", []byte(payload), 0o644)
	})

	segments, err := w.Transcribe(context.Background(), "/work/speech-001.wav")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	want := []Segment{{Start: 0, End: 2.5, Text: "hello"}, {Start: 2.5, End: 4, Text: "[BLANK_AUDIO]"}}
	if !slices.Equal(segments, want) {
		t.Fatalf("segments = %+v, want %+v", segments, want)
	}
	for flag, want := range map[string]string{"-m": model, "-l": "ja", "-t": "8", "-f": "/work/speech-001.wav"} {
		if got := argValue(gotArgs, flag); got != want {
			t.Errorf("%s = %q, want %q", flag, got, want)
		}
	}
	if !slices.Contains(gotArgs, "-oj") {
		t.Fatalf("expected -oj in %v", gotArgs)
	}
}

func TestWhisperCppMissingModel(t *testing.T) {
	w := NewWhisperCpp(WhisperCppConfig{Model: filepath.Join(t.TempDir(), "missing.bin")}, nil)
	w.WithCommandRunner(func(context.Context, string, ...string) error {
		t.Fatal("runner should not be called")
		return nil
	})
	if _, err := w.Transcribe(context.Background(), "/work/speech-001.wav"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestWhisperCppAutoLanguage(t *testing.T) {
	w := NewWhisperCpp(WhisperCppConfig{Model: "m.bin", Language: "auto"}, nil)
	if got := argValue(w.buildArgs("a.wav", "out"), "-l"); got != "auto" {
		t.Fatalf("-l = %q, want auto", got)
	}
}

func TestWhisperCppInvalidOutput(t *testing.T) {
	w := NewWhisperCpp(WhisperCppConfig{Model: writeModel(t)}, nil)
	w.WithCommandRunner(func(_ context.Context, _ string, args ...string) error {
		return os.WriteFile(argValue(args, "-of")+".json", []byte("{not json"), 0o644)
	})
	if _, err := w.Transcribe(context.Background(), "/work/speech-001.wav"); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
}
