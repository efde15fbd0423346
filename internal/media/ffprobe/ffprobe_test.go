package ffprobe

import (
	"context"
	"errors"
	"math"
	"slices"
	"testing"
)

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "video"},
			{CodecType: "audio"},
			{CodecType: "audio"},
		},
		Format: Format{
			Duration: "123.45",
			Size:     "1000",
		},
	}
	if result.AudioStreamCount() != 2 {
		t.Fatalf("expected 2 audio streams, got %d", result.AudioStreamCount())
	}
	if result.DurationSeconds() != 123.45 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 1000 {
		t.Fatalf("unexpected size: %d", result.SizeBytes())
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{
		Format: Format{
			Duration: "bad",
			Size:     "-1",
		},
	}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected duration NaN, got %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 0 {
		t.Fatalf("expected size 0, got %d", result.SizeBytes())
	}
}

func TestDurationFallsBackToAudioStream(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "audio", Duration: "61.5"},
			{CodecType: "audio", Duration: "N/A"},
			{CodecType: "video", Duration: "900"},
		},
		Format: Format{Duration: "N/A"},
	}
	if got := result.DurationSeconds(); got != 61.5 {
		t.Fatalf("expected 61.5, got %v", got)
	}
}

func TestInspectWith(t *testing.T) {
	var gotBinary string
	var gotArgs []string
	run := func(_ context.Context, binary string, args ...string) ([]byte, error) {
		gotBinary = binary
		gotArgs = args
		return []byte(`{"streams":[{"index":0,"codec_type":"audio","codec_name":"mp3","channels":2}],"format":{"duration":"1200.5","format_name":"mp3"}}`), nil
	}
	result, err := InspectWith(context.Background(), run, "", " /media/talk.mp3 ")
	if err != nil {
		t.Fatalf("InspectWith: %v", err)
	}
	if gotBinary != "ffprobe" {
		t.Fatalf("binary = %q", gotBinary)
	}
	if gotArgs[len(gotArgs)-1] != "/media/talk.mp3" || !slices.Contains(gotArgs, "-show_format") {
		t.Fatalf("unexpected args: %v", gotArgs)
	}
	if result.DurationSeconds() != 1200.5 || result.AudioStreamCount() != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestInspectWithErrors(t *testing.T) {
	if _, err := InspectWith(context.Background(), nil, "ffprobe", "  "); err == nil {
		t.Fatal("expected error for empty path")
	}
	failing := func(context.Context, string, ...string) ([]byte, error) {
		return nil, errors.New("exit status 1: No such file")
	}
	if _, err := InspectWith(context.Background(), failing, "ffprobe", "x.wav"); err == nil {
		t.Fatal("expected runner error")
	}
	garbage := func(context.Context, string, ...string) ([]byte, error) {
		return []byte("not json"), nil
	}
	if _, err := InspectWith(context.Background(), garbage, "ffprobe", "x.wav"); err == nil {
		t.Fatal("expected parse error")
	}
}
