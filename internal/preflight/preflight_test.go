package preflight

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"chunkvtt/internal/config"
	"chunkvtt/internal/services"
)

func stubPath(t *testing.T, names ...string) {
	t.Helper()
	binDir := t.TempDir()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(binDir, name), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
			t.Fatalf("write stub %s: %v", name, err)
		}
	}
	t.Setenv("PATH", binDir)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.WorkDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	return &cfg
}

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckSourceReadable(t *testing.T) {
	f := filepath.Join(t.TempDir(), "talk.mp3")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if r := CheckSourceReadable(f); !r.Passed {
		t.Fatalf("expected pass, got %s", r.Detail)
	}
	if r := CheckSourceReadable(filepath.Dir(f)); r.Passed {
		t.Fatal("expected failure for directory")
	}
	if r := CheckSourceReadable(filepath.Join(t.TempDir(), "missing.mp3")); r.Passed {
		t.Fatal("expected failure for missing file")
	}
}

func TestCheckWhisperCppModel(t *testing.T) {
	model := filepath.Join(t.TempDir(), "ggml-base.bin")
	if err := os.WriteFile(model, []byte("m"), 0o644); err != nil {
		t.Fatal(err)
	}
	if r := CheckWhisperCppModel(model); !r.Passed {
		t.Fatalf("expected pass, got %s", r.Detail)
	}
	if r := CheckWhisperCppModel(""); r.Passed {
		t.Fatal("expected failure for empty path")
	}
	if r := CheckWhisperCppModel(model + ".missing"); r.Passed {
		t.Fatal("expected failure for missing model")
	}
}

func TestCheckCUDA(t *testing.T) {
	stubPath(t, "nvidia-smi")
	original := commandOutput
	t.Cleanup(func() { commandOutput = original })

	commandOutput = func(context.Context, string, ...string) ([]byte, error) {
		return []byte("GPU 0: NVIDIA GeForce RTX 4090 (UUID: GPU-abc)\n"), nil
	}
	if r := CheckCUDA(context.Background()); !r.Passed || !strings.Contains(r.Detail, "RTX 4090") {
		t.Fatalf("expected pass with GPU detail, got %+v", r)
	}

	commandOutput = func(context.Context, string, ...string) ([]byte, error) {
		return []byte("No devices were found\n"), nil
	}
	if r := CheckCUDA(context.Background()); r.Passed {
		t.Fatal("expected failure without GPUs")
	}

	commandOutput = func(context.Context, string, ...string) ([]byte, error) {
		return nil, errors.New("exit status 9")
	}
	if r := CheckCUDA(context.Background()); r.Passed {
		t.Fatal("expected failure when nvidia-smi fails")
	}
}

func TestCheckCUDAMissingBinary(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	if r := CheckCUDA(context.Background()); r.Passed {
		t.Fatal("expected failure without nvidia-smi")
	}
}

func TestCheckOpenAI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("Authorization") != "Bearer good-key" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"whisper-1","object":"model"}]}`))
	}))
	defer srv.Close()

	good := config.Recognizer{OpenAIAPIKey: "good-key", OpenAIBaseURL: srv.URL + "/v1"}
	if r := CheckOpenAI(context.Background(), good); !r.Passed {
		t.Fatalf("expected pass, got %s", r.Detail)
	}
	bad := config.Recognizer{OpenAIAPIKey: "bad-key", OpenAIBaseURL: srv.URL + "/v1"}
	if r := CheckOpenAI(context.Background(), bad); r.Passed || !strings.Contains(r.Detail, "auth failed") {
		t.Fatalf("expected auth failure, got %+v", r)
	}
	if r := CheckOpenAI(context.Background(), config.Recognizer{}); r.Passed {
		t.Fatal("expected failure for missing key")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_WhisperXStubbed(t *testing.T) {
	stubPath(t, "ffmpeg", "ffprobe", "uvx")
	cfg := testConfig(t)

	results := RunAll(context.Background(), cfg)
	// work dir, log dir, ffmpeg, ffprobe, uvx
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d: %+v", len(results), results)
	}
	for _, r := range results {
		if !r.Passed {
			t.Errorf("check %q failed: %s", r.Name, r.Detail)
		}
	}
	if err := Err(results); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestRunAll_ReportsMissingBinariesAndKey(t *testing.T) {
	stubPath(t, "ffmpeg")
	cfg := testConfig(t)
	cfg.Recognizer.Engine = config.EngineOpenAI
	cfg.Recognizer.OpenAIAPIKey = ""

	results := RunAll(context.Background(), cfg)
	failed := Failures(results)
	names := make([]string, 0, len(failed))
	for _, r := range failed {
		names = append(names, r.Name)
	}
	if strings.Join(names, ",") != "FFprobe,OpenAI API key" {
		t.Fatalf("unexpected failures: %v", names)
	}
	err := Err(results)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	if !strings.Contains(err.Error(), "OpenAI API key") {
		t.Fatalf("expected failure names in error, got %v", err)
	}
}

func TestRunAll_CUDARequiresNvidiaSMI(t *testing.T) {
	stubPath(t, "ffmpeg", "ffprobe", "uvx")
	cfg := testConfig(t)
	cfg.Recognizer.WhisperXCUDAEnabled = true

	failed := Failures(RunAll(context.Background(), cfg))
	if len(failed) != 2 || failed[0].Name != "nvidia-smi" || failed[1].Name != "CUDA" {
		t.Fatalf("expected nvidia-smi and CUDA failures, got %+v", failed)
	}
}
