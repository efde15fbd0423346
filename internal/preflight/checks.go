package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/sys/unix"

	"chunkvtt/internal/config"
	"chunkvtt/internal/deps"
)

// commandOutput runs a short diagnostic command. Tests replace it.
var commandOutput = func(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output() //nolint:gosec
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSourceReadable verifies that the input media exists and can be read.
func CheckSourceReadable(path string) Result {
	const name = "Input"
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckCUDA verifies that an NVIDIA GPU is visible through nvidia-smi.
func CheckCUDA(ctx context.Context) Result {
	const name = "CUDA"
	if _, err := exec.LookPath("nvidia-smi"); err != nil {
		return Result{Name: name, Detail: "nvidia-smi not found (CUDA requested)"}
	}
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	output, err := commandOutput(checkCtx, "nvidia-smi", "-L")
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("nvidia-smi failed (%v)", err)}
	}
	gpus := 0
	first := ""
	for _, line := range strings.Split(strings.TrimSpace(string(output)), "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "GPU ") {
			if first == "" {
				first = strings.TrimSpace(line)
			}
			gpus++
		}
	}
	if gpus == 0 {
		return Result{Name: name, Detail: "no GPU reported by nvidia-smi"}
	}
	return Result{Name: name, Passed: true, Detail: first}
}

// CheckWhisperCppModel verifies the whisper.cpp model file is present.
func CheckWhisperCppModel(path string) Result {
	const name = "whisper.cpp model"
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "model path not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckOpenAIKey reports whether an API key is configured without contacting the API.
func CheckOpenAIKey(cfg config.Recognizer) Result {
	const name = "OpenAI API key"
	if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
		return Result{Name: name, Detail: "API key missing (set recognizer.openai_api_key or OPENAI_API_KEY)"}
	}
	return Result{Name: name, Passed: true, Detail: "configured"}
}

// CheckOpenAI verifies that the transcription API is reachable and the key is valid.
// It uses a 30-second timeout and a single attempt.
func CheckOpenAI(ctx context.Context, cfg config.Recognizer) Result {
	const name = "OpenAI API"
	if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
		return Result{Name: name, Detail: "API key missing"}
	}
	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	clientCfg := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if base := strings.TrimRight(strings.TrimSpace(cfg.OpenAIBaseURL), "/"); base != "" {
		clientCfg.BaseURL = base
	}
	client := openai.NewClientWithConfig(clientCfg)
	if _, err := client.ListModels(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeAPIError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckSystemDeps evaluates the external executables the configured engine needs.
// Both the transcribe preflight and the check command use this list.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Required for chunking",
			InstallHint: "install ffmpeg and make sure it is on PATH",
		},
		{
			Name:        "FFprobe",
			Command:     deps.ResolveFFprobe(cfg.FFmpegBinary(), cfg.FFprobeBinary()),
			Description: "Required for duration probing",
			InstallHint: "ffprobe ships with ffmpeg; install it alongside",
		},
	}
	switch cfg.Recognizer.Engine {
	case config.EngineWhisperX:
		requirements = append(requirements, deps.Requirement{
			Name:        "uvx",
			Command:     cfg.UVXBinary(),
			Description: "Required for WhisperX transcription",
			InstallHint: "install uv (https://docs.astral.sh/uv/)",
		})
		if cfg.Recognizer.WhisperXCUDAEnabled {
			requirements = append(requirements, deps.Requirement{
				Name:        "nvidia-smi",
				Command:     "nvidia-smi",
				Description: "Required when CUDA is enabled",
			})
		}
	case config.EngineWhisperCpp:
		requirements = append(requirements, deps.Requirement{
			Name:        "whisper-cli",
			Command:     cfg.WhisperCppBinary(),
			Description: "Required for whisper.cpp transcription",
			InstallHint: "build whisper.cpp and put whisper-cli on PATH",
		})
	}
	return deps.CheckBinaries(requirements)
}

// summarizeAPIError produces a human-readable summary for API health check failures.
func summarizeAPIError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (API unreachable)"
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case 401, 403:
			return "auth failed (invalid api key)"
		}
		return fmt.Sprintf("health check failed (%d)", apiErr.HTTPStatusCode)
	}
	return err.Error()
}
