package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"dubber/internal/media/ffprobe"
)

// WhisperCLI transcribes audio with a local whisper.cpp-style binary.
type WhisperCLI struct {
	binary   string
	model    string
	modelDir string
	runner   ffprobe.CommandRunner

	resolveOnce sync.Once
	modelPath   string
	resolveErr  error
}

// NewWhisperCLI builds the local backend. model is a short name like "tiny";
// modelDir is where ggml model files live.
func NewWhisperCLI(binary, model, modelDir string) *WhisperCLI {
	return &WhisperCLI{
		binary:   strings.TrimSpace(binary),
		model:    strings.TrimSpace(model),
		modelDir: strings.TrimSpace(modelDir),
		runner:   ffprobe.RunCommand,
	}
}

// WithCommandRunner overrides subprocess execution, for tests.
func (w *WhisperCLI) WithCommandRunner(runner ffprobe.CommandRunner) *WhisperCLI {
	if runner != nil {
		w.runner = runner
	}
	return w
}

// Name identifies the backend in logs.
func (w *WhisperCLI) Name() string { return "whisper-cli" }

// Transcribe runs the whisper binary with JSON output and parses the result.
func (w *WhisperCLI) Transcribe(ctx context.Context, wavPath string) (Result, error) {
	modelPath, err := w.resolveModel()
	if err != nil {
		return Result{}, wrapBackendErr("resolve-model", "whisper model unavailable", err)
	}

	outputPrefix := strings.TrimSuffix(wavPath, filepath.Ext(wavPath)) + ".whisper"
	jsonPath := outputPrefix + ".json"
	defer os.Remove(jsonPath)

	args := []string{
		"-m", modelPath,
		"-f", wavPath,
		"-l", "auto",
		"-oj",
		"-of", outputPrefix,
		"--no-prints",
	}
	output, err := w.runner(ctx, w.binary, args...)
	if err != nil {
		detail := strings.TrimSpace(string(output))
		return Result{}, wrapBackendErr("run", detail, err)
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return Result{}, wrapBackendErr("read-output", "whisper produced no output file", err)
	}
	return parseWhisperJSON(data)
}

// resolveModel locates the ggml model file once per process. The whisper
// binary refuses to start without it, so a missing model disables this
// backend rather than failing every job with a subprocess error.
func (w *WhisperCLI) resolveModel() (string, error) {
	w.resolveOnce.Do(func() {
		if w.binary == "" {
			w.resolveErr = fmt.Errorf("whisper binary not configured")
			return
		}
		if _, err := exec.LookPath(w.binary); err != nil {
			w.resolveErr = fmt.Errorf("whisper binary %q not found", w.binary)
			return
		}
		candidates := []string{}
		if filepath.IsAbs(w.model) {
			candidates = append(candidates, w.model)
		}
		if w.modelDir != "" {
			candidates = append(candidates,
				filepath.Join(w.modelDir, fmt.Sprintf("ggml-%s.bin", w.model)),
				filepath.Join(w.modelDir, w.model))
		}
		for _, candidate := range candidates {
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				w.modelPath = candidate
				return
			}
		}
		w.resolveErr = fmt.Errorf("whisper model %q not found under %q", w.model, w.modelDir)
	})
	return w.modelPath, w.resolveErr
}

type whisperOutput struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

func parseWhisperJSON(data []byte) (Result, error) {
	var parsed whisperOutput
	if err := json.Unmarshal(data, &parsed); err != nil {
		return Result{}, wrapBackendErr("parse", "whisper output is not valid JSON", err)
	}
	result := Result{Language: parsed.Result.Language}
	var texts []string
	for _, entry := range parsed.Transcription {
		text := strings.TrimSpace(entry.Text)
		if text == "" {
			continue
		}
		result.Segments = append(result.Segments, Segment{
			Start: float64(entry.Offsets.From) / 1000,
			End:   float64(entry.Offsets.To) / 1000,
			Text:  text,
		})
		texts = append(texts, text)
	}
	result.Text = strings.Join(texts, " ")
	return result, nil
}
