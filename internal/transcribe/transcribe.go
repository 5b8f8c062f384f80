package transcribe

import (
	"context"
	"log/slog"
	"strings"

	"dubber/internal/logging"
	"dubber/internal/services"
)

// Segment is one timed span of recognized speech.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Result is the output of a transcription backend.
type Result struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
	Language string    `json:"language"`
}

// Empty reports whether the backend produced no usable speech.
func (r Result) Empty() bool {
	return strings.TrimSpace(r.Text) == "" && len(r.Segments) == 0
}

// Backend converts a WAV file to text.
type Backend interface {
	Name() string
	Transcribe(ctx context.Context, wavPath string) (Result, error)
}

// Transcriber tries each backend in order and degrades to an empty result
// when none succeeds. Transcription failure never fails a job; callers fall
// back to demo content.
type Transcriber struct {
	backends []Backend
	logger   *slog.Logger
}

// NewTranscriber builds a Transcriber over the given backends. Order matters:
// earlier backends are preferred.
func NewTranscriber(logger *slog.Logger, backends ...Backend) *Transcriber {
	if logger == nil {
		logger = logging.NewNop()
	}
	active := make([]Backend, 0, len(backends))
	for _, backend := range backends {
		if backend != nil {
			active = append(active, backend)
		}
	}
	return &Transcriber{backends: active, logger: logger}
}

// Transcribe runs the backend chain. A zero Result with nil error means no
// backend produced speech; only context cancellation is returned as an error.
func (t *Transcriber) Transcribe(ctx context.Context, wavPath string) (Result, error) {
	for _, backend := range t.backends {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		result, err := backend.Transcribe(ctx, wavPath)
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			t.logger.Warn("transcription backend failed",
				logging.String("backend", backend.Name()),
				logging.Error(err))
			continue
		}
		if result.Empty() {
			t.logger.Info("transcription backend produced no speech",
				logging.String("backend", backend.Name()))
			continue
		}
		result.Text = strings.TrimSpace(result.Text)
		return result, nil
	}
	return Result{}, nil
}

// wrapBackendErr tags a backend failure as degradable so callers can tell it
// apart from fatal input errors.
func wrapBackendErr(operation, message string, err error) error {
	return services.Wrap(services.ErrUnavailable, "transcribe", operation, message, err)
}
