package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dubber/internal/media/ffprobe"
	"dubber/internal/services"
)

// SilenceDurationSeconds is the length of the placeholder track produced when
// the uploaded video carries no audio stream.
const SilenceDurationSeconds = 1

// Extractor pulls a mono 16 kHz WAV track out of an uploaded video, the
// format the transcription backends expect.
type Extractor struct {
	ffmpegBinary  string
	ffprobeBinary string
	runner        ffprobe.CommandRunner
}

// NewExtractor builds an Extractor using the given ffmpeg/ffprobe binaries.
func NewExtractor(ffmpegBinary, ffprobeBinary string) *Extractor {
	return &Extractor{
		ffmpegBinary:  strings.TrimSpace(ffmpegBinary),
		ffprobeBinary: strings.TrimSpace(ffprobeBinary),
		runner:        ffprobe.RunCommand,
	}
}

// WithCommandRunner overrides subprocess execution, for tests.
func (e *Extractor) WithCommandRunner(runner ffprobe.CommandRunner) *Extractor {
	if runner != nil {
		e.runner = runner
	}
	return e
}

// Extract writes the audio track of videoPath to wavPath. When the container
// has no audio stream it writes SilenceDurationSeconds of silence instead,
// so the rest of the pipeline always has a track to work with. A container
// that cannot be opened at all is a fatal input error.
func (e *Extractor) Extract(ctx context.Context, videoPath, wavPath string) error {
	probe, err := ffprobe.Inspect(ctx, e.runner, e.ffprobeBinary, videoPath)
	if err != nil {
		return services.Wrap(services.ErrValidation, "extract", "probe", "input video could not be opened", err)
	}
	if err := os.MkdirAll(filepath.Dir(wavPath), 0o755); err != nil {
		return services.Wrap(services.ErrExternalTool, "extract", "mkdir", "create output directory", err)
	}

	var args []string
	if probe.HasAudio() {
		args = []string{
			"-y", "-hide_banner", "-loglevel", "error",
			"-i", videoPath,
			"-vn", "-ac", "1", "-ar", "16000", "-c:a", "pcm_s16le",
			wavPath,
		}
	} else {
		args = []string{
			"-y", "-hide_banner", "-loglevel", "error",
			"-f", "lavfi",
			"-i", "anullsrc=channel_layout=mono:sample_rate=16000",
			"-t", fmt.Sprintf("%d", SilenceDurationSeconds),
			"-c:a", "pcm_s16le",
			wavPath,
		}
	}

	output, err := e.runner(ctx, e.binary(), args...)
	if err != nil {
		detail := strings.TrimSpace(string(output))
		return services.Wrap(services.ErrExternalTool, "extract", "ffmpeg", detail, err)
	}
	return nil
}

// Duration returns the duration of a media file in seconds.
func (e *Extractor) Duration(ctx context.Context, path string) (float64, error) {
	probe, err := ffprobe.Inspect(ctx, e.runner, e.ffprobeBinary, path)
	if err != nil {
		return 0, err
	}
	return probe.DurationSeconds(), nil
}

// HasAudio reports whether the file contains an audio stream.
func (e *Extractor) HasAudio(ctx context.Context, path string) (bool, error) {
	probe, err := ffprobe.Inspect(ctx, e.runner, e.ffprobeBinary, path)
	if err != nil {
		return false, err
	}
	return probe.HasAudio(), nil
}

func (e *Extractor) binary() string {
	if e.ffmpegBinary == "" {
		return "ffmpeg"
	}
	return e.ffmpegBinary
}
