package mux

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dubber/internal/fileutil"
	"dubber/internal/media/ffprobe"
	"dubber/internal/services"
)

// previewSeconds caps the preview clip length. Shorter videos preview in
// full.
const previewSeconds = 5.0

// Muxer combines the original video frames with the dubbed audio track.
type Muxer struct {
	ffmpegBinary  string
	ffprobeBinary string
	runner        ffprobe.CommandRunner
}

// New builds a Muxer using the given ffmpeg/ffprobe binaries.
func New(ffmpegBinary, ffprobeBinary string) *Muxer {
	if ffmpegBinary = strings.TrimSpace(ffmpegBinary); ffmpegBinary == "" {
		ffmpegBinary = "ffmpeg"
	}
	if ffprobeBinary = strings.TrimSpace(ffprobeBinary); ffprobeBinary == "" {
		ffprobeBinary = "ffprobe"
	}
	return &Muxer{ffmpegBinary: ffmpegBinary, ffprobeBinary: ffprobeBinary, runner: ffprobe.RunCommand}
}

// WithCommandRunner overrides subprocess execution, for tests.
func (m *Muxer) WithCommandRunner(runner ffprobe.CommandRunner) *Muxer {
	if runner != nil {
		m.runner = runner
	}
	return m
}

// Mux replaces the video's audio with audioPath, looping the dub when it is
// shorter than the frames so the output never goes silent, then cuts a
// preview clip. Returns the output and preview paths.
func (m *Muxer) Mux(ctx context.Context, videoPath, audioPath, outPath string) (string, string, error) {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", "", services.Wrap(services.ErrExternalTool, "mux", "mkdir", "create output directory", err)
	}

	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", videoPath,
		"-stream_loop", "-1", "-i", audioPath,
		"-map", "0:v:0", "-map", "1:a:0",
		"-c:v", "copy", "-c:a", "aac",
		"-shortest",
		outPath,
	}
	output, err := m.runner(ctx, m.ffmpegBinary, args...)
	if err != nil {
		detail := strings.TrimSpace(string(output))
		return "", "", services.Wrap(services.ErrExternalTool, "mux", "ffmpeg", detail, err)
	}

	previewPath, err := m.cutPreview(ctx, outPath)
	if err != nil {
		return "", "", err
	}
	return outPath, previewPath, nil
}

// WritePlaceholder creates a stand-in artifact so download endpoints have
// something to serve when a stage could not produce real media.
func WritePlaceholder(path, note string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create placeholder directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(note), 0o644); err != nil {
		return fmt.Errorf("write placeholder: %w", err)
	}
	return nil
}

// cutPreview writes the first few seconds of the muxed output next to it.
func (m *Muxer) cutPreview(ctx context.Context, outPath string) (string, error) {
	probe, err := ffprobe.Inspect(ctx, m.runner, m.ffprobeBinary, outPath)
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "mux", "probe", "inspect muxed output", err)
	}
	duration := probe.DurationSeconds()
	clip := previewSeconds
	if duration > 0 && duration < clip {
		clip = duration
	}

	ext := filepath.Ext(outPath)
	previewPath := strings.TrimSuffix(outPath, ext) + "_preview" + ext
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", outPath,
		"-t", fmt.Sprintf("%.3f", clip),
		"-c", "copy",
		previewPath,
	}
	if _, err := m.runner(ctx, m.ffmpegBinary, args...); err != nil {
		// The preview is best effort; serve the full output when the
		// stream-copy cut fails on an awkward keyframe layout.
		if copyErr := fileutil.CopyFile(outPath, previewPath); copyErr != nil {
			return "", services.Wrap(services.ErrExternalTool, "mux", "preview", "cut preview clip", err)
		}
	}
	return previewPath, nil
}
