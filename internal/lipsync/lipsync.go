package lipsync

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dubber/internal/logging"
	"dubber/internal/media/ffprobe"
)

// Syncer runs Wav2Lip-style inference to match mouth movement to the dubbed
// audio. The whole stage is best-effort: any failure falls back to the
// original video frames.
type Syncer struct {
	logger         *slog.Logger
	pythonBinary   string
	repoPath       string
	checkpointPath string
	runner         ffprobe.CommandRunner
}

// New builds a Syncer. Returns nil unless both the inference repo and the
// model checkpoint are configured, so callers can treat a nil Syncer as
// "stage disabled".
func New(logger *slog.Logger, pythonBinary, repoPath, checkpointPath string) *Syncer {
	repoPath = strings.TrimSpace(repoPath)
	checkpointPath = strings.TrimSpace(checkpointPath)
	if repoPath == "" || checkpointPath == "" {
		return nil
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if pythonBinary = strings.TrimSpace(pythonBinary); pythonBinary == "" {
		pythonBinary = "python3"
	}
	return &Syncer{
		logger:         logger,
		pythonBinary:   pythonBinary,
		repoPath:       repoPath,
		checkpointPath: checkpointPath,
		runner:         ffprobe.RunCommand,
	}
}

// WithCommandRunner overrides subprocess execution, for tests.
func (s *Syncer) WithCommandRunner(runner ffprobe.CommandRunner) *Syncer {
	if runner != nil {
		s.runner = runner
	}
	return s
}

// Apply runs inference against videoPath with the dubbed audio and returns
// the synced video path. ok is false when the stage was skipped or failed;
// the caller keeps the unsynced video in that case.
func (s *Syncer) Apply(ctx context.Context, videoPath, audioPath, workDir string) (result string, ok bool) {
	outPath := filepath.Join(workDir, "lipsynced.mp4")
	script := filepath.Join(s.repoPath, "inference.py")
	if _, err := os.Stat(script); err != nil {
		s.logger.Warn("lip-sync repo missing inference script", logging.String("path", script))
		return "", false
	}

	args := []string{
		script,
		"--checkpoint_path", s.checkpointPath,
		"--face", videoPath,
		"--audio", audioPath,
		"--outfile", outPath,
	}
	output, err := s.runner(ctx, s.pythonBinary, args...)
	if err != nil {
		s.logger.Warn("lip-sync inference failed",
			logging.String("detail", strings.TrimSpace(string(output))),
			logging.Error(err))
		return "", false
	}
	if info, err := os.Stat(outPath); err != nil || info.Size() == 0 {
		s.logger.Warn("lip-sync produced no output file")
		return "", false
	}
	return outPath, true
}
