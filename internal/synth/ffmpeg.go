package synth

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dubber/internal/media/ffprobe"
)

// Time-stretch rates outside this range sound unusable, so fitting clamps to
// it even when the source and target windows differ more.
const (
	minStretchRate = 0.33
	maxStretchRate = 3.0
)

// atempo accepts 0.5..2.0 per filter instance; larger rates chain.
const (
	atempoMin = 0.5
	atempoMax = 2.0
)

type ffmpegOps struct {
	ffmpegBinary  string
	ffprobeBinary string
	runner        ffprobe.CommandRunner
}

func newFFmpegOps(ffmpegBinary, ffprobeBinary string) *ffmpegOps {
	if ffmpegBinary = strings.TrimSpace(ffmpegBinary); ffmpegBinary == "" {
		ffmpegBinary = "ffmpeg"
	}
	if ffprobeBinary = strings.TrimSpace(ffprobeBinary); ffprobeBinary == "" {
		ffprobeBinary = "ffprobe"
	}
	return &ffmpegOps{
		ffmpegBinary:  ffmpegBinary,
		ffprobeBinary: ffprobeBinary,
		runner:        ffprobe.RunCommand,
	}
}

// stretchToDuration re-times inPath so it lasts targetSeconds, clamping the
// rate to the usable range. A source already within 50 ms of the target is
// copied through untouched.
func (f *ffmpegOps) stretchToDuration(ctx context.Context, inPath, outPath string, targetSeconds float64) error {
	probe, err := ffprobe.Inspect(ctx, f.runner, f.ffprobeBinary, inPath)
	if err != nil {
		return err
	}
	source := probe.DurationSeconds()
	if source <= 0 || targetSeconds <= 0 {
		return copyAudio(ctx, f, inPath, outPath)
	}
	rate := ClampRate(source / targetSeconds)
	if rate > 0.995 && rate < 1.005 {
		return copyAudio(ctx, f, inPath, outPath)
	}

	filter := strings.Join(AtempoChain(rate), ",")
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", inPath,
		"-filter:a", filter,
		"-c:a", "pcm_s16le",
		outPath,
	}
	output, err := f.runner(ctx, f.ffmpegBinary, args...)
	if err != nil {
		return fmt.Errorf("ffmpeg atempo: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// makeSilence writes durationMS of mono silence to outPath.
func (f *ffmpegOps) makeSilence(ctx context.Context, outPath string, durationMS int) error {
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "lavfi",
		"-i", "anullsrc=channel_layout=mono:sample_rate=24000",
		"-t", fmt.Sprintf("%.3f", float64(durationMS)/1000),
		"-c:a", "pcm_s16le",
		outPath,
	}
	output, err := f.runner(ctx, f.ffmpegBinary, args...)
	if err != nil {
		return fmt.Errorf("ffmpeg silence: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// concat stitches WAV pieces into one file via the concat demuxer.
func (f *ffmpegOps) concat(ctx context.Context, pieces []string, outPath string) error {
	if len(pieces) == 0 {
		return fmt.Errorf("nothing to concatenate")
	}
	listPath := filepath.Join(filepath.Dir(outPath), "concat_list.txt")
	var builder strings.Builder
	for _, piece := range pieces {
		fmt.Fprintf(&builder, "file '%s'\n", strings.ReplaceAll(piece, "'", `'\''`))
	}
	if err := os.WriteFile(listPath, []byte(builder.String()), 0o644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	defer os.Remove(listPath)

	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "concat", "-safe", "0",
		"-i", listPath,
		"-c:a", "pcm_s16le",
		outPath,
	}
	output, err := f.runner(ctx, f.ffmpegBinary, args...)
	if err != nil {
		return fmt.Errorf("ffmpeg concat: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

func copyAudio(ctx context.Context, f *ffmpegOps, inPath, outPath string) error {
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", inPath,
		"-c:a", "pcm_s16le",
		outPath,
	}
	output, err := f.runner(ctx, f.ffmpegBinary, args...)
	if err != nil {
		return fmt.Errorf("ffmpeg copy: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// ClampRate restricts a stretch rate to the usable range.
func ClampRate(rate float64) float64 {
	if rate < minStretchRate {
		return minStretchRate
	}
	if rate > maxStretchRate {
		return maxStretchRate
	}
	return rate
}

// AtempoChain decomposes a rate into atempo filter steps, each within the
// filter's supported range.
func AtempoChain(rate float64) []string {
	rate = ClampRate(rate)
	var steps []string
	for rate > atempoMax {
		steps = append(steps, fmt.Sprintf("atempo=%.6f", atempoMax))
		rate /= atempoMax
	}
	for rate < atempoMin {
		steps = append(steps, fmt.Sprintf("atempo=%.6f", atempoMin))
		rate /= atempoMin
	}
	steps = append(steps, fmt.Sprintf("atempo=%.6f", rate))
	return steps
}
