package mux_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"testing"

	"dubber/internal/mux"
	"dubber/internal/services"
)

func runnerWithDuration(t *testing.T, duration float64) func(ctx context.Context, binary string, args ...string) ([]byte, error) {
	t.Helper()
	return func(ctx context.Context, binary string, args ...string) ([]byte, error) {
		if binary == "ffprobe" {
			payload := fmt.Sprintf(`{"streams":[{"codec_type":"video"}],"format":{"duration":"%.1f"}}`, duration)
			return []byte(payload), nil
		}
		outPath := args[len(args)-1]
		return nil, os.WriteFile(outPath, []byte("video"), 0o644)
	}
}

func TestMuxLoopsAudioAndCutsPreview(t *testing.T) {
	var ffmpegCalls [][]string
	base := runnerWithDuration(t, 42)
	runner := func(ctx context.Context, binary string, args ...string) ([]byte, error) {
		if binary == "ffmpeg" {
			ffmpegCalls = append(ffmpegCalls, args)
		}
		return base(ctx, binary, args...)
	}

	muxer := mux.New("ffmpeg", "ffprobe").WithCommandRunner(runner)
	outPath := filepath.Join(t.TempDir(), "dubbed.mp4")
	result, preview, err := muxer.Mux(context.Background(), "in.mp4", "dub.wav", outPath)
	if err != nil {
		t.Fatalf("mux failed: %v", err)
	}
	if result != outPath {
		t.Fatalf("unexpected output %q", result)
	}
	if filepath.Base(preview) != "dubbed_preview.mp4" {
		t.Fatalf("unexpected preview path %q", preview)
	}
	if len(ffmpegCalls) != 2 {
		t.Fatalf("expected mux + preview calls, got %d", len(ffmpegCalls))
	}
	if !slices.Contains(ffmpegCalls[0], "-stream_loop") || !slices.Contains(ffmpegCalls[0], "-shortest") {
		t.Fatalf("mux args missing audio looping: %v", ffmpegCalls[0])
	}
	// 42s video previews at the cap.
	idx := slices.Index(ffmpegCalls[1], "-t")
	if idx < 0 {
		t.Fatalf("preview args missing -t: %v", ffmpegCalls[1])
	}
	clip, err := strconv.ParseFloat(ffmpegCalls[1][idx+1], 64)
	if err != nil || clip != 5 {
		t.Fatalf("expected 5s preview, got %v (%v)", ffmpegCalls[1][idx+1], err)
	}
}

func TestMuxPreviewShorterThanCap(t *testing.T) {
	var previewArgs []string
	base := runnerWithDuration(t, 3)
	runner := func(ctx context.Context, binary string, args ...string) ([]byte, error) {
		if binary == "ffmpeg" && slices.Contains(args, "-t") {
			previewArgs = args
		}
		return base(ctx, binary, args...)
	}

	muxer := mux.New("ffmpeg", "ffprobe").WithCommandRunner(runner)
	outPath := filepath.Join(t.TempDir(), "dubbed.mp4")
	if _, _, err := muxer.Mux(context.Background(), "in.mp4", "dub.wav", outPath); err != nil {
		t.Fatalf("mux failed: %v", err)
	}
	idx := slices.Index(previewArgs, "-t")
	if idx < 0 || previewArgs[idx+1] != "3.000" {
		t.Fatalf("expected full-length preview for short video, args: %v", previewArgs)
	}
}

func TestMuxPreviewFallsBackToFullCopy(t *testing.T) {
	base := runnerWithDuration(t, 42)
	runner := func(ctx context.Context, binary string, args ...string) ([]byte, error) {
		if binary == "ffmpeg" && slices.Contains(args, "-t") {
			return []byte("could not seek"), errors.New("exit status 1")
		}
		return base(ctx, binary, args...)
	}

	muxer := mux.New("ffmpeg", "ffprobe").WithCommandRunner(runner)
	outPath := filepath.Join(t.TempDir(), "dubbed.mp4")
	_, preview, err := muxer.Mux(context.Background(), "in.mp4", "dub.wav", outPath)
	if err != nil {
		t.Fatalf("mux failed: %v", err)
	}
	got, err := os.ReadFile(preview)
	if err != nil {
		t.Fatalf("read preview: %v", err)
	}
	if string(got) != "video" {
		t.Fatalf("expected preview copied from output, got %q", got)
	}
}

func TestMuxWrapsFFmpegFailure(t *testing.T) {
	runner := func(ctx context.Context, binary string, args ...string) ([]byte, error) {
		return []byte("unsupported codec"), errors.New("exit status 1")
	}
	muxer := mux.New("ffmpeg", "ffprobe").WithCommandRunner(runner)
	_, _, err := muxer.Mux(context.Background(), "in.mp4", "dub.wav", filepath.Join(t.TempDir(), "out.mp4"))
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}
