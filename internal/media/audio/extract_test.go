package audio_test

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"dubber/internal/media/audio"
	"dubber/internal/services"
)

const (
	probeWithAudio = `{"streams":[{"index":0,"codec_type":"video"},{"index":1,"codec_type":"audio"}],"format":{"duration":"10.0"}}`
	probeNoAudio   = `{"streams":[{"index":0,"codec_type":"video"}],"format":{"duration":"10.0"}}`
)

func TestExtractUsesSourceAudio(t *testing.T) {
	var ffmpegArgs []string
	runner := func(ctx context.Context, binary string, args ...string) ([]byte, error) {
		switch binary {
		case "ffprobe":
			return []byte(probeWithAudio), nil
		case "ffmpeg":
			ffmpegArgs = args
			return nil, nil
		}
		t.Fatalf("unexpected binary %q", binary)
		return nil, nil
	}

	extractor := audio.NewExtractor("ffmpeg", "ffprobe").WithCommandRunner(runner)
	wavPath := filepath.Join(t.TempDir(), "audio.wav")
	if err := extractor.Extract(context.Background(), "in.mp4", wavPath); err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if !slices.Contains(ffmpegArgs, "-vn") {
		t.Fatalf("expected -vn in ffmpeg args: %v", ffmpegArgs)
	}
	if !slices.Contains(ffmpegArgs, "16000") {
		t.Fatalf("expected 16 kHz resample in args: %v", ffmpegArgs)
	}
}

func TestExtractWritesSilenceWhenNoAudioStream(t *testing.T) {
	var ffmpegArgs []string
	runner := func(ctx context.Context, binary string, args ...string) ([]byte, error) {
		if binary == "ffprobe" {
			return []byte(probeNoAudio), nil
		}
		ffmpegArgs = args
		return nil, nil
	}

	extractor := audio.NewExtractor("ffmpeg", "ffprobe").WithCommandRunner(runner)
	wavPath := filepath.Join(t.TempDir(), "audio.wav")
	if err := extractor.Extract(context.Background(), "silent.mp4", wavPath); err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if !slices.Contains(ffmpegArgs, "anullsrc=channel_layout=mono:sample_rate=16000") {
		t.Fatalf("expected silent source in args: %v", ffmpegArgs)
	}
}

func TestExtractFailsWhenProbeFails(t *testing.T) {
	runner := func(ctx context.Context, binary string, args ...string) ([]byte, error) {
		return []byte("invalid data found"), errors.New("exit status 1")
	}
	extractor := audio.NewExtractor("ffmpeg", "ffprobe").WithCommandRunner(runner)
	err := extractor.Extract(context.Background(), "corrupt.mp4", filepath.Join(t.TempDir(), "audio.wav"))
	if err == nil {
		t.Fatal("expected error for unreadable input")
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
