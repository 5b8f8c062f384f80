package ffprobe

import (
	"context"
	"errors"
	"testing"
)

func TestInspectParsesRunnerOutput(t *testing.T) {
	payload := []byte(`{
		"streams": [
			{"index": 0, "codec_type": "video", "codec_name": "h264"},
			{"index": 1, "codec_type": "audio", "codec_name": "aac", "channels": 2}
		],
		"format": {"filename": "clip.mp4", "nb_streams": 2, "duration": "12.500"}
	}`)
	runner := func(ctx context.Context, binary string, args ...string) ([]byte, error) {
		if binary != "ffprobe" {
			t.Fatalf("unexpected binary %q", binary)
		}
		return payload, nil
	}

	result, err := Inspect(context.Background(), runner, "", "clip.mp4")
	if err != nil {
		t.Fatalf("inspect failed: %v", err)
	}
	if !result.HasAudio() {
		t.Fatal("expected audio stream")
	}
	if result.VideoStreamCount() != 1 {
		t.Fatalf("expected 1 video stream, got %d", result.VideoStreamCount())
	}
	if result.DurationSeconds() != 12.5 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
}

func TestInspectRejectsEmptyPath(t *testing.T) {
	if _, err := Inspect(context.Background(), nil, "ffprobe", "   "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestInspectWrapsRunnerFailure(t *testing.T) {
	runner := func(ctx context.Context, binary string, args ...string) ([]byte, error) {
		return []byte("moov atom not found"), errors.New("exit status 1")
	}
	if _, err := Inspect(context.Background(), runner, "ffprobe", "broken.mp4"); err == nil {
		t.Fatal("expected error from failing runner")
	}
}

func TestDurationSecondsHandlesBadInput(t *testing.T) {
	result := Result{Format: Format{Duration: "garbage"}}
	if got := result.DurationSeconds(); got != 0 {
		t.Fatalf("expected 0 for unparseable duration, got %v", got)
	}
	result = Result{Format: Format{Duration: "-3"}}
	if got := result.DurationSeconds(); got != 0 {
		t.Fatalf("expected 0 for negative duration, got %v", got)
	}
}
