package subtitles_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dubber/internal/subtitles"
	"dubber/internal/transcribe"
)

func TestFormatTimestamps(t *testing.T) {
	if got := subtitles.FormatSRTTime(3661.5); got != "01:01:01,500" {
		t.Fatalf("srt timestamp = %q", got)
	}
	if got := subtitles.FormatVTTTime(3661.5); got != "01:01:01.500" {
		t.Fatalf("vtt timestamp = %q", got)
	}
	if got := subtitles.FormatSRTTime(-2); got != "00:00:00,000" {
		t.Fatalf("negative timestamp = %q", got)
	}
}

func TestParseTimestampRoundTrip(t *testing.T) {
	for _, value := range []string{"00:00:01,250", "00:01:30.000"} {
		seconds, err := subtitles.ParseTimestamp(value)
		if err != nil {
			t.Fatalf("parse %q: %v", value, err)
		}
		if seconds <= 0 {
			t.Fatalf("parse %q gave %v", value, seconds)
		}
	}
	if _, err := subtitles.ParseTimestamp("garbage"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestWriteSRTAndVTT(t *testing.T) {
	dir := t.TempDir()
	cues := subtitles.FromSegments([]transcribe.Segment{
		{Start: 0, End: 2.5, Text: "Hola mundo"},
		{Start: 2.5, End: 0, Text: "Segunda linea"},
		{Start: 5, End: 6, Text: "   "},
	})
	if len(cues) != 2 {
		t.Fatalf("expected empty segment dropped, got %d cues", len(cues))
	}
	if cues[1].End <= cues[1].Start {
		t.Fatal("expected fabricated end time for zero-length cue")
	}

	srtPath := filepath.Join(dir, "out.srt")
	if err := subtitles.WriteSRT(srtPath, cues); err != nil {
		t.Fatalf("write srt: %v", err)
	}
	srtData, err := os.ReadFile(srtPath)
	if err != nil {
		t.Fatalf("read srt: %v", err)
	}
	if !strings.Contains(string(srtData), "00:00:00,000 --> 00:00:02,500") {
		t.Fatalf("srt missing comma timestamps:\n%s", srtData)
	}
	if !strings.HasPrefix(string(srtData), "1\n") {
		t.Fatalf("srt missing cue index:\n%s", srtData)
	}

	vttPath := filepath.Join(dir, "out.vtt")
	if err := subtitles.WriteVTT(vttPath, cues); err != nil {
		t.Fatalf("write vtt: %v", err)
	}
	vttData, err := os.ReadFile(vttPath)
	if err != nil {
		t.Fatalf("read vtt: %v", err)
	}
	if !strings.HasPrefix(string(vttData), "WEBVTT\n\n") {
		t.Fatalf("vtt missing header:\n%s", vttData)
	}
	if !strings.Contains(string(vttData), "00:00:00.000 --> 00:00:02.500") {
		t.Fatalf("vtt missing dot timestamps:\n%s", vttData)
	}

	count, err := subtitles.CountCues(srtPath)
	if err != nil {
		t.Fatalf("count cues: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 cues, got %d", count)
	}
}

func TestFromLinesFabricatesWindows(t *testing.T) {
	cues := subtitles.FromLines([]string{"uno", "", "dos"})
	if len(cues) != 2 {
		t.Fatalf("expected 2 cues, got %d", len(cues))
	}
	if cues[0].Start != 0 || cues[0].End != 2 {
		t.Fatalf("unexpected first window: %+v", cues[0])
	}
	if cues[1].Start != 2 || cues[1].End != 4 {
		t.Fatalf("unexpected second window: %+v", cues[1])
	}
}
