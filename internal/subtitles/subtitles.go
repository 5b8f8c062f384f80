package subtitles

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"dubber/internal/transcribe"
)

// fallbackCueSeconds is the window assigned to each line when the
// transcription backend supplied no per-segment timing.
const fallbackCueSeconds = 2.0

// Cue is one subtitle entry.
type Cue struct {
	Start float64
	End   float64
	Text  string
}

// FromSegments converts transcription segments to cues, dropping empties.
func FromSegments(segments []transcribe.Segment) []Cue {
	cues := make([]Cue, 0, len(segments))
	for _, segment := range segments {
		text := strings.TrimSpace(segment.Text)
		if text == "" {
			continue
		}
		end := segment.End
		if end <= segment.Start {
			end = segment.Start + fallbackCueSeconds
		}
		cues = append(cues, Cue{Start: segment.Start, End: end, Text: text})
	}
	return cues
}

// FromLines fabricates sequential cues for plain translated lines, giving each
// a fixed window. Used when timing information never existed.
func FromLines(lines []string) []Cue {
	cues := make([]Cue, 0, len(lines))
	offset := 0.0
	for _, line := range lines {
		text := strings.TrimSpace(line)
		if text == "" {
			continue
		}
		cues = append(cues, Cue{Start: offset, End: offset + fallbackCueSeconds, Text: text})
		offset += fallbackCueSeconds
	}
	return cues
}

// WriteSRT writes cues to path in SubRip format.
func WriteSRT(path string, cues []Cue) error {
	var builder strings.Builder
	for i, cue := range cues {
		fmt.Fprintf(&builder, "%d\n%s --> %s\n%s\n\n",
			i+1, FormatSRTTime(cue.Start), FormatSRTTime(cue.End), cue.Text)
	}
	return writeFile(path, builder.String())
}

// WriteVTT writes cues to path in WebVTT format.
func WriteVTT(path string, cues []Cue) error {
	var builder strings.Builder
	builder.WriteString("WEBVTT\n\n")
	for _, cue := range cues {
		fmt.Fprintf(&builder, "%s --> %s\n%s\n\n",
			FormatVTTTime(cue.Start), FormatVTTTime(cue.End), cue.Text)
	}
	return writeFile(path, builder.String())
}

// FormatSRTTime renders seconds as HH:MM:SS,mmm.
func FormatSRTTime(seconds float64) string {
	return formatTimestamp(seconds, ",")
}

// FormatVTTTime renders seconds as HH:MM:SS.mmm.
func FormatVTTTime(seconds float64) string {
	return formatTimestamp(seconds, ".")
}

func formatTimestamp(seconds float64, millisSep string) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	millis := int((seconds - float64(total)) * 1000)
	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60
	return fmt.Sprintf("%02d:%02d:%02d%s%03d", hours, minutes, secs, millisSep, millis)
}

// ParseTimestamp reads an SRT or VTT timestamp back into seconds.
func ParseTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.ReplaceAll(value, ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000, nil
}

// CountCues returns the number of cue blocks in an SRT file.
func CountCues(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read srt: %w", err)
	}
	content := strings.TrimSpace(string(data))
	if content == "" {
		return 0, nil
	}
	count := 0
	for _, block := range strings.Split(content, "\n\n") {
		if strings.TrimSpace(block) != "" {
			count++
		}
	}
	return count, nil
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create subtitle directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write subtitle file: %w", err)
	}
	return nil
}
