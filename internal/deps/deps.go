package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"dubber/internal/config"
)

// Requirement defines an external tool the pipeline relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements builds the dependency list for the given configuration.
// FFmpeg and ffprobe are mandatory; everything else degrades gracefully.
func Requirements(cfg *config.Config) []Requirement {
	reqs := []Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Audio extraction, time-stretching, and muxing",
		},
		{
			Name:        "ffprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "Media inspection",
		},
		{
			Name:        "Whisper CLI",
			Command:     cfg.Transcription.WhisperBinary,
			Description: "Local speech transcription",
			Optional:    true,
		},
		{
			Name:        "espeak-ng",
			Command:     cfg.Synthesis.EspeakBinary,
			Description: "Offline speech synthesis fallback",
			Optional:    true,
		},
	}
	if cfg.Synthesis.CloneBinary != "" {
		reqs = append(reqs, Requirement{
			Name:        "Voice clone CLI",
			Command:     cfg.Synthesis.CloneBinary,
			Description: "Voice-cloned speech synthesis",
			Optional:    true,
		})
	}
	if cfg.LipSyncEnabled() {
		reqs = append(reqs, Requirement{
			Name:        "Python",
			Command:     cfg.LipSync.PythonBinary,
			Description: "Runs lip-sync inference",
			Optional:    true,
		})
	}
	return reqs
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// MissingRequired returns the names of mandatory dependencies that are not
// available. An empty slice means the daemon can start.
func MissingRequired(statuses []Status) []string {
	var missing []string
	for _, status := range statuses {
		if !status.Optional && !status.Available {
			missing = append(missing, status.Name)
		}
	}
	return missing
}
