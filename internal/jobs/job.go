package jobs

import (
	"time"
)

// Status describes where a job is in its lifecycle.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusDeleted    Status = "deleted"
)

// Terminal reports whether a status can no longer advance, deletion aside.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusDeleted
}

// rank orders statuses so transitions only ever move forward.
func (s Status) rank() int {
	switch s {
	case StatusQueued:
		return 0
	case StatusProcessing:
		return 1
	case StatusCompleted, StatusFailed:
		return 2
	case StatusDeleted:
		return 3
	}
	return -1
}

// Artifacts holds the file paths a job produces as it runs. Empty fields
// mean the artifact does not exist yet (or never will).
type Artifacts struct {
	SourceVideo  string `json:"-"`
	VoiceSample  string `json:"-"`
	ExtractedWAV string `json:"-"`
	DubbedVideo  string `json:"-"`
	Preview      string `json:"-"`
	SubtitleSRT  string `json:"-"`
	SubtitleVTT  string `json:"-"`
}

// Job is one dubbing request moving through the pipeline.
type Job struct {
	ID             string    `json:"id"`
	User           string    `json:"user"`
	Filename       string    `json:"filename"`
	TargetLanguage string    `json:"target_language"`
	Status         Status    `json:"status"`
	Progress       float64   `json:"progress"`
	Error          string    `json:"error,omitempty"`
	Message        string    `json:"message,omitempty"`
	LipSynced      bool      `json:"lip_synced"`
	DurationSec    float64   `json:"duration_sec"`
	Words          int       `json:"words"`
	Transcript     string    `json:"transcript,omitempty"`
	Translation    string    `json:"translation,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	Artifacts Artifacts `json:"-"`
	WorkDir   string    `json:"-"`
}
