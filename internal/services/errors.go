package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnavailable marks a provider or optional tool that cannot serve the
	// request right now (not configured, offline, unsupported). Callers degrade
	// to the next fallback instead of failing the job.
	ErrUnavailable = errors.New("provider unavailable")
	// ErrNoResult marks a provider call that ran but produced nothing usable
	// (empty transcription, no-op translation). A normal, expected outcome.
	ErrNoResult = errors.New("no result")

	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Degradable reports whether an error represents an expected shortfall the
// pipeline absorbs with a fallback rather than escalating to job failure.
func Degradable(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrNoResult)
}

// Message extracts a human-readable message suitable for a job status note.
func Message(err error) string {
	if err == nil {
		return ""
	}
	return strings.TrimSpace(err.Error())
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
