package synth

import (
	"context"
	"fmt"
	"os"
	"strings"

	"dubber/internal/media/ffprobe"
)

// Cloner shells out to an XTTS-style CLI that reproduces the original
// speaker's voice in the target language.
type Cloner struct {
	binary string
	model  string
	runner ffprobe.CommandRunner
}

// NewCloner builds a Cloner. Returns nil when no binary is configured so the
// synthesizer skips the clone strategy entirely.
func NewCloner(binary, model string) *Cloner {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil
	}
	return &Cloner{binary: binary, model: strings.TrimSpace(model), runner: ffprobe.RunCommand}
}

// WithCommandRunner overrides subprocess execution, for tests.
func (c *Cloner) WithCommandRunner(runner ffprobe.CommandRunner) *Cloner {
	if runner != nil {
		c.runner = runner
	}
	return c
}

// Clone synthesizes text in the reference speaker's voice.
func (c *Cloner) Clone(ctx context.Context, text, langCode, referenceWAV, outPath string) error {
	if referenceWAV == "" {
		return fmt.Errorf("voice clone: no reference audio")
	}
	args := []string{
		"--text", text,
		"--language_idx", langCode,
		"--speaker_wav", referenceWAV,
		"--out_path", outPath,
	}
	if c.model != "" {
		args = append([]string{"--model_name", c.model}, args...)
	}
	output, err := c.runner(ctx, c.binary, args...)
	if err != nil {
		return fmt.Errorf("voice clone: %w: %s", err, strings.TrimSpace(string(output)))
	}
	if info, statErr := os.Stat(outPath); statErr != nil || info.Size() == 0 {
		return fmt.Errorf("voice clone produced no audio")
	}
	return nil
}
