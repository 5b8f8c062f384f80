package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Paths.StorageDir) == "" {
		return errors.New("paths.storage_dir must be set")
	}
	if strings.TrimSpace(c.Paths.APIBind) == "" {
		return errors.New("paths.api_bind must be set")
	}
	if err := ensurePositiveMap(map[string]int{
		"translation.request_timeout":   c.Translation.RequestTimeout,
		"translation.retry_attempts":    c.Translation.RetryAttempts,
		"workflow.delete_delay_seconds": c.Workflow.DeleteDelaySeconds,
	}); err != nil {
		return err
	}
	if c.Workflow.StagePauseMS < 0 {
		return errors.New("workflow.stage_pause_ms must not be negative")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	if err := c.validateLipSync(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLipSync() error {
	repo := strings.TrimSpace(c.LipSync.RepoPath)
	checkpoint := strings.TrimSpace(c.LipSync.CheckpointPath)
	if (repo == "") != (checkpoint == "") {
		return errors.New("lipsync.repo_path and lipsync.checkpoint_path must be set together")
	}
	return nil
}

// LipSyncEnabled reports whether the optional lip-sync stage is configured.
func (c *Config) LipSyncEnabled() bool {
	return strings.TrimSpace(c.LipSync.RepoPath) != "" && strings.TrimSpace(c.LipSync.CheckpointPath) != ""
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be greater than zero", key)
		}
	}
	return nil
}
