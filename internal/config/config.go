package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	StorageDir string `toml:"storage_dir"`
	LogDir     string `toml:"log_dir"`
	APIBind    string `toml:"api_bind"`
}

// Transcription configures the speech-to-text providers.
type Transcription struct {
	WhisperBinary string `toml:"whisper_binary"`
	Model         string `toml:"model"`
	ModelDir      string `toml:"model_dir"`
}

// Translation configures the translation fallback chain.
type Translation struct {
	LibreTranslateURL string `toml:"libretranslate_url"`
	RequestTimeout    int    `toml:"request_timeout"`
	RetryAttempts     int    `toml:"retry_attempts"`
}

// Synthesis configures text-to-speech providers.
type Synthesis struct {
	EspeakBinary string `toml:"espeak_binary"`
	CloneBinary  string `toml:"clone_binary"`
	CloneModel   string `toml:"clone_model"`
}

// LipSync configures the optional lip-sync post-process.
type LipSync struct {
	RepoPath       string `toml:"repo_path"`
	CheckpointPath string `toml:"checkpoint_path"`
	PythonBinary   string `toml:"python_binary"`
}

// OpenAI contains shared API connection settings used by the cloud
// transcription and synthesis providers.
type OpenAI struct {
	APIKey   string `toml:"api_key"`
	BaseURL  string `toml:"base_url"`
	TTSModel string `toml:"tts_model"`
	TTSVoice string `toml:"tts_voice"`
}

// Workflow contains job lifecycle timing settings.
type Workflow struct {
	AutoDelete         bool `toml:"auto_delete"`
	DeleteDelaySeconds int  `toml:"delete_delay_seconds"`
	StagePauseMS       int  `toml:"stage_pause_ms"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// API contains HTTP surface settings.
type API struct {
	CORSOrigins []string `toml:"cors_origins"`
	Development bool     `toml:"development"`
}

// Config encapsulates all configuration values for dubber.
//
// Configuration sections by subsystem:
//   - Paths: storage/log directories and API bind address
//   - Transcription: local whisper binary and model selection
//   - Translation: fallback chain endpoints and retry policy
//   - Synthesis: espeak fallback and optional voice-clone tool
//   - LipSync: optional external inference repo + checkpoint
//   - OpenAI: shared API settings for cloud STT/TTS
//   - Workflow: auto-delete and stage pacing
//   - Logging: log format and level
//   - API: CORS policy
type Config struct {
	Paths         Paths         `toml:"paths"`
	Transcription Transcription `toml:"transcription"`
	Translation   Translation   `toml:"translation"`
	Synthesis     Synthesis     `toml:"synthesis"`
	LipSync       LipSync       `toml:"lipsync"`
	OpenAI        OpenAI        `toml:"openai"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
	API           API           `toml:"api"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/dubber/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("dubber.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.StorageDir, err = expandPath(c.Paths.StorageDir); err != nil {
		return fmt.Errorf("paths.storage_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Transcription.WhisperBinary) == "" {
		c.Transcription.WhisperBinary = defaultWhisperBinary
	}
	if strings.TrimSpace(c.Transcription.Model) == "" {
		c.Transcription.Model = defaultWhisperModel
	}
	if c.Transcription.ModelDir != "" {
		if c.Transcription.ModelDir, err = expandPath(c.Transcription.ModelDir); err != nil {
			return fmt.Errorf("transcription.model_dir: %w", err)
		}
	}
	c.Translation.LibreTranslateURL = strings.TrimRight(strings.TrimSpace(c.Translation.LibreTranslateURL), "/")
	if c.Translation.LibreTranslateURL == "" {
		c.Translation.LibreTranslateURL = defaultLibreTranslateURL
	}
	if strings.TrimSpace(c.Synthesis.EspeakBinary) == "" {
		c.Synthesis.EspeakBinary = defaultEspeakBinary
	}
	if strings.TrimSpace(c.LipSync.PythonBinary) == "" {
		c.LipSync.PythonBinary = defaultPythonBinary
	}
	if c.LipSync.RepoPath != "" {
		if c.LipSync.RepoPath, err = expandPath(c.LipSync.RepoPath); err != nil {
			return fmt.Errorf("lipsync.repo_path: %w", err)
		}
	}
	if c.LipSync.CheckpointPath != "" {
		if c.LipSync.CheckpointPath, err = expandPath(c.LipSync.CheckpointPath); err != nil {
			return fmt.Errorf("lipsync.checkpoint_path: %w", err)
		}
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StorageDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name used for media processing.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media inspection.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
