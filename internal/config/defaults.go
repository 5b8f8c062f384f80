package config

const (
	defaultStorageDir         = "~/.local/share/dubber/storage"
	defaultLogDir             = "~/.local/share/dubber/logs"
	defaultAPIBind            = "127.0.0.1:8787"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultWhisperBinary      = "whisper-cli"
	defaultWhisperModel       = "tiny"
	defaultLibreTranslateURL  = "https://libretranslate.de"
	defaultEspeakBinary       = "espeak-ng"
	defaultPythonBinary       = "python3"
	defaultTranslationTimeout = 10
	defaultRetryAttempts      = 2
	defaultDeleteDelaySeconds = 600
	defaultStagePauseMS       = 300
	defaultTTSModel           = "tts-1"
	defaultTTSVoice           = "alloy"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StorageDir: defaultStorageDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		Transcription: Transcription{
			WhisperBinary: defaultWhisperBinary,
			Model:         defaultWhisperModel,
		},
		Translation: Translation{
			LibreTranslateURL: defaultLibreTranslateURL,
			RequestTimeout:    defaultTranslationTimeout,
			RetryAttempts:     defaultRetryAttempts,
		},
		Synthesis: Synthesis{
			EspeakBinary: defaultEspeakBinary,
		},
		LipSync: LipSync{
			PythonBinary: defaultPythonBinary,
		},
		OpenAI: OpenAI{
			TTSModel: defaultTTSModel,
			TTSVoice: defaultTTSVoice,
		},
		Workflow: Workflow{
			AutoDelete:         true,
			DeleteDelaySeconds: defaultDeleteDelaySeconds,
			StagePauseMS:       defaultStagePauseMS,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		API: API{
			Development: true,
		},
	}
}
