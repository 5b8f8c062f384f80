package synth

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"dubber/internal/media/ffprobe"
)

// speechClient is the slice of the OpenAI client the provider needs.
type speechClient interface {
	CreateSpeech(ctx context.Context, request openai.CreateSpeechRequest) (openai.RawResponse, error)
}

// OpenAIProvider speaks text with the hosted TTS API.
type OpenAIProvider struct {
	client speechClient
	model  openai.SpeechModel
	voice  openai.SpeechVoice
}

// NewOpenAIProvider builds the hosted provider. Returns nil without an API
// key so callers can pass the result straight to New.
func NewOpenAIProvider(apiKey, baseURL, model, voice string) *OpenAIProvider {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		cfg.BaseURL = baseURL
	}
	provider := &OpenAIProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  openai.TTSModel1,
		voice:  openai.VoiceAlloy,
	}
	if model = strings.TrimSpace(model); model != "" {
		provider.model = openai.SpeechModel(model)
	}
	if voice = strings.TrimSpace(voice); voice != "" {
		provider.voice = openai.SpeechVoice(voice)
	}
	return provider
}

// NewOpenAIProviderWithClient injects a client directly, for tests.
func NewOpenAIProviderWithClient(client speechClient) *OpenAIProvider {
	if client == nil {
		return nil
	}
	return &OpenAIProvider{client: client, model: openai.TTSModel1, voice: openai.VoiceAlloy}
}

// Name identifies the provider in logs.
func (p *OpenAIProvider) Name() string { return "openai-tts" }

// Speak renders text to a WAV file. The hosted voices are multilingual, so
// the language code only matters to the fallback providers.
func (p *OpenAIProvider) Speak(ctx context.Context, text, langCode, outPath string) error {
	response, err := p.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          p.model,
		Voice:          p.voice,
		Input:          text,
		ResponseFormat: openai.SpeechResponseFormatWav,
	})
	if err != nil {
		return fmt.Errorf("openai tts: %w", err)
	}
	defer response.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("openai tts output: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, response); err != nil {
		return fmt.Errorf("openai tts write: %w", err)
	}
	return nil
}

// EspeakProvider speaks text with the local espeak-ng binary. Quality is
// rough but it works offline for most catalog languages.
type EspeakProvider struct {
	binary string
	runner ffprobe.CommandRunner
}

// NewEspeakProvider builds the offline provider.
func NewEspeakProvider(binary string) *EspeakProvider {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil
	}
	return &EspeakProvider{binary: binary, runner: ffprobe.RunCommand}
}

// WithCommandRunner overrides subprocess execution, for tests.
func (p *EspeakProvider) WithCommandRunner(runner ffprobe.CommandRunner) *EspeakProvider {
	if runner != nil {
		p.runner = runner
	}
	return p
}

// Name identifies the provider in logs.
func (p *EspeakProvider) Name() string { return "espeak-ng" }

// Speak renders text to a WAV file.
func (p *EspeakProvider) Speak(ctx context.Context, text, langCode, outPath string) error {
	voice := strings.ToLower(strings.TrimSpace(langCode))
	if voice == "" {
		voice = "en"
	}
	// espeak voices use bare language codes ("zh", not "zh-CN").
	if idx := strings.IndexByte(voice, '-'); idx > 0 {
		voice = voice[:idx]
	}
	args := []string{"-v", voice, "-w", outPath, text}
	output, err := p.runner(ctx, p.binary, args...)
	if err != nil {
		return fmt.Errorf("espeak: %w: %s", err, strings.TrimSpace(string(output)))
	}
	if info, statErr := os.Stat(outPath); statErr != nil || info.Size() == 0 {
		return fmt.Errorf("espeak produced no audio")
	}
	return nil
}
