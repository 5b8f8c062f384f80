package transcribe

import (
	"context"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// transcriptionClient is the slice of the OpenAI client this backend needs.
type transcriptionClient interface {
	CreateTranscription(ctx context.Context, request openai.AudioRequest) (openai.AudioResponse, error)
}

// OpenAIBackend transcribes audio with the hosted whisper-1 model. Used when
// no local whisper binary is available, or as a second opinion after a local
// failure.
type OpenAIBackend struct {
	client transcriptionClient
}

// NewOpenAIBackend builds the cloud backend from an API key. Returns nil when
// the key is empty so callers can pass the result straight to NewTranscriber.
func NewOpenAIBackend(apiKey, baseURL string) *OpenAIBackend {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIBackend{client: openai.NewClientWithConfig(cfg)}
}

// NewOpenAIBackendWithClient injects a client directly, for tests.
func NewOpenAIBackendWithClient(client transcriptionClient) *OpenAIBackend {
	if client == nil {
		return nil
	}
	return &OpenAIBackend{client: client}
}

// Name identifies the backend in logs.
func (b *OpenAIBackend) Name() string { return "openai-whisper" }

// Transcribe uploads the WAV file and maps the verbose response to segments.
func (b *OpenAIBackend) Transcribe(ctx context.Context, wavPath string) (Result, error) {
	response, err := b.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: wavPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return Result{}, wrapBackendErr("create-transcription", "hosted transcription failed", err)
	}

	result := Result{
		Text:     strings.TrimSpace(response.Text),
		Language: response.Language,
	}
	for _, segment := range response.Segments {
		text := strings.TrimSpace(segment.Text)
		if text == "" {
			continue
		}
		result.Segments = append(result.Segments, Segment{
			Start: segment.Start,
			End:   segment.End,
			Text:  text,
		})
	}
	return result, nil
}
