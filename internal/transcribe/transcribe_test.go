package transcribe_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"dubber/internal/transcribe"
)

type stubBackend struct {
	name   string
	result transcribe.Result
	err    error
	calls  int
}

func (s *stubBackend) Name() string { return s.name }

func (s *stubBackend) Transcribe(ctx context.Context, wavPath string) (transcribe.Result, error) {
	s.calls++
	return s.result, s.err
}

func TestTranscriberPrefersFirstBackend(t *testing.T) {
	first := &stubBackend{name: "first", result: transcribe.Result{Text: "hello", Language: "en"}}
	second := &stubBackend{name: "second", result: transcribe.Result{Text: "unused"}}

	transcriber := transcribe.NewTranscriber(nil, first, second)
	result, err := transcriber.Transcribe(context.Background(), "audio.wav")
	if err != nil {
		t.Fatalf("transcribe failed: %v", err)
	}
	if result.Text != "hello" {
		t.Fatalf("unexpected text %q", result.Text)
	}
	if second.calls != 0 {
		t.Fatal("second backend should not run when first succeeds")
	}
}

func TestTranscriberFallsThroughOnFailure(t *testing.T) {
	first := &stubBackend{name: "first", err: errors.New("boom")}
	second := &stubBackend{name: "second", result: transcribe.Result{Text: "fallback"}}

	transcriber := transcribe.NewTranscriber(nil, first, second)
	result, err := transcriber.Transcribe(context.Background(), "audio.wav")
	if err != nil {
		t.Fatalf("transcribe failed: %v", err)
	}
	if result.Text != "fallback" {
		t.Fatalf("unexpected text %q", result.Text)
	}
}

func TestTranscriberDegradesToEmptyResult(t *testing.T) {
	first := &stubBackend{name: "first", err: errors.New("boom")}
	second := &stubBackend{name: "second"}

	transcriber := transcribe.NewTranscriber(nil, first, second)
	result, err := transcriber.Transcribe(context.Background(), "audio.wav")
	if err != nil {
		t.Fatalf("expected graceful degradation, got %v", err)
	}
	if !result.Empty() {
		t.Fatalf("expected empty result, got %+v", result)
	}
}

func TestTranscriberHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	backend := &stubBackend{name: "first", result: transcribe.Result{Text: "hello"}}

	transcriber := transcribe.NewTranscriber(nil, backend)
	if _, err := transcriber.Transcribe(ctx, "audio.wav"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
	if backend.calls != 0 {
		t.Fatal("backend should not run after cancellation")
	}
}

type fakeTranscriptionClient struct {
	response openai.AudioResponse
	err      error
}

func (f *fakeTranscriptionClient) CreateTranscription(ctx context.Context, request openai.AudioRequest) (openai.AudioResponse, error) {
	return f.response, f.err
}

func TestOpenAIBackendMapsSegments(t *testing.T) {
	var response openai.AudioResponse
	payload := `{
		"text": " hello world ",
		"language": "english",
		"segments": [
			{"start": 0, "end": 1.5, "text": " hello"},
			{"start": 1.5, "end": 3, "text": "world "},
			{"start": 3, "end": 4, "text": "   "}
		]
	}`
	if err := json.Unmarshal([]byte(payload), &response); err != nil {
		t.Fatalf("unmarshal fixture: %v", err)
	}
	client := &fakeTranscriptionClient{response: response}

	backend := transcribe.NewOpenAIBackendWithClient(client)
	result, err := backend.Transcribe(context.Background(), "audio.wav")
	if err != nil {
		t.Fatalf("transcribe failed: %v", err)
	}
	if result.Text != "hello world" {
		t.Fatalf("unexpected text %q", result.Text)
	}
	if len(result.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(result.Segments))
	}
	if result.Segments[0].Text != "hello" || result.Segments[0].End != 1.5 {
		t.Fatalf("unexpected first segment: %+v", result.Segments[0])
	}
}

func TestNewOpenAIBackendRequiresKey(t *testing.T) {
	if backend := transcribe.NewOpenAIBackend("  ", ""); backend != nil {
		t.Fatal("expected nil backend without API key")
	}
}
