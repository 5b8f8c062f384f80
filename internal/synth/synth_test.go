package synth_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"dubber/internal/synth"
	"dubber/internal/transcribe"
)

func TestClampRate(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{0.1, 0.33},
		{0.33, 0.33},
		{1.0, 1.0},
		{3.0, 3.0},
		{7.5, 3.0},
	}
	for _, tc := range cases {
		if got := synth.ClampRate(tc.in); got != tc.want {
			t.Fatalf("ClampRate(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestAtempoChainStaysInFilterRange(t *testing.T) {
	for _, rate := range []float64{0.33, 0.5, 1.0, 1.7, 2.4, 3.0} {
		product := 1.0
		for _, step := range synth.AtempoChain(rate) {
			value, err := strconv.ParseFloat(strings.TrimPrefix(step, "atempo="), 64)
			if err != nil {
				t.Fatalf("unparseable step %q: %v", step, err)
			}
			if value < 0.5 || value > 2.0 {
				t.Fatalf("step %q outside atempo range for rate %v", step, rate)
			}
			product *= value
		}
		if diff := product - rate; diff > 0.01 || diff < -0.01 {
			t.Fatalf("chain for %v multiplies to %v", rate, product)
		}
	}
}

type scriptedProvider struct {
	name  string
	fail  bool
	calls int
}

func (p *scriptedProvider) Name() string { return p.name }

func (p *scriptedProvider) Speak(ctx context.Context, text, langCode, outPath string) error {
	p.calls++
	if p.fail {
		return errors.New("provider down")
	}
	return os.WriteFile(outPath, []byte("RIFF"), 0o644)
}

// fakeRunner emulates the ffprobe/ffmpeg calls the synthesizer makes: probes
// report a fixed duration and ffmpeg invocations create their output file.
func fakeRunner(t *testing.T) func(ctx context.Context, binary string, args ...string) ([]byte, error) {
	t.Helper()
	return func(ctx context.Context, binary string, args ...string) ([]byte, error) {
		if binary == "ffprobe" {
			return []byte(`{"streams":[{"codec_type":"audio"}],"format":{"duration":"2.0"}}`), nil
		}
		outPath := args[len(args)-1]
		if err := os.WriteFile(outPath, []byte("RIFF"), 0o644); err != nil {
			return nil, err
		}
		return nil, nil
	}
}

func TestSynthesizeAlignsSegments(t *testing.T) {
	provider := &scriptedProvider{name: "stub"}
	synthesizer := synth.New(nil, nil, "ffmpeg", "ffprobe", provider).
		WithCommandRunner(fakeRunner(t))

	out, err := synthesizer.Synthesize(context.Background(), synth.Request{
		Text:     "hola mundo",
		Language: "es",
		WorkDir:  t.TempDir(),
		Segments: []transcribe.Segment{
			{Start: 0, End: 2, Text: "hola"},
			{Start: 2, End: 4, Text: "mundo"},
		},
	})
	if err != nil {
		t.Fatalf("synthesize failed: %v", err)
	}
	if filepath.Base(out) != "dub_aligned.wav" {
		t.Fatalf("expected aligned output, got %q", out)
	}
	if provider.calls != 2 {
		t.Fatalf("expected one provider call per segment, got %d", provider.calls)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("missing output: %v", err)
	}
}

func TestSynthesizeClonesPerSegment(t *testing.T) {
	provider := &scriptedProvider{name: "stub"}
	cloneCalls := 0
	base := fakeRunner(t)
	runner := func(ctx context.Context, binary string, args ...string) ([]byte, error) {
		if binary == "clone-cli" {
			cloneCalls++
		}
		return base(ctx, binary, args...)
	}
	cloner := synth.NewCloner("clone-cli", "xtts_v2")
	synthesizer := synth.New(nil, cloner, "ffmpeg", "ffprobe", provider).
		WithCommandRunner(runner)

	out, err := synthesizer.Synthesize(context.Background(), synth.Request{
		Text:         "hola mundo",
		Language:     "es",
		ReferenceWAV: filepath.Join(t.TempDir(), "voice.wav"),
		WorkDir:      t.TempDir(),
		Segments: []transcribe.Segment{
			{Start: 0, End: 2, Text: "hola"},
			{Start: 2, End: 4, Text: "mundo"},
		},
	})
	if err != nil {
		t.Fatalf("synthesize failed: %v", err)
	}
	if filepath.Base(out) != "dub_aligned.wav" {
		t.Fatalf("cloned segments must go through alignment, got %q", out)
	}
	if cloneCalls != 2 {
		t.Fatalf("expected one clone call per segment, got %d", cloneCalls)
	}
	if provider.calls != 0 {
		t.Fatalf("providers must not run when cloning succeeds, calls=%d", provider.calls)
	}
}

func TestSynthesizeWholeCloneWithoutSegments(t *testing.T) {
	cloner := synth.NewCloner("clone-cli", "")
	synthesizer := synth.New(nil, cloner, "ffmpeg", "ffprobe", &scriptedProvider{name: "stub"}).
		WithCommandRunner(fakeRunner(t))

	out, err := synthesizer.Synthesize(context.Background(), synth.Request{
		Text:         "hola mundo",
		Language:     "es",
		ReferenceWAV: filepath.Join(t.TempDir(), "voice.wav"),
		WorkDir:      t.TempDir(),
	})
	if err != nil {
		t.Fatalf("synthesize failed: %v", err)
	}
	if filepath.Base(out) != "dub_cloned.wav" {
		t.Fatalf("expected whole-text clone, got %q", out)
	}
}

func TestSynthesizeFallsBackToFlatTake(t *testing.T) {
	provider := &scriptedProvider{name: "stub"}
	synthesizer := synth.New(nil, nil, "ffmpeg", "ffprobe", provider).
		WithCommandRunner(fakeRunner(t))

	out, err := synthesizer.Synthesize(context.Background(), synth.Request{
		Text:     "hola mundo",
		Language: "es",
		WorkDir:  t.TempDir(),
	})
	if err != nil {
		t.Fatalf("synthesize failed: %v", err)
	}
	if filepath.Base(out) != "dub_flat.wav" {
		t.Fatalf("expected flat output, got %q", out)
	}
}

func TestSynthesizeProviderChain(t *testing.T) {
	broken := &scriptedProvider{name: "broken", fail: true}
	working := &scriptedProvider{name: "working"}
	synthesizer := synth.New(nil, nil, "ffmpeg", "ffprobe", broken, working).
		WithCommandRunner(fakeRunner(t))

	_, err := synthesizer.Synthesize(context.Background(), synth.Request{
		Text:     "hola",
		Language: "es",
		WorkDir:  t.TempDir(),
	})
	if err != nil {
		t.Fatalf("synthesize failed: %v", err)
	}
	if broken.calls == 0 || working.calls == 0 {
		t.Fatalf("expected chain to try both providers: broken=%d working=%d", broken.calls, working.calls)
	}
}

func TestSynthesizeFailsWithoutText(t *testing.T) {
	synthesizer := synth.New(nil, nil, "ffmpeg", "ffprobe", &scriptedProvider{name: "stub"})
	if _, err := synthesizer.Synthesize(context.Background(), synth.Request{WorkDir: t.TempDir()}); err == nil {
		t.Fatal("expected error without text")
	}
}

func TestSynthesizeAllProvidersDown(t *testing.T) {
	broken := &scriptedProvider{name: "broken", fail: true}
	synthesizer := synth.New(nil, nil, "ffmpeg", "ffprobe", broken).
		WithCommandRunner(fakeRunner(t))

	_, err := synthesizer.Synthesize(context.Background(), synth.Request{
		Text:     "hola",
		Language: "es",
		WorkDir:  t.TempDir(),
	})
	if err == nil {
		t.Fatal("expected failure when all providers are down")
	}
}

func TestEspeakProviderBuildsVoiceArgs(t *testing.T) {
	var captured []string
	provider := synth.NewEspeakProvider("espeak-ng").WithCommandRunner(
		func(ctx context.Context, binary string, args ...string) ([]byte, error) {
			captured = args
			return nil, os.WriteFile(args[3], []byte("RIFF"), 0o644)
		})

	outPath := filepath.Join(t.TempDir(), "out.wav")
	if err := provider.Speak(context.Background(), "ni hao", "zh-CN", outPath); err != nil {
		t.Fatalf("speak failed: %v", err)
	}
	want := fmt.Sprintf("-v zh -w %s ni hao", outPath)
	if got := strings.Join(captured, " "); got != want {
		t.Fatalf("args = %q, want %q", got, want)
	}
}
