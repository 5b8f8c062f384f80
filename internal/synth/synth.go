package synth

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dubber/internal/language"
	"dubber/internal/logging"
	"dubber/internal/media/ffprobe"
	"dubber/internal/services"
	"dubber/internal/transcribe"
)

// interSegmentGapMS is the silence inserted between stitched segments so
// adjacent sentences do not run into each other.
const interSegmentGapMS = 80

// Provider turns text into a WAV file in one shot.
type Provider interface {
	Name() string
	Speak(ctx context.Context, text, langCode, outPath string) error
}

// Request describes one synthesis run.
type Request struct {
	// Text is the full translated transcript.
	Text string
	// Segments carries per-segment timing from transcription, already
	// translated. May be empty when timing never existed.
	Segments []transcribe.Segment
	// Language is the catalog target code.
	Language string
	// ReferenceWAV is the original speaker audio for voice cloning. Empty
	// disables the clone strategy.
	ReferenceWAV string
	// WorkDir receives intermediate and final audio files.
	WorkDir string
}

// Synthesizer produces dubbed speech, preferring per-segment synthesis
// aligned to the source timing (voice-cloned per segment when a reference
// sample exists), then a whole-text clone, then a single unaligned take.
type Synthesizer struct {
	logger    *slog.Logger
	cloner    *Cloner
	providers []Provider
	ffmpeg    *ffmpegOps
}

// New builds a Synthesizer. cloner may be nil; providers run in order.
func New(logger *slog.Logger, cloner *Cloner, ffmpegBinary, ffprobeBinary string, providers ...Provider) *Synthesizer {
	if logger == nil {
		logger = logging.NewNop()
	}
	active := make([]Provider, 0, len(providers))
	for _, provider := range providers {
		if provider != nil {
			active = append(active, provider)
		}
	}
	return &Synthesizer{
		logger:    logger,
		cloner:    cloner,
		providers: active,
		ffmpeg:    newFFmpegOps(ffmpegBinary, ffprobeBinary),
	}
}

// WithCommandRunner overrides subprocess execution for the ffmpeg helpers,
// for tests.
func (s *Synthesizer) WithCommandRunner(runner ffprobe.CommandRunner) *Synthesizer {
	s.ffmpeg.runner = runner
	if s.cloner != nil {
		s.cloner.runner = runner
	}
	return s
}

// Synthesize renders dubbed speech for the request and returns the WAV path.
// All strategies failing returns services.ErrNoResult.
func (s *Synthesizer) Synthesize(ctx context.Context, req Request) (string, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return "", services.Wrap(services.ErrValidation, "synthesize", "input", "no text to speak", nil)
	}
	if err := os.MkdirAll(req.WorkDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "synthesize", "workdir", "create work directory", err)
	}
	providerLang := language.ProviderCode(req.Language)

	if len(req.Segments) > 0 {
		outPath, err := s.synthesizeSegments(ctx, req, providerLang)
		if err == nil {
			return outPath, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		s.logger.Warn("segment-aligned synthesis failed, falling back", logging.Error(err))
	}

	if s.cloner != nil && req.ReferenceWAV != "" {
		outPath := filepath.Join(req.WorkDir, "dub_cloned.wav")
		err := s.cloner.Clone(ctx, text, providerLang, req.ReferenceWAV, outPath)
		if err == nil {
			return outPath, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		s.logger.Warn("voice clone failed, falling back", logging.Error(err))
	}

	outPath := filepath.Join(req.WorkDir, "dub_flat.wav")
	if err := s.speak(ctx, text, providerLang, outPath); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", services.Wrap(services.ErrNoResult, "synthesize", "providers", "all synthesis strategies failed", err)
	}
	return outPath, nil
}

// synthesizeSegments renders each segment (cloned in the reference voice
// when possible), stretches it to its source window, and stitches the
// results with short silences in between.
func (s *Synthesizer) synthesizeSegments(ctx context.Context, req Request, providerLang string) (string, error) {
	segmentDir := filepath.Join(req.WorkDir, "segments")
	if err := os.MkdirAll(segmentDir, 0o755); err != nil {
		return "", fmt.Errorf("create segment directory: %w", err)
	}

	var pieces []string
	for i, segment := range req.Segments {
		text := strings.TrimSpace(segment.Text)
		if text == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}

		rawPath := filepath.Join(segmentDir, fmt.Sprintf("seg_%03d_raw.wav", i))
		if err := s.render(ctx, text, providerLang, req.ReferenceWAV, rawPath); err != nil {
			return "", fmt.Errorf("segment %d: %w", i, err)
		}

		window := segment.End - segment.Start
		fitted := rawPath
		if window > 0 {
			fittedPath := filepath.Join(segmentDir, fmt.Sprintf("seg_%03d.wav", i))
			if err := s.ffmpeg.stretchToDuration(ctx, rawPath, fittedPath, window); err != nil {
				return "", fmt.Errorf("segment %d stretch: %w", i, err)
			}
			fitted = fittedPath
		}

		if len(pieces) > 0 {
			gapPath := filepath.Join(segmentDir, fmt.Sprintf("gap_%03d.wav", i))
			if err := s.ffmpeg.makeSilence(ctx, gapPath, interSegmentGapMS); err != nil {
				return "", fmt.Errorf("segment %d gap: %w", i, err)
			}
			pieces = append(pieces, gapPath)
		}
		pieces = append(pieces, fitted)
	}
	if len(pieces) == 0 {
		return "", fmt.Errorf("no speakable segments")
	}

	outPath := filepath.Join(req.WorkDir, "dub_aligned.wav")
	if err := s.ffmpeg.concat(ctx, pieces, outPath); err != nil {
		return "", fmt.Errorf("concat segments: %w", err)
	}
	return outPath, nil
}

// render produces one utterance, cloning the reference voice when a sample
// is available and falling back to the provider chain otherwise.
func (s *Synthesizer) render(ctx context.Context, text, providerLang, referenceWAV, outPath string) error {
	if s.cloner != nil && referenceWAV != "" {
		err := s.cloner.Clone(ctx, text, providerLang, referenceWAV, outPath)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Debug("voice clone failed for utterance, using providers", logging.Error(err))
	}
	return s.speak(ctx, text, providerLang, outPath)
}

// speak walks the provider chain for a single utterance.
func (s *Synthesizer) speak(ctx context.Context, text, providerLang, outPath string) error {
	var lastErr error
	for _, provider := range s.providers {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := provider.Speak(ctx, text, providerLang, outPath); err != nil {
			lastErr = err
			s.logger.Debug("speech provider failed",
				logging.String("provider", provider.Name()),
				logging.Error(err))
			continue
		}
		return nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no speech providers configured")
	}
	return lastErr
}
