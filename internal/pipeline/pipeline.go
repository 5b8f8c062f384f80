package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"dubber/internal/jobs"
	"dubber/internal/language"
	"dubber/internal/logging"
	"dubber/internal/mux"
	"dubber/internal/services"
	"dubber/internal/subtitles"
	"dubber/internal/synth"
	"dubber/internal/transcribe"
)

// Progress checkpoints reported as stages finish.
const (
	progressStarted    = 0.1
	progressTranscript = 0.3
	progressSynthesis  = 0.6
	progressMux        = 0.85
	progressDone       = 1.0
)

// Extractor pulls the audio track out of an uploaded video and measures the
// source footage.
type Extractor interface {
	Extract(ctx context.Context, videoPath, wavPath string) error
	Duration(ctx context.Context, path string) (float64, error)
}

// Transcriber converts audio to timed text.
type Transcriber interface {
	Transcribe(ctx context.Context, wavPath string) (transcribe.Result, error)
}

// Translator converts text to the target language. source carries the
// detected source language and may be empty.
type Translator interface {
	Translate(ctx context.Context, text, target, source string) (string, error)
}

// Synthesizer renders translated text as speech.
type Synthesizer interface {
	Synthesize(ctx context.Context, req synth.Request) (string, error)
}

// LipSyncer optionally matches mouth movement to the dubbed audio.
type LipSyncer interface {
	Apply(ctx context.Context, videoPath, audioPath, workDir string) (string, bool)
}

// Muxer combines video frames with dubbed audio.
type Muxer interface {
	Mux(ctx context.Context, videoPath, audioPath, outPath string) (string, string, error)
}

// History records finished jobs.
type History interface {
	Append(ctx context.Context, entry jobs.HistoryEntry) error
}

// Pipeline runs one job end to end: extract, transcribe, translate,
// synthesize, lip-sync, mux. Individual stage failures degrade where the
// output can still be useful; only unreadable input and mux failures are
// fatal.
type Pipeline struct {
	logger      *slog.Logger
	store       *jobs.Store
	history     History
	extractor   Extractor
	transcriber Transcriber
	translator  Translator
	synthesizer Synthesizer
	syncer      LipSyncer
	muxer       Muxer
	stagePause  time.Duration
}

// Deps bundles pipeline construction dependencies.
type Deps struct {
	Logger      *slog.Logger
	Store       *jobs.Store
	History     History
	Extractor   Extractor
	Transcriber Transcriber
	Translator  Translator
	Synthesizer Synthesizer
	Syncer      LipSyncer // nil disables lip-sync
	Muxer       Muxer
	StagePause  time.Duration
}

// New builds a Pipeline.
func New(deps Deps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{
		logger:      logger,
		store:       deps.Store,
		history:     deps.History,
		extractor:   deps.Extractor,
		transcriber: deps.Transcriber,
		translator:  deps.Translator,
		synthesizer: deps.Synthesizer,
		syncer:      deps.Syncer,
		muxer:       deps.Muxer,
		stagePause:  deps.StagePause,
	}
}

// Run drives a queued job to a terminal status. It always leaves the job
// terminal and appends exactly one history entry, even on early failure.
func (p *Pipeline) Run(ctx context.Context, jobID string) {
	job, err := p.store.Get(jobID)
	if err != nil {
		p.logger.Error("job vanished before run", logging.String("job_id", jobID), logging.Error(err))
		return
	}
	ctx = services.WithJobID(ctx, jobID)
	logger := logging.WithContext(ctx, p.logger).With(logging.String("target", job.TargetLanguage))

	if _, err := p.store.Update(jobID, func(j *jobs.Job) {
		j.Status = jobs.StatusProcessing
		j.Progress = progressStarted
	}); err != nil {
		return
	}

	// Audio extraction. Unreadable input is the one early failure.
	wavPath := filepath.Join(job.WorkDir, "audio.wav")
	if err := p.extractor.Extract(services.WithStage(ctx, "extract"), job.Artifacts.SourceVideo, wavPath); err != nil {
		logger.Error("audio extraction failed", logging.Error(err))
		p.finish(ctx, jobID, jobs.StatusFailed, services.Message(err))
		return
	}
	durationSec, err := p.extractor.Duration(ctx, job.Artifacts.SourceVideo)
	if err != nil {
		logger.Warn("source duration probe failed", logging.Error(err))
		durationSec = 0
	}
	p.store.Update(jobID, func(j *jobs.Job) { //nolint:errcheck
		j.Artifacts.ExtractedWAV = wavPath
		j.DurationSec = durationSec
	})
	p.pause(ctx)

	// Transcription, translation, subtitles.
	lines, segments, transcript, note := p.transcribeAndTranslate(ctx, logger, job.TargetLanguage, wavPath)
	if ctx.Err() != nil {
		p.finish(ctx, jobID, jobs.StatusFailed, "canceled")
		return
	}
	translation := strings.Join(lines, " ")

	srtPath := filepath.Join(job.WorkDir, "subtitles.srt")
	vttPath := filepath.Join(job.WorkDir, "subtitles.vtt")
	cues := subtitles.FromSegments(segments)
	if len(cues) == 0 {
		cues = subtitles.FromLines(lines)
	}
	if err := subtitles.WriteSRT(srtPath, cues); err != nil {
		logger.Warn("subtitle write failed", logging.Error(err))
		srtPath = ""
	}
	if err := subtitles.WriteVTT(vttPath, cues); err != nil {
		logger.Warn("subtitle write failed", logging.Error(err))
		vttPath = ""
	}

	p.store.Update(jobID, func(j *jobs.Job) { //nolint:errcheck
		j.Progress = progressTranscript
		j.Transcript = transcript
		j.Translation = translation
		j.Words = len(strings.Fields(translation))
		j.Message = note
		j.Artifacts.SubtitleSRT = srtPath
		j.Artifacts.SubtitleVTT = vttPath
	})
	p.pause(ctx)

	// Speech synthesis. Failure degrades to placeholder artifacts rather
	// than failing the job: subtitles and transcript are still useful.
	referenceWAV := wavPath
	if job.Artifacts.VoiceSample != "" {
		referenceWAV = job.Artifacts.VoiceSample
	}
	dubPath, err := p.synthesizer.Synthesize(services.WithStage(ctx, "synthesize"), synth.Request{
		Text:         translation,
		Segments:     segments,
		Language:     job.TargetLanguage,
		ReferenceWAV: referenceWAV,
		WorkDir:      job.WorkDir,
	})
	if err != nil {
		if ctx.Err() != nil {
			p.finish(ctx, jobID, jobs.StatusFailed, "canceled")
			return
		}
		logger.Warn("speech synthesis failed, completing with placeholders", logging.Error(err))
		p.completeWithPlaceholders(ctx, jobID, job.WorkDir, "speech synthesis unavailable")
		return
	}
	p.store.Update(jobID, func(j *jobs.Job) { j.Progress = progressSynthesis }) //nolint:errcheck
	p.pause(ctx)

	// Optional lip-sync; any failure keeps the original frames.
	videoForMux := job.Artifacts.SourceVideo
	lipSynced := false
	if p.syncer != nil {
		if synced, ok := p.syncer.Apply(ctx, videoForMux, dubPath, job.WorkDir); ok {
			videoForMux = synced
			lipSynced = true
		}
	}

	// Mux. Failure here is terminal: there is no dubbed video to deliver.
	outPath := filepath.Join(job.WorkDir, "dubbed.mp4")
	muxed, preview, err := p.muxer.Mux(services.WithStage(ctx, "mux"), videoForMux, dubPath, outPath)
	if err != nil {
		logger.Error("mux failed", logging.Error(err))
		p.writePlaceholders(jobID, job.WorkDir)
		p.finish(ctx, jobID, jobs.StatusFailed, services.Message(err))
		return
	}
	p.store.Update(jobID, func(j *jobs.Job) { //nolint:errcheck
		j.Progress = progressMux
		j.LipSynced = lipSynced
		j.Artifacts.DubbedVideo = muxed
		j.Artifacts.Preview = preview
	})
	p.pause(ctx)

	p.finish(ctx, jobID, jobs.StatusCompleted, "")
	logger.Info("job completed", logging.Bool("lip_synced", lipSynced))
}

// LiveResult is the outcome of a synchronous live translation request.
type LiveResult struct {
	Transcript  string
	Translation string
	AudioPath   string
}

// LiveTranslate runs the synchronous path: extract, transcribe, translate
// the whole text in one block, and render a single take. No job record is
// created and nothing is written to history; the caller owns workDir.
func (p *Pipeline) LiveTranslate(ctx context.Context, videoPath, target, workDir string) (LiveResult, error) {
	wavPath := filepath.Join(workDir, "audio.wav")
	if err := p.extractor.Extract(services.WithStage(ctx, "extract"), videoPath, wavPath); err != nil {
		return LiveResult{}, err
	}

	result, err := p.transcriber.Transcribe(services.WithStage(ctx, "transcribe"), wavPath)
	if err != nil {
		return LiveResult{}, err
	}
	if result.Empty() {
		return LiveResult{}, services.Wrap(services.ErrNoResult, "live", "transcribe", "no speech recognized", nil)
	}

	translation, err := p.translator.Translate(services.WithStage(ctx, "translate"), result.Text, target, result.Language)
	if err != nil || strings.TrimSpace(translation) == "" {
		translation = result.Text
	}

	audioPath, err := p.synthesizer.Synthesize(services.WithStage(ctx, "synthesize"), synth.Request{
		Text:     translation,
		Language: target,
		WorkDir:  workDir,
	})
	if err != nil {
		return LiveResult{}, err
	}
	return LiveResult{Transcript: result.Text, Translation: translation, AudioPath: audioPath}, nil
}

// transcribeAndTranslate produces the translated lines and segments the rest
// of the pipeline consumes, degrading to demo content when transcription is
// empty and to untranslated text when every translation provider fails.
func (p *Pipeline) transcribeAndTranslate(ctx context.Context, logger *slog.Logger, target, wavPath string) (lines []string, segments []transcribe.Segment, transcript, note string) {
	result, err := p.transcriber.Transcribe(services.WithStage(ctx, "transcribe"), wavPath)
	if err != nil || result.Empty() {
		if err != nil {
			logger.Warn("transcription failed", logging.Error(err))
		}
		lines = demoLines(language.ProviderCode(target))
		note = "no speech recognized; demo narration used"
		segments = make([]transcribe.Segment, 0, len(lines))
		offset := 0.0
		for _, line := range lines {
			segments = append(segments, transcribe.Segment{Start: offset, End: offset + 2, Text: line})
			offset += 2
		}
		return lines, segments, "", note
	}

	transcript = result.Text
	segments = result.Segments
	if len(segments) == 0 {
		segments = []transcribe.Segment{{Start: 0, End: 2, Text: transcript}}
	}

	translated := make([]string, 0, len(segments))
	failures := 0
	for i := range segments {
		if ctx.Err() != nil {
			return nil, nil, transcript, ""
		}
		text, err := p.translator.Translate(services.WithStage(ctx, "translate"), segments[i].Text, target, result.Language)
		if err != nil || strings.TrimSpace(text) == "" {
			failures++
			translated = append(translated, segments[i].Text)
			continue
		}
		segments[i].Text = text
		translated = append(translated, text)
	}
	if failures == len(segments) {
		note = "translation unavailable; original language kept"
		logger.Warn("all translation attempts failed")
	}
	return translated, segments, transcript, note
}

// completeWithPlaceholders finishes a job whose dub could not be produced.
func (p *Pipeline) completeWithPlaceholders(ctx context.Context, jobID, workDir, note string) {
	p.writePlaceholders(jobID, workDir)
	p.store.Update(jobID, func(j *jobs.Job) { j.Message = note }) //nolint:errcheck
	p.finish(ctx, jobID, jobs.StatusCompleted, "")
}

func (p *Pipeline) writePlaceholders(jobID, workDir string) {
	outPath := filepath.Join(workDir, "dubbed.mp4")
	previewPath := filepath.Join(workDir, "dubbed_preview.mp4")
	if err := mux.WritePlaceholder(outPath, "dubbed output unavailable\n"); err != nil {
		p.logger.Warn("placeholder write failed", logging.Error(err))
		return
	}
	if err := mux.WritePlaceholder(previewPath, "preview unavailable\n"); err != nil {
		p.logger.Warn("placeholder write failed", logging.Error(err))
		return
	}
	p.store.Update(jobID, func(j *jobs.Job) { //nolint:errcheck
		j.Artifacts.DubbedVideo = outPath
		j.Artifacts.Preview = previewPath
	})
}

// finish moves the job to its terminal status and appends the single history
// entry. Already-terminal jobs are left alone, which keeps the panic path
// from double-recording.
func (p *Pipeline) finish(ctx context.Context, jobID string, status jobs.Status, errMsg string) {
	current, err := p.store.Get(jobID)
	if err != nil || current.Status.Terminal() {
		return
	}

	// History goes in before the status flips so anyone who observes the
	// terminal status also sees the dashboard entry.
	if p.history != nil {
		entryError := current.Error
		if errMsg != "" {
			entryError = errMsg
		}
		entry := jobs.HistoryEntry{
			JobID:          current.ID,
			User:           current.User,
			Filename:       current.Filename,
			TargetLanguage: current.TargetLanguage,
			Status:         status,
			LipSynced:      current.LipSynced,
			DurationSec:    current.DurationSec,
			Words:          current.Words,
			Error:          entryError,
			CreatedAt:      current.CreatedAt,
			FinishedAt:     time.Now().UTC(),
		}
		// Fresh context: history must record even when the job context was
		// canceled.
		appendCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.history.Append(appendCtx, entry); err != nil {
			p.logger.Error("history append failed", logging.String("job_id", jobID), logging.Error(err))
		}
	}

	p.store.Update(jobID, func(j *jobs.Job) { //nolint:errcheck
		j.Status = status
		j.Progress = progressDone
		if errMsg != "" {
			j.Error = errMsg
		}
	})
}

// Fail is the supervisor's entry point for jobs that died outside normal
// stage flow (panics).
func (p *Pipeline) Fail(jobID, message string) {
	p.finish(context.Background(), jobID, jobs.StatusFailed, message)
}

func (p *Pipeline) pause(ctx context.Context) {
	if p.stagePause <= 0 {
		return
	}
	timer := time.NewTimer(p.stagePause)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
