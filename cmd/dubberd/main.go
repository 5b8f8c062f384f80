package main

import (
	"context"
	"log"
	"log/slog"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"dubber/internal/config"
	"dubber/internal/daemon"
	"dubber/internal/jobs"
	"dubber/internal/lipsync"
	"dubber/internal/logging"
	"dubber/internal/media/audio"
	"dubber/internal/mux"
	"dubber/internal/pipeline"
	"dubber/internal/synth"
	"dubber/internal/transcribe"
	"dubber/internal/translate"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", filepath.Join(cfg.Paths.LogDir, "dubberd.log")},
	})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store := jobs.NewStore()
	history, err := jobs.OpenHistory(cfg.Paths.LogDir)
	if err != nil {
		logger.Error("open history store", logging.Error(err))
		return
	}
	defer history.Close() //nolint:errcheck

	p := pipeline.New(pipeline.Deps{
		Logger:  logging.NewComponentLogger(logger, "pipeline"),
		Store:   store,
		History: history,
		Extractor: audio.NewExtractor(
			cfg.FFmpegBinary(), cfg.FFprobeBinary()),
		Transcriber: transcribe.NewTranscriber(
			logging.NewComponentLogger(logger, "transcribe"),
			transcribe.NewWhisperCLI(
				cfg.Transcription.WhisperBinary,
				cfg.Transcription.Model,
				cfg.Transcription.ModelDir),
			transcribe.NewOpenAIBackend(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL)),
		Translator: translate.New(
			logging.NewComponentLogger(logger, "translate"),
			cfg.Translation.LibreTranslateURL,
			time.Duration(cfg.Translation.RequestTimeout)*time.Second,
			translate.WithAttempts(cfg.Translation.RetryAttempts)),
		Synthesizer: synth.New(
			logging.NewComponentLogger(logger, "synth"),
			synth.NewCloner(cfg.Synthesis.CloneBinary, cfg.Synthesis.CloneModel),
			cfg.FFmpegBinary(), cfg.FFprobeBinary(),
			synth.NewOpenAIProvider(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.TTSModel, cfg.OpenAI.TTSVoice),
			synth.NewEspeakProvider(cfg.Synthesis.EspeakBinary)),
		Syncer: lipSyncer(cfg, logger),
		Muxer: mux.New(
			cfg.FFmpegBinary(), cfg.FFprobeBinary()),
		StagePause: time.Duration(cfg.Workflow.StagePauseMS) * time.Millisecond,
	})
	supervisor := pipeline.NewSupervisor(
		logging.NewComponentLogger(logger, "supervisor"),
		p, store,
		cfg.Workflow.AutoDelete,
		time.Duration(cfg.Workflow.DeleteDelaySeconds)*time.Second)

	d, err := daemon.New(cfg, logger, store, history, supervisor)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		return
	}
	defer d.Close() //nolint:errcheck

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("dubberd shutting down")
}

// lipSyncer returns nil unless lip-sync is configured, which the pipeline
// treats as the stage being disabled.
func lipSyncer(cfg *config.Config, logger *slog.Logger) pipeline.LipSyncer {
	syncer := lipsync.New(
		logging.NewComponentLogger(logger, "lipsync"),
		cfg.LipSync.PythonBinary,
		cfg.LipSync.RepoPath,
		cfg.LipSync.CheckpointPath)
	if syncer == nil {
		return nil
	}
	return syncer
}
