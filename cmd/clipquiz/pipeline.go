package main

import (
	"fmt"
	"log/slog"

	"clipquiz/internal/config"
	"clipquiz/internal/conversion"
	"clipquiz/internal/events"
	"clipquiz/internal/journal"
	"clipquiz/internal/logging"
	"clipquiz/internal/notifications"
	"clipquiz/internal/quiz"
	"clipquiz/internal/services/ffmpeg"
	"clipquiz/internal/services/llm"
	"clipquiz/internal/services/whisperx"
	"clipquiz/internal/services/ytdlp"
	"clipquiz/internal/workspace"
)

// pipelineBundle owns the resources a pipeline holds open.
type pipelineBundle struct {
	pipeline   *conversion.Pipeline
	workspaces *workspace.Manager
	publisher  events.Publisher
}

func (b *pipelineBundle) Close() {
	if b.publisher != nil {
		b.publisher.Close()
	}
}

// buildPipeline wires the production stage implementations from cfg. The
// journal may be nil.
func buildPipeline(cfg *config.Config, logger *slog.Logger, store *journal.Store) (*pipelineBundle, error) {
	if err := cfg.RequireLLMKey(); err != nil {
		return nil, err
	}

	publisher, err := events.New(cfg.Events.NATSURL, cfg.Events.Subject)
	if err != nil {
		logging.WarnWithContext(logger, "event publishing disabled", "events_unavailable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check events.nats_url"),
			logging.String(logging.FieldImpact, "no NATS events for finished jobs"),
		)
		publisher = events.Noop{}
	}

	client := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Referer:        cfg.LLM.Referer,
		Title:          cfg.LLM.Title,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	},
		llm.WithRetryMaxAttempts(cfg.LLM.RetryAttempts),
		llm.WithLogger(logging.NewComponentLogger(logger, "llm")),
	)

	workspaces := workspace.NewManager(cfg.Paths.WorkspaceDir, logger)
	deps := conversion.Dependencies{
		Workspaces: workspaces,
		Retriever:  ytdlp.NewRetriever(cfg.YTDLP.Binary),
		Transcoder: ffmpeg.NewTranscoder(cfg.FFmpeg.Binary),
		Transcriber: whisperx.NewService(whisperx.Config{
			Binary:      whisperx.UVXCommand,
			CUDAEnabled: cfg.Transcription.CUDAEnabled,
			Language:    cfg.Transcription.Language,
			VADMethod:   cfg.Transcription.VADMethod,
			HFToken:     cfg.Transcription.HFToken,
		}),
		Generator: quiz.NewGenerator(client),
		Publisher: publisher,
		Notifier:  notifications.NewService(cfg),
		Logger:    logger,
		Timeouts: conversion.Timeouts{
			Job:        cfg.JobTimeout(),
			Fetch:      cfg.FetchTimeout(),
			Transcode:  cfg.TranscodeTimeout(),
			Transcribe: cfg.TranscriptionTimeout(),
		},
	}
	if store != nil {
		deps.Recorder = store
	}

	pipeline, err := conversion.New(deps)
	if err != nil {
		publisher.Close()
		return nil, fmt.Errorf("build pipeline: %w", err)
	}
	return &pipelineBundle{pipeline: pipeline, workspaces: workspaces, publisher: publisher}, nil
}
