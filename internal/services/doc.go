// Package services defines shared utilities consumed by the conversion
// pipeline and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, owner keys, stage names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so failures from yt-dlp,
//     ffmpeg, WhisperX, and the LLM share one classification vocabulary.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
