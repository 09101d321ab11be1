// Package whisperx wraps the WhisperX speech-to-text CLI, launched through
// uvx, and turns its JSON output into plain transcript text.
//
// The model is fixed to large-v3-turbo. Output files never leave a private
// temporary directory, so callers only own the WAV they pass in.
package whisperx
