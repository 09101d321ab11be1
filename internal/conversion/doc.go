// Package conversion runs the video-to-quiz pipeline: fetch audio, transcode
// it to mono 16 kHz WAV, transcribe it, generate a quiz from the transcript,
// then parse and validate the generated document.
//
// Stages run strictly in order and are never retried here; the only retry in
// the system lives in the generation client. Every transient file a job
// writes is keyed by the job ID inside the owner's workspace, and the
// workspace is released exactly once when Run returns, whatever the outcome.
// A cleanup failure is logged and recorded but never replaces the primary
// result.
//
// Failures are *Error values carrying one of the kind sentinels (ErrFetch,
// ErrTranscode, ...) plus a services marker; Classify maps them onto the
// coarse categories adapters use to pick a response.
package conversion
