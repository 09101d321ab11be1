// Package ffmpeg converts downloaded audio into the mono 16 kHz PCM WAV that
// the transcriber expects.
package ffmpeg
