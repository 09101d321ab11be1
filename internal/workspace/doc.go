// Package workspace manages the per-owner scratch directories that hold a
// conversion job's transient audio files.
//
// Acquire serializes jobs for the same owner with an in-process lock plus a
// file lock under <root>/.locks, so separate clipquiz processes sharing a
// workspace root also take turns. Every path handed out is prefixed with the
// job ID. Release deletes the tracked artifacts, removes the owner directory
// once it is empty, and drops both locks.
package workspace
