package conversion

import (
	"fmt"
	"time"

	"clipquiz/internal/quiz"
)

// Job is the state of one conversion run. It is never reused.
type Job struct {
	ID        string
	SourceURL string
	OwnerKey  string

	WorkspaceDir        string
	DownloadedAudioPath string
	NormalizedAudioPath string

	Transcript string
	RawOutput  string
	Document   *quiz.Document

	State   State
	History []State

	Err        error
	CleanupErr error

	StartedAt  time.Time
	FinishedAt time.Time
}

func newJob(id, sourceURL, owner string, now time.Time) *Job {
	return &Job{
		ID:        id,
		SourceURL: sourceURL,
		OwnerKey:  owner,
		State:     StatePending,
		History:   []State{StatePending},
		StartedAt: now,
	}
}

func (j *Job) advance(to State) error {
	if !CanTransition(j.State, to) {
		return fmt.Errorf("job %s: illegal transition %s -> %s", j.ID, j.State, to)
	}
	j.State = to
	j.History = append(j.History, to)
	return nil
}

// Duration returns how long the job ran.
func (j *Job) Duration() time.Duration {
	if j.FinishedAt.IsZero() {
		return 0
	}
	return j.FinishedAt.Sub(j.StartedAt)
}

// Succeeded reports whether the job produced a validated document.
func (j *Job) Succeeded() bool {
	return j.Err == nil && j.Document != nil
}
