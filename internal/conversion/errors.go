package conversion

import (
	"context"
	"errors"
	"fmt"

	"clipquiz/internal/services"
)

// Failure kinds. Every error returned by Run matches exactly one of these
// through errors.Is.
var (
	ErrInvalidRequest          = errors.New("invalid conversion request")
	ErrWorkspace               = errors.New("workspace unavailable")
	ErrFetch                   = errors.New("audio fetch failed")
	ErrTranscode               = errors.New("audio transcode failed")
	ErrTranscription           = errors.New("transcription failed")
	ErrGenerationService       = errors.New("generation service failed")
	ErrInvalidGeneratedContent = errors.New("invalid generated content")
	ErrCleanup                 = errors.New("workspace cleanup failed")
)

var kindNames = []struct {
	kind error
	name string
}{
	{ErrInvalidRequest, "invalid_request"},
	{ErrWorkspace, "workspace"},
	{ErrFetch, "fetch"},
	{ErrTranscode, "transcode"},
	{ErrTranscription, "transcription"},
	{ErrGenerationService, "generation_service"},
	{ErrInvalidGeneratedContent, "invalid_generated_content"},
	{ErrCleanup, "cleanup"},
}

// Error describes a failed job.
type Error struct {
	Kind  error
	Stage State
	JobID string
	Err   error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v (stage %s)", e.Kind, e.Stage)
	}
	return fmt.Sprintf("%v (stage %s): %v", e.Kind, e.Stage, e.Err)
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// KindName returns the stable snake_case name of err's kind, or "" when err
// is not a conversion error.
func KindName(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kindNames {
		if errors.Is(err, k.kind) {
			return k.name
		}
	}
	return ""
}

// Category groups failures by what a caller should do about them.
type Category string

const (
	CategoryNone           Category = ""
	CategoryBadInput       Category = "bad_input"
	CategoryUnusableOutput Category = "unusable_output"
	CategoryTransient      Category = "transient"
	CategoryInternal       Category = "internal"
)

// Classify maps a Run error onto a Category. Invalid generated content wins
// over everything else; timeouts and generation service failures are
// transient; unusable sources and requests are bad input; the rest is
// internal.
func Classify(err error) Category {
	switch {
	case err == nil:
		return CategoryNone
	case errors.Is(err, ErrInvalidGeneratedContent):
		return CategoryUnusableOutput
	case IsTimeout(err), errors.Is(err, ErrGenerationService), errors.Is(err, services.ErrTransient):
		return CategoryTransient
	case errors.Is(err, ErrFetch), errors.Is(err, ErrInvalidRequest):
		return CategoryBadInput
	default:
		return CategoryInternal
	}
}

// IsTimeout reports whether err was caused by a stage or job deadline.
func IsTimeout(err error) bool {
	return errors.Is(err, services.ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}

// Message returns err's description without the kind and marker prefixes.
func Message(err error) string {
	var convErr *Error
	if errors.As(err, &convErr) && convErr.Err != nil {
		return services.Details(convErr.Err).Message
	}
	return services.Details(err).Message
}
