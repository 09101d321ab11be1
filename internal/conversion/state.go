package conversion

// State is a job's position in the pipeline.
type State string

const (
	StatePending      State = "pending"
	StateFetching     State = "fetching"
	StateTranscoding  State = "transcoding"
	StateTranscribing State = "transcribing"
	StateGenerating   State = "generating"
	StateNormalizing  State = "normalizing"
	StateDone         State = "done"
	StateFailed       State = "failed"
	StateCleanedUp    State = "cleaned_up"
)

var forward = map[State]State{
	StatePending:      StateFetching,
	StateFetching:     StateTranscoding,
	StateTranscoding:  StateTranscribing,
	StateTranscribing: StateGenerating,
	StateGenerating:   StateNormalizing,
	StateNormalizing:  StateDone,
}

// IsTerminal reports whether no further pipeline work happens in s.
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateFailed || s == StateCleanedUp
}

// CanTransition reports whether a job may move from one state to another.
// Stages only advance; any non-terminal state may fail; done and failed jobs
// move to cleaned_up once their workspace is released.
func CanTransition(from, to State) bool {
	switch to {
	case StateFailed:
		return !from.IsTerminal()
	case StateCleanedUp:
		return from == StateDone || from == StateFailed
	}
	next, ok := forward[from]
	return ok && next == to
}
