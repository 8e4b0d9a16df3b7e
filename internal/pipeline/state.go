package pipeline

// State is the orchestrator's position in the editing session.
type State int

const (
	StateIdle State = iota
	StateCapturing
	StateReady
	StateCropping
	StateRecomputing
	StateDiscarded
)

var stateNames = map[State]string{
	StateIdle:        "idle",
	StateCapturing:   "capturing",
	StateReady:       "editing/ready",
	StateCropping:    "editing/cropping",
	StateRecomputing: "editing/recomputing",
	StateDiscarded:   "discarded",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Editing reports whether an original frame is loaded and editable.
func (s State) Editing() bool {
	return s == StateReady || s == StateCropping || s == StateRecomputing
}
