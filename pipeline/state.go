package pipeline

// PageRenderState is where a page processor is in its lifecycle.
type PageRenderState int

const (
	StateInitial PageRenderState = iota
	StateRunning
	// StatePaused is reserved for suspendable rendering. Nothing moves a
	// processor into it.
	StatePaused
	StateFinished
)

// String returns the state name.
func (s PageRenderState) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// begin moves Initial to Running.
func (s *PageRenderState) begin() bool {
	if *s != StateInitial {
		return false
	}
	*s = StateRunning
	return true
}

// finish moves Running to Finished.
func (s *PageRenderState) finish() bool {
	if *s != StateRunning {
		return false
	}
	*s = StateFinished
	return true
}

// ControllerState is where a document controller is in its lifecycle.
type ControllerState int

const (
	ControllerIdle ControllerState = iota
	ControllerLoading
	ControllerEnumerating
	ControllerProcessingPages
	ControllerComplete
)

// String returns the state name.
func (s ControllerState) String() string {
	switch s {
	case ControllerIdle:
		return "idle"
	case ControllerLoading:
		return "loading"
	case ControllerEnumerating:
		return "enumerating"
	case ControllerProcessingPages:
		return "processing_pages"
	case ControllerComplete:
		return "complete"
	default:
		return "unknown"
	}
}
