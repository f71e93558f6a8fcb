package primitives

// RunState is the lifecycle phase of a service instance.
type RunState int

const (
	Initial RunState = iota
	Started
	Finished
	Stopped
	Disposed
)

func (r RunState) String() string {
	switch r {
	case Initial:
		return "initial"
	case Started:
		return "started"
	case Finished:
		return "finished"
	case Stopped:
		return "stopped"
	case Disposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// CanStop reports whether Stop has any effect in this phase.
func (r RunState) CanStop() bool {
	return r == Started || r == Finished
}
