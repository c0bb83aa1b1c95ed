package app

// Phase is the frame loop's lifecycle state.
type Phase int32

const (
	Init Phase = iota
	Running
	Draining
	Terminated
)

func (p Phase) String() string {
	switch p {
	case Init:
		return "INIT"
	case Running:
		return "RUNNING"
	case Draining:
		return "DRAINING"
	case Terminated:
		return "TERMINATED"
	default:
		return "UNKNOWN"
	}
}

// Reason records why the loop stopped.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonConnectFailed
	ReasonQuit
	ReasonCancelled
	ReasonSourceLost
	ReasonPanic
)

func (r Reason) String() string {
	switch r {
	case ReasonConnectFailed:
		return "connect failed"
	case ReasonQuit:
		return "quit"
	case ReasonCancelled:
		return "cancelled"
	case ReasonSourceLost:
		return "source lost"
	case ReasonPanic:
		return "panic"
	default:
		return "none"
	}
}

// Result summarizes a finished run.
type Result struct {
	Frames int
	Reason Reason
}
