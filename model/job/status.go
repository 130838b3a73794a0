package job

// Status is a job lifecycle state.
type Status string

const (
	StatusSubmitted  Status = "submitted"
	StatusRunning    Status = "running"
	StatusFinished   Status = "finished"
	StatusFatalError Status = "fatal-error"
	StatusAborted    Status = "aborted"
)

var transitions = map[Status][]Status{
	"":               {StatusSubmitted},
	StatusSubmitted:  {StatusRunning, StatusAborted, StatusFatalError},
	StatusRunning:    {StatusFinished, StatusFatalError, StatusAborted},
	StatusFinished:   nil,
	StatusFatalError: nil,
	StatusAborted:    nil,
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusFinished, StatusFatalError, StatusAborted:
		return true
	}
	return false
}

// CanTransitionTo reports whether next may follow s.
func (s Status) CanTransitionTo(next Status) bool {
	for _, candidate := range transitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}
