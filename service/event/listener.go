package event

import "github.com/viant/jobrunner/model/job"

// Listeners groups optional job observers. Nil slots are skipped.
type Listeners struct {
	OnStatusChange func(jobID string, timestamp job.Timestamp)
	OnStdout       func(jobID string, chunk []byte)
	OnStderr       func(jobID string, chunk []byte)
}

// IsEmpty reports whether no slot is set.
func (l *Listeners) IsEmpty() bool {
	return l == nil || (l.OnStatusChange == nil && l.OnStdout == nil && l.OnStderr == nil)
}

func (l *Listeners) handle(e *Event[any]) {
	jobID := e.Context.JobID
	switch e.Context.EventType {
	case TypeStatus:
		if l.OnStatusChange != nil {
			l.OnStatusChange(jobID, e.Data.(job.Timestamp))
		}
	case TypeStdout:
		if l.OnStdout != nil {
			l.OnStdout(jobID, e.Data.([]byte))
		}
	case TypeStderr:
		if l.OnStderr != nil {
			l.OnStderr(jobID, e.Data.([]byte))
		}
	}
}
