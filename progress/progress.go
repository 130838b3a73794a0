package progress

import (
	"sync"
	"time"

	"github.com/viant/jobrunner/model/job"
)

// Delta represents an incremental counter change. Fields are signed.
type Delta struct {
	Submitted int
	Pending   int
	Running   int
	Finished  int
	Failed    int
	Aborted   int
}

// Progress holds aggregated job counters.
type Progress struct {
	StartedAt time.Time `json:"startedAt"`
	Submitted int       `json:"submitted"`
	Pending   int       `json:"pending"`
	Running   int       `json:"running"`
	Finished  int       `json:"finished"`
	Failed    int       `json:"failed"`
	Aborted   int       `json:"aborted"`
}

// Settled returns the number of jobs in a terminal status.
func (p Progress) Settled() int {
	return p.Finished + p.Failed + p.Aborted
}

// Tracker is safe for concurrent use.
type Tracker struct {
	mux      sync.Mutex
	current  Progress
	onChange func(Progress)
}

// Update applies d. The change callback runs outside the lock with a copy of the counters.
func (t *Tracker) Update(d Delta) {
	if t == nil {
		return
	}
	t.mux.Lock()
	t.current.Submitted += d.Submitted
	t.current.Pending += d.Pending
	t.current.Running += d.Running
	t.current.Finished += d.Finished
	t.current.Failed += d.Failed
	t.current.Aborted += d.Aborted
	snapshot := t.current
	cb := t.onChange
	t.mux.Unlock()
	if cb != nil {
		cb(snapshot)
	}
}

// Transition applies the delta of a job moving from previous to next;
// previous is empty for a newly submitted job.
func (t *Tracker) Transition(previous, next job.Status) {
	t.Update(TransitionDelta(previous, next))
}

// Snapshot returns a copy of the counters.
func (t *Tracker) Snapshot() Progress {
	if t == nil {
		return Progress{}
	}
	t.mux.Lock()
	defer t.mux.Unlock()
	return t.current
}

// OnChange registers a callback invoked after every update; nil disables it.
func (t *Tracker) OnChange(cb func(Progress)) {
	if t == nil {
		return
	}
	t.mux.Lock()
	t.onChange = cb
	t.mux.Unlock()
}

// TransitionDelta maps a status change to counter changes.
func TransitionDelta(previous, next job.Status) Delta {
	var d Delta
	switch previous {
	case job.StatusSubmitted:
		d.Pending--
	case job.StatusRunning:
		d.Running--
	case "":
	default:
		return Delta{}
	}
	switch next {
	case job.StatusSubmitted:
		d.Submitted++
		d.Pending++
	case job.StatusRunning:
		d.Running++
	case job.StatusFinished:
		d.Finished++
	case job.StatusFatalError:
		d.Failed++
	case job.StatusAborted:
		d.Aborted++
	}
	return d
}

// New creates a tracker started now.
func New(onChange func(Progress)) *Tracker {
	return &Tracker{current: Progress{StartedAt: time.Now()}, onChange: onChange}
}
