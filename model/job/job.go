package job

import (
	"fmt"
	"sync"
	"time"

	"github.com/viant/jobrunner/internal/clock"
	"github.com/viant/jobrunner/model/input"
	"github.com/viant/jobrunner/model/spec"
)

// Timestamp records entry into a status.
type Timestamp struct {
	Status  Status    `json:"status"`
	Time    time.Time `json:"time"`
	Message string    `json:"message,omitempty"`
}

// Request is a raw submission.
type Request struct {
	Spec   string                 `json:"spec" yaml:"spec"`
	Name   string                 `json:"name,omitempty" yaml:"name,omitempty"`
	Inputs map[string]interface{} `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Owner  string                 `json:"owner,omitempty" yaml:"owner,omitempty"`
}

// ValidRequest is a request whose inputs passed validation. Only valid requests are scheduled.
type ValidRequest struct {
	Spec   *spec.Spec
	Name   string
	Inputs input.Values
	Owner  string
}

// Output is a declared output resolved after the process exit.
type Output struct {
	ID          string            `json:"id"`
	Name        string            `json:"name,omitempty"`
	Path        string            `json:"path"`
	Size        int64             `json:"size"`
	MimeType    string            `json:"mimeType,omitempty"`
	Description string            `json:"description,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Job is a live admitted job. Its timestamps are append only.
type Job struct {
	ID      string
	Owner   string
	Name    string
	SpecID  string
	Request *ValidRequest

	mux        sync.RWMutex
	timestamps []Timestamp
	workDir    string
	argv       []string
	exitCode   *int
	outputs    []*Output
	err        error
}

// New creates a job from a validated request.
func New(id string, request *ValidRequest) *Job {
	name := request.Name
	if name == "" {
		name = request.Spec.Name
	}
	return &Job{
		ID:      id,
		Owner:   request.Owner,
		Name:    name,
		SpecID:  request.Spec.ID,
		Request: request,
	}
}

// Append records a status transition; the time is strictly after the previous one.
func (j *Job) Append(status Status, message string) (Timestamp, error) {
	j.mux.Lock()
	defer j.mux.Unlock()
	var current Status
	var prev time.Time
	if n := len(j.timestamps); n > 0 {
		current = j.timestamps[n-1].Status
		prev = j.timestamps[n-1].Time
	}
	if !current.CanTransitionTo(status) {
		return Timestamp{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, status)
	}
	ts := Timestamp{Status: status, Time: clock.After(prev), Message: message}
	j.timestamps = append(j.timestamps, ts)
	return ts, nil
}

// Status returns the latest status.
func (j *Job) Status() Status {
	j.mux.RLock()
	defer j.mux.RUnlock()
	if n := len(j.timestamps); n > 0 {
		return j.timestamps[n-1].Status
	}
	return ""
}

// Timestamps returns a copy of the timestamp history.
func (j *Job) Timestamps() []Timestamp {
	j.mux.RLock()
	defer j.mux.RUnlock()
	return append([]Timestamp(nil), j.timestamps...)
}

func (j *Job) SetWorkDir(dir string) {
	j.mux.Lock()
	j.workDir = dir
	j.mux.Unlock()
}

func (j *Job) WorkDir() string {
	j.mux.RLock()
	defer j.mux.RUnlock()
	return j.workDir
}

func (j *Job) SetArgv(argv []string) {
	j.mux.Lock()
	j.argv = append([]string(nil), argv...)
	j.mux.Unlock()
}

// SetExit records the process exit code.
func (j *Job) SetExit(code int) {
	j.mux.Lock()
	j.exitCode = &code
	j.mux.Unlock()
}

func (j *Job) SetOutputs(outputs []*Output) {
	j.mux.Lock()
	j.outputs = outputs
	j.mux.Unlock()
}

// SetError records the cause of a fatal error.
func (j *Job) SetError(err error) {
	j.mux.Lock()
	j.err = err
	j.mux.Unlock()
}

func (j *Job) Err() error {
	j.mux.RLock()
	defer j.mux.RUnlock()
	return j.err
}

// Record returns a serialisable snapshot.
func (j *Job) Record() *Record {
	j.mux.RLock()
	defer j.mux.RUnlock()
	ret := &Record{
		ID:         j.ID,
		Owner:      j.Owner,
		Name:       j.Name,
		SpecID:     j.SpecID,
		Timestamps: append([]Timestamp(nil), j.timestamps...),
		WorkDir:    j.workDir,
		Argv:       append([]string(nil), j.argv...),
		Outputs:    append([]*Output(nil), j.outputs...),
	}
	if j.Request != nil {
		ret.Inputs = j.Request.Inputs.Interface()
	}
	if j.exitCode != nil {
		code := *j.exitCode
		ret.ExitCode = &code
	}
	if j.err != nil {
		ret.Error = j.err.Error()
	}
	return ret
}
