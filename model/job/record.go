package job

import "errors"

// ErrInvalidTransition is returned when a status may not follow the current one.
var ErrInvalidTransition = errors.New("job: invalid status transition")

// Record is the durable form of a job.
type Record struct {
	ID         string                 `json:"id"`
	Owner      string                 `json:"owner,omitempty"`
	Name       string                 `json:"name,omitempty"`
	SpecID     string                 `json:"spec"`
	Inputs     map[string]interface{} `json:"inputs,omitempty"`
	Timestamps []Timestamp            `json:"timestamps"`
	WorkDir    string                 `json:"workDir,omitempty"`
	Argv       []string               `json:"argv,omitempty"`
	ExitCode   *int                   `json:"exitCode,omitempty"`
	Outputs    []*Output              `json:"outputs,omitempty"`
	Error      string                 `json:"error,omitempty"`
}

// Status returns the latest recorded status.
func (r *Record) Status() Status {
	if n := len(r.Timestamps); n > 0 {
		return r.Timestamps[n-1].Status
	}
	return ""
}

// Finalized is the outcome a job's promise resolves with.
type Finalized struct {
	*Record
	// Stdout and Stderr hold captured output, up to the configured capture limit.
	Stdout []byte `json:"-"`
	Stderr []byte `json:"-"`
	// StdoutSize and StderrSize count all bytes written by the process.
	StdoutSize int64 `json:"stdoutSize"`
	StderrSize int64 `json:"stderrSize"`
	Err        error `json:"-"`
}
