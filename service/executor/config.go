package executor

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	DefaultChunkSize   = 32 * 1024
	DefaultMaxCapture  = 4 << 20
	DefaultAbortGrace  = 5 * time.Second
	DefaultOutputGrace = time.Second
)

// Config defines executor behaviour.
type Config struct {
	// WorkDir is the parent of every job working directory.
	WorkDir string `json:"workDir,omitempty" yaml:"workDir,omitempty"`
	// AbortGrace is how long a process may run after SIGTERM before it is killed.
	AbortGrace time.Duration `json:"abortGrace,omitempty" yaml:"abortGrace,omitempty"`
	// OutputGrace is how long output is still read after the process exited.
	// Descendants keeping stdout or stderr open past it are terminated. Zero uses DefaultOutputGrace.
	OutputGrace time.Duration `json:"outputGrace,omitempty" yaml:"outputGrace,omitempty"`
	// Timeout applies when the spec does not declare its own; zero disables it.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	// ChunkSize is the read size used when draining process output.
	ChunkSize int `json:"chunkSize,omitempty" yaml:"chunkSize,omitempty"`
	// MaxCapture caps the stdout and stderr kept in memory for the job result.
	MaxCapture int64 `json:"maxCapture,omitempty" yaml:"maxCapture,omitempty"`
	// DeleteWorkDir removes the working directory once the job settled.
	DeleteWorkDir bool `json:"deleteWorkDir,omitempty" yaml:"deleteWorkDir,omitempty"`
}

// DefaultConfig returns the default executor configuration.
func DefaultConfig() *Config {
	return &Config{
		WorkDir:     filepath.Join(os.TempDir(), "jobrunner"),
		AbortGrace:  DefaultAbortGrace,
		OutputGrace: DefaultOutputGrace,
		ChunkSize:   DefaultChunkSize,
		MaxCapture:  DefaultMaxCapture,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.WorkDir == "" {
		return fmt.Errorf("executor: workDir was empty")
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("executor: chunkSize must be positive, had %d", c.ChunkSize)
	}
	if c.AbortGrace < 0 || c.OutputGrace < 0 || c.Timeout < 0 || c.MaxCapture < 0 {
		return fmt.Errorf("executor: negative durations or limits are not allowed")
	}
	return nil
}
