package scheduler

import (
	"fmt"
	"runtime"

	"github.com/viant/jobrunner/service/event"
)

// Config defines admission control.
type Config struct {
	// MaxRunning is the number of jobs allowed to run at the same time.
	MaxRunning int `json:"maxRunning,omitempty" yaml:"maxRunning,omitempty"`
	// DeleteWorkDir disposes a job working directory after it settled.
	DeleteWorkDir bool `json:"deleteWorkDir,omitempty" yaml:"deleteWorkDir,omitempty"`
	// MaxBufferedBytes caps undelivered output per observer.
	MaxBufferedBytes int64 `json:"maxBufferedBytes,omitempty" yaml:"maxBufferedBytes,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		MaxRunning:       runtime.NumCPU(),
		MaxBufferedBytes: event.DefaultMaxBufferedBytes,
	}
}

func (c *Config) Validate() error {
	if c.MaxRunning <= 0 {
		return fmt.Errorf("scheduler: maxRunning must be positive, had %d", c.MaxRunning)
	}
	if c.MaxBufferedBytes < 0 {
		return fmt.Errorf("scheduler: maxBufferedBytes must not be negative")
	}
	return nil
}
