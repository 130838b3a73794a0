package jobrunner

import (
	"context"
	"errors"
	"fmt"

	"github.com/viant/jobrunner/policy"
	"github.com/viant/jobrunner/service/event"
	"github.com/viant/jobrunner/service/executor"
	"github.com/viant/jobrunner/service/identity"
	"github.com/viant/jobrunner/service/meta"
	"github.com/viant/jobrunner/service/scheduler"
)

// Persistence kinds.
const (
	PersistenceMemory = "memory"
	PersistenceFs     = "fs"
	PersistenceSQLite = "sqlite"
)

// Config is a serialisable representation of the runner configuration. The
// value returned by DefaultConfig is usable as is; LoadConfig overlays a YAML
// document on top of it.
type Config struct {
	Scheduler   scheduler.Config  `json:"scheduler" yaml:"scheduler"`
	Executor    executor.Config   `json:"executor" yaml:"executor"`
	Events      event.Config      `json:"events" yaml:"events"`
	Specs       SpecsConfig       `json:"specs" yaml:"specs"`
	Persistence PersistenceConfig `json:"persistence" yaml:"persistence"`
	Identity    identity.Config   `json:"identity" yaml:"identity"`
	Policy      *policy.Policy    `json:"policy,omitempty" yaml:"policy,omitempty"`
	Tracing     TracingConfig     `json:"tracing" yaml:"tracing"`
	Log         LogConfig         `json:"log" yaml:"log"`
}

// SpecsConfig locates spec definitions; each spec lives in <url>/<id>/spec.yaml.
type SpecsConfig struct {
	URL string `json:"url,omitempty" yaml:"url,omitempty"`
}

// PersistenceConfig selects where job records are stored.
type PersistenceConfig struct {
	Kind string `json:"kind,omitempty" yaml:"kind,omitempty"`
	// URL is a base directory for fs and a DSN for sqlite.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`
}

type TracingConfig struct {
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	// Output is a trace file; stdout is used when empty.
	Output string `json:"output,omitempty" yaml:"output,omitempty"`
}

type LogConfig struct {
	Verbose bool `json:"verbose,omitempty" yaml:"verbose,omitempty"`
}

// DefaultConfig returns a Config populated with package defaults.
func DefaultConfig() *Config {
	return &Config{
		Scheduler:   *scheduler.DefaultConfig(),
		Executor:    *executor.DefaultConfig(),
		Events:      event.DefaultConfig(),
		Persistence: PersistenceConfig{Kind: PersistenceMemory},
		Identity:    identity.DefaultConfig(),
	}
}

// Validate returns aggregated error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	var errs []error
	if err := c.Scheduler.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Executor.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Events.MaxBufferedBytes < 0 {
		errs = append(errs, fmt.Errorf("events: maxBufferedBytes must not be negative"))
	}
	switch c.Persistence.Kind {
	case "", PersistenceMemory:
	case PersistenceFs, PersistenceSQLite:
		if c.Persistence.URL == "" {
			errs = append(errs, fmt.Errorf("persistence: %s requires url", c.Persistence.Kind))
		}
	default:
		errs = append(errs, fmt.Errorf("persistence: unsupported kind %q", c.Persistence.Kind))
	}
	if err := c.Identity.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Policy.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// LoadConfig reads a YAML or JSON config document from URL over the defaults.
// ${env.NAME} references are expanded before decoding.
func LoadConfig(ctx context.Context, URL string) (*Config, error) {
	ret := DefaultConfig()
	if err := meta.New(nil, "").Load(ctx, URL, ret); err != nil {
		return nil, err
	}
	if err := ret.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", URL, err)
	}
	return ret, nil
}
