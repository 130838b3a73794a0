package spec

import (
	"fmt"
	"time"

	"github.com/viant/jobrunner/model/input"
)

// Spec is a published, parameterized command template.
type Spec struct {
	ID              string            `json:"id" yaml:"id"`
	Name            string            `json:"name" yaml:"name"`
	Description     string            `json:"description,omitempty" yaml:"description,omitempty"`
	ExpectedInputs  []*input.Expected `json:"expectedInputs,omitempty" yaml:"expectedInputs,omitempty"`
	Execution       *Execution        `json:"execution" yaml:"execution"`
	ExpectedOutputs []*Output         `json:"expectedOutputs,omitempty" yaml:"expectedOutputs,omitempty"`
}

// Execution describes how a job is invoked. Arguments and Stdin are templates.
type Execution struct {
	Application  string        `json:"application" yaml:"application"`
	Arguments    []string      `json:"arguments,omitempty" yaml:"arguments,omitempty"`
	Stdin        string        `json:"stdin,omitempty" yaml:"stdin,omitempty"`
	Dependencies []*Dependency `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Timeout      Duration      `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// Dependency is copied into the working directory before spawn.
type Dependency struct {
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
}

// Output declares a file the job is expected to produce.
type Output struct {
	ID          string            `json:"id" yaml:"id"`
	Path        string            `json:"path" yaml:"path"`
	MimeType    string            `json:"mimeType,omitempty" yaml:"mimeType,omitempty"`
	Name        string            `json:"name,omitempty" yaml:"name,omitempty"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Summary is the listing form of a spec.
type Summary struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Summary returns the listing form of s.
func (s *Spec) Summary() *Summary {
	return &Summary{ID: s.ID, Name: s.Name, Description: s.Description}
}

// Input returns the expected input with the given id or nil.
func (s *Spec) Input(id string) *input.Expected {
	for _, candidate := range s.ExpectedInputs {
		if candidate.ID == id {
			return candidate
		}
	}
	return nil
}

// Init fills in derived fields.
func (s *Spec) Init() {
	if s.Name == "" {
		s.Name = s.ID
	}
	for _, item := range s.ExpectedInputs {
		item.Init()
	}
	for _, output := range s.ExpectedOutputs {
		if output.Name == "" {
			output.Name = output.ID
		}
	}
}

// Validate checks spec consistency.
func (s *Spec) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("spec id was empty")
	}
	if s.Execution == nil || s.Execution.Application == "" {
		return fmt.Errorf("spec %q: execution.application was empty", s.ID)
	}
	seen := map[string]bool{}
	for _, item := range s.ExpectedInputs {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("spec %q: %w", s.ID, err)
		}
		if seen[item.ID] {
			return fmt.Errorf("spec %q: duplicate input %q", s.ID, item.ID)
		}
		seen[item.ID] = true
	}
	outputs := map[string]bool{}
	for _, output := range s.ExpectedOutputs {
		if output.ID == "" || output.Path == "" {
			return fmt.Errorf("spec %q: output requires id and path", s.ID)
		}
		if outputs[output.ID] {
			return fmt.Errorf("spec %q: duplicate output %q", s.ID, output.ID)
		}
		outputs[output.ID] = true
	}
	for _, dependency := range s.Execution.Dependencies {
		if dependency.Source == "" || dependency.Target == "" {
			return fmt.Errorf("spec %q: dependency requires source and target", s.ID)
		}
	}
	if s.Execution.Timeout < 0 {
		return fmt.Errorf("spec %q: negative timeout", s.ID)
	}
	return nil
}

// ExampleRequest returns input values that pass validation for s.
func (s *Spec) ExampleRequest() map[string]interface{} {
	return input.Examples(s.ExpectedInputs)
}

// Duration is a time.Duration that reads "30s" style strings from JSON and YAML.
type Duration time.Duration
