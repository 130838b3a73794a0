package input

import "fmt"

// Expected declares one typed input slot of a job spec.
type Expected struct {
	ID          string      `json:"id" yaml:"id"`
	Name        string      `json:"name,omitempty" yaml:"name,omitempty"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Type        Kind        `json:"type" yaml:"type"`
	Default     interface{} `json:"default,omitempty" yaml:"default,omitempty"`
	Schema      *Schema     `json:"schema,omitempty" yaml:"schema,omitempty"`
}

// Init fills in derived fields.
func (e *Expected) Init() {
	if e.Name == "" {
		e.Name = e.ID
	}
	if e.Type == "" {
		e.Type = KindString
	}
}

// Validate checks the declaration itself (not a submitted value).
func (e *Expected) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("input id was empty")
	}
	if !e.Type.Valid() {
		return fmt.Errorf("input %q: unsupported type %q", e.ID, e.Type)
	}
	if e.Schema != nil && e.Type != KindSQL {
		return fmt.Errorf("input %q: schema is only supported for %s inputs", e.ID, KindSQL)
	}
	if e.Default != nil {
		if _, err := parse(e, e.Default); err != nil {
			return fmt.Errorf("input %q: invalid default: %w", e.ID, err)
		}
	}
	return nil
}
