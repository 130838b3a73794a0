package template

import "fmt"

// Error reports a template fragment that could not be expanded.
type Error struct {
	Fragment string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("failed to expand %q: %v", e.Fragment, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
