package input

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDecode marks a payload that could not be decoded while constructing a value.
var ErrDecode = errors.New("input: undecodable payload")

// ValidationError describes one rejected input.
type ValidationError struct {
	Input   string `json:"input"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("input %q: %s", e.Input, e.Message)
}

// ValidationErrors aggregates all problems found in a request.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	messages := make([]string, len(e))
	for i, item := range e {
		messages[i] = item.Error()
	}
	return strings.Join(messages, "; ")
}

// Inputs returns the ids of the rejected inputs, in report order.
func (e ValidationErrors) Inputs() []string {
	ret := make([]string, 0, len(e))
	for _, item := range e {
		ret = append(ret, item.Input)
	}
	return ret
}

// DecodeError is returned when a value cannot be constructed at all, e.g. a
// file payload that is not valid base64. It aborts validation.
type DecodeError struct {
	Input string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("input %q: %v: %v", e.Input, ErrDecode, e.Err)
}

func (e *DecodeError) Unwrap() []error {
	return []error{ErrDecode, e.Err}
}

func invalid(id, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Input: id, Message: fmt.Sprintf(format, args...)}
}
