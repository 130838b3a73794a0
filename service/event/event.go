package event

import "time"

// Type identifies what an event carries.
type Type string

const (
	TypeStatus Type = "status"
	TypeStdout Type = "stdout"
	TypeStderr Type = "stderr"
)

type Context struct {
	JobID     string `json:"jobID"`
	EventType Type   `json:"eventType"`
}

type Event[T any] struct {
	Context   *Context               `json:"context"`
	CreatedAt time.Time              `json:"createdAt"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Data      T                      `json:"data"`
}

func NewEvent[T any](context *Context, data T) *Event[T] {
	return &Event[T]{
		Context:   context,
		CreatedAt: time.Now(),
		Data:      data,
	}
}
