package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/viant/jobrunner/service/messaging"
)

// Config for memory queue implementation
type Config struct {
	// MaxBytes caps the size of unacknowledged messages; zero means unbounded.
	MaxBytes int64
}

// DefaultConfig returns an unbounded configuration.
func DefaultConfig() Config {
	return Config{}
}

// Message implements messaging.Message for the in-memory queue
type Message[T any] struct {
	id        string
	payload   T
	size      int64
	queue     *Queue[T]
	mu        sync.Mutex
	processed bool
	err       error
}

// ID returns the message identifier
func (m *Message[T]) ID() string {
	return m.id
}

// T returns the message payload
func (m *Message[T]) T() *T {
	return &m.payload
}

// Ack acknowledges the message as processed successfully
func (m *Message[T]) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return fmt.Errorf("message already processed")
	}
	m.processed = true
	m.queue.release(m.size)
	return nil
}

// Nack settles a message whose processing failed. The message is not
// redelivered; its bytes are released and err is kept for Err.
func (m *Message[T]) Nack(err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return fmt.Errorf("message already processed")
	}
	m.processed = true
	m.err = err
	m.queue.release(m.size)
	m.queue.mu.Lock()
	m.queue.nacked++
	m.queue.mu.Unlock()
	return nil
}

// Err returns the error the message was nacked with.
func (m *Message[T]) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Queue implements an unbounded in-memory messaging.Queue whose Publish never blocks.
type Queue[T any] struct {
	config   Config
	sizeOf   func(*T) int64
	mu       sync.Mutex
	messages []*Message[T]
	nacked   int
	used     int64
	closed   bool
	notify   chan struct{}
}

// NewQueue creates a new in-memory queue; sizeOf may be nil when MaxBytes is not used.
func NewQueue[T any](config Config, sizeOf func(*T) int64) *Queue[T] {
	return &Queue[T]{
		config: config,
		sizeOf: sizeOf,
		notify: make(chan struct{}, 1),
	}
}

// Publish adds a new item to the queue. Messages of zero size are always
// accepted; others fail with messaging.ErrFull past MaxBytes.
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var size int64
	if q.sizeOf != nil {
		size = q.sizeOf(t)
	}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return messaging.ErrClosed
	}
	if size > 0 && q.config.MaxBytes > 0 && q.used+size > q.config.MaxBytes {
		q.mu.Unlock()
		return messaging.ErrFull
	}
	q.used += size
	q.messages = append(q.messages, &Message[T]{
		id:        uuid.New().String(),
		payload:   *t,
		size:      size,
		queue:     q,
	})
	q.mu.Unlock()
	q.signal()
	return nil
}

// Consume retrieves a single item from the queue
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	for {
		q.mu.Lock()
		if len(q.messages) > 0 {
			msg := q.messages[0]
			q.messages[0] = nil
			q.messages = q.messages[1:]
			q.mu.Unlock()
			return msg, nil
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return nil, messaging.ErrClosed
		}
		select {
		case <-q.notify:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Close stops accepting new messages.
func (q *Queue[T]) Close() error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal()
	return nil
}

// Size returns the current number of messages in the queue
func (q *Queue[T]) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.messages)
}

// Bytes returns the size of unacknowledged messages
func (q *Queue[T]) Bytes() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.used
}

// Nacked returns the number of messages settled with Nack.
func (q *Queue[T]) Nacked() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.nacked
}

func (q *Queue[T]) release(size int64) {
	if size == 0 {
		return
	}
	q.mu.Lock()
	q.used -= size
	q.mu.Unlock()
}

func (q *Queue[T]) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// ensure Queue implements messaging.Queue interface
var _ messaging.Queue[any] = (*Queue[any])(nil)
