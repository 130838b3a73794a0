package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/viant/jobrunner/model/job"
	"github.com/viant/jobrunner/service/messaging"
	"github.com/viant/jobrunner/service/messaging/memory"
)

// DefaultMaxBufferedBytes is the per observer output buffer limit.
const DefaultMaxBufferedBytes = 16 << 20

// Config controls dispatcher buffering.
type Config struct {
	MaxBufferedBytes int64 `json:"maxBufferedBytes,omitempty" yaml:"maxBufferedBytes,omitempty"`
}

// DefaultConfig returns the default dispatcher configuration.
func DefaultConfig() Config {
	return Config{MaxBufferedBytes: DefaultMaxBufferedBytes}
}

// Dispatcher delivers a job's events to observers. Each observer owns a
// mailbox drained by its own goroutine, so publishing never waits on a
// callback. Status events are always queued; output chunks past the buffer
// limit are dropped for that observer.
type Dispatcher struct {
	jobID     string
	config    Config
	logger    *slog.Logger
	mailboxes []*memory.Queue[Event[any]]
	wg        sync.WaitGroup
	dropped   atomic.Int64
	closeOnce sync.Once
}

// NewDispatcher starts a mailbox for every non empty observer.
func NewDispatcher(jobID string, observers []*Listeners, opts ...Option) *Dispatcher {
	ret := &Dispatcher{jobID: jobID, config: DefaultConfig(), logger: slog.Default()}
	for _, opt := range opts {
		opt(ret)
	}
	queueConfig := memory.Config{MaxBytes: ret.config.MaxBufferedBytes}
	for _, observer := range observers {
		if observer.IsEmpty() {
			continue
		}
		mailbox := memory.NewQueue[Event[any]](queueConfig, sizeOf)
		ret.mailboxes = append(ret.mailboxes, mailbox)
		ret.wg.Add(1)
		go ret.deliver(observer, mailbox)
	}
	return ret
}

func sizeOf(e *Event[any]) int64 {
	if chunk, ok := e.Data.([]byte); ok {
		return int64(len(chunk))
	}
	return 0
}

// StatusChanged queues a status event for every observer.
func (d *Dispatcher) StatusChanged(timestamp job.Timestamp) {
	d.publish(TypeStatus, timestamp)
}

// Stdout queues an output chunk; chunk must not be modified afterwards.
func (d *Dispatcher) Stdout(chunk []byte) {
	d.publish(TypeStdout, chunk)
}

// Stderr queues an error output chunk; chunk must not be modified afterwards.
func (d *Dispatcher) Stderr(chunk []byte) {
	d.publish(TypeStderr, chunk)
}

// Dropped returns the number of output chunks discarded due to the buffer limit.
func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

// Failed returns the number of events an observer failed to handle.
func (d *Dispatcher) Failed() int {
	ret := 0
	for _, mailbox := range d.mailboxes {
		ret += mailbox.Nacked()
	}
	return ret
}

func (d *Dispatcher) publish(eventType Type, data interface{}) {
	if len(d.mailboxes) == 0 {
		return
	}
	anEvent := NewEvent[any](&Context{JobID: d.jobID, EventType: eventType}, data)
	for _, mailbox := range d.mailboxes {
		err := mailbox.Publish(context.Background(), anEvent)
		switch {
		case err == nil:
		case errors.Is(err, messaging.ErrFull):
			if d.dropped.Add(1) == 1 {
				d.logger.Warn("observer is not keeping up, dropping output", "job_id", d.jobID, "limit", d.config.MaxBufferedBytes)
			}
		default:
			d.logger.Debug("event not delivered", "job_id", d.jobID, "type", string(eventType), "error", err)
		}
	}
}

func (d *Dispatcher) deliver(observer *Listeners, mailbox *memory.Queue[Event[any]]) {
	defer d.wg.Done()
	for {
		msg, err := mailbox.Consume(context.Background())
		if err != nil {
			return
		}
		if err := d.invoke(observer, msg.T()); err != nil {
			d.logger.Error("observer failed", "job_id", d.jobID, "error", err)
			_ = msg.Nack(err)
			continue
		}
		_ = msg.Ack()
	}
}

func (d *Dispatcher) invoke(observer *Listeners, anEvent *Event[any]) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s listener: %v", anEvent.Context.EventType, r)
		}
	}()
	observer.handle(anEvent)
	return nil
}

// Close stops accepting events and waits until queued ones are delivered or ctx is done.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.closeOnce.Do(func() {
		for _, mailbox := range d.mailboxes {
			_ = mailbox.Close()
		}
	})
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
