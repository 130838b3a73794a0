// Package promise provides a single-assignment result cell with external
// cancellation and any number of observers.
package promise

import (
	"context"
	"errors"
	"sync"
)

// ErrCanceled is returned by Wait when the promise was canceled.
var ErrCanceled = errors.New("promise: canceled")

// Outcome is the settled state of a promise.
type Outcome[T any] struct {
	Value    T
	Canceled bool
}

// Promise settles exactly once, via Resolve or Cancel.
type Promise[T any] struct {
	mux       sync.Mutex
	settled   bool
	outcome   Outcome[T]
	observers []func(Outcome[T])
	done      chan struct{}
}

// New returns an unsettled promise.
func New[T any]() *Promise[T] {
	return &Promise[T]{done: make(chan struct{})}
}

// Resolve settles the promise with value. It reports false when already settled.
func (p *Promise[T]) Resolve(value T) bool {
	return p.settle(Outcome[T]{Value: value})
}

// Cancel settles the promise as canceled. It reports false when already settled.
func (p *Promise[T]) Cancel() bool {
	return p.settle(Outcome[T]{Canceled: true})
}

func (p *Promise[T]) settle(outcome Outcome[T]) bool {
	p.mux.Lock()
	if p.settled {
		p.mux.Unlock()
		return false
	}
	p.settled = true
	p.outcome = outcome
	observers := p.observers
	p.observers = nil
	close(p.done)
	p.mux.Unlock()

	for _, observer := range observers {
		observer(outcome)
	}
	return true
}

// Attach registers fn to be called once with the outcome. When the promise is
// already settled fn runs immediately on the calling goroutine.
func (p *Promise[T]) Attach(fn func(Outcome[T])) {
	p.mux.Lock()
	if !p.settled {
		p.observers = append(p.observers, fn)
		p.mux.Unlock()
		return
	}
	outcome := p.outcome
	p.mux.Unlock()
	fn(outcome)
}

// Done is closed once the promise settles.
func (p *Promise[T]) Done() <-chan struct{} {
	return p.done
}

// Settled reports whether the promise has settled.
func (p *Promise[T]) Settled() bool {
	p.mux.Lock()
	defer p.mux.Unlock()
	return p.settled
}

// Wait blocks until the promise settles or ctx is done.
func (p *Promise[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-p.done:
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
	p.mux.Lock()
	outcome := p.outcome
	p.mux.Unlock()
	if outcome.Canceled {
		return outcome.Value, ErrCanceled
	}
	return outcome.Value, nil
}
