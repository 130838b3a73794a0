package event

import "log/slog"

type Option func(d *Dispatcher)

// WithMaxBufferedBytes caps undelivered output per observer.
func WithMaxBufferedBytes(limit int64) Option {
	return func(d *Dispatcher) {
		d.config.MaxBufferedBytes = limit
	}
}

// WithLogger sets the logger used to report observer failures.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}
