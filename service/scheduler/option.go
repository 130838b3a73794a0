package scheduler

import (
	"log/slog"

	"github.com/viant/jobrunner/progress"
	"github.com/viant/jobrunner/service/event"
	"github.com/viant/jobrunner/service/executor"
)

type Option func(s *Service)

func WithConfig(config *Config) Option {
	return func(s *Service) {
		s.config = config
	}
}

func WithExecutor(executor executor.Service) Option {
	return func(s *Service) {
		s.executor = executor
	}
}

// WithPersistence registers the durable job store notified on every change.
func WithPersistence(persistence Persistence) Option {
	return func(s *Service) {
		s.persistence = persistence
	}
}

// WithListeners registers observers notified about every job.
func WithListeners(listeners ...*event.Listeners) Option {
	return func(s *Service) {
		s.listeners = append(s.listeners, listeners...)
	}
}

// WithIDGenerator overrides job identifier generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// SubmitOption customises a single submission.
// WithProgress registers a callback invoked after every job counter change.
func WithProgress(onChange func(progress.Progress)) Option {
	return func(s *Service) {
		s.progress = progress.New(onChange)
	}
}

type SubmitOption func(s *submission)

type submission struct {
	listeners []*event.Listeners
}

// WithJobListeners registers observers of the submitted job only.
func WithJobListeners(listeners ...*event.Listeners) SubmitOption {
	return func(s *submission) {
		s.listeners = append(s.listeners, listeners...)
	}
}
