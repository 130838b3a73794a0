package executor

import (
	"log/slog"

	"github.com/viant/afs"
	"github.com/viant/jobrunner/runtime/template"
)

// Option is used to customise the executor instance.
type Option func(*service)

// WithConfig replaces the executor configuration.
func WithConfig(config *Config) Option {
	return func(s *service) {
		s.config = config
	}
}

// WithFs sets the file service used for working directories.
func WithFs(fs afs.Service) Option {
	return func(s *service) {
		s.fs = fs
	}
}

// WithTemplate overrides the template service.
func WithTemplate(templates *template.Service) Option {
	return func(s *service) {
		s.templates = templates
	}
}

// WithLogger sets the executor logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}
