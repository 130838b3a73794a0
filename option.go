package jobrunner

import (
	"log/slog"

	"github.com/viant/afs/storage"
	"github.com/viant/jobrunner/model/spec"
	"github.com/viant/jobrunner/service/dao/jobs"
	"github.com/viant/jobrunner/service/dao/specs"
	"github.com/viant/jobrunner/service/event"
	"github.com/viant/jobrunner/service/executor"
	"github.com/viant/jobrunner/service/identity"
	"github.com/viant/jobrunner/tracing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option customises a Service beyond its Config.
type Option func(s *Service)

// WithSpecRepository sets the spec repository, replacing specs.url.
func WithSpecRepository(repository specs.Repository) Option {
	return func(s *Service) {
		s.specs = repository
	}
}

// WithSpecs registers specs in an in-memory repository.
func WithSpecs(items ...*spec.Spec) Option {
	return func(s *Service) {
		s.specList = append(s.specList, items...)
	}
}

// WithSpecsFsOptions sets storage options used to read specs.url, e.g. an embed.FS.
func WithSpecsFsOptions(options ...storage.Option) Option {
	return func(s *Service) {
		s.specsFsOptions = options
	}
}

// WithIdentity sets the identity provider, replacing the identity section.
func WithIdentity(provider identity.Provider) Option {
	return func(s *Service) {
		s.identity = provider
	}
}

// WithPersistence sets the job store, replacing the persistence section.
func WithPersistence(persistence jobs.Service) Option {
	return func(s *Service) {
		s.persistence = persistence
	}
}

// WithExecutor sets the process executor.
func WithExecutor(executor executor.Service) Option {
	return func(s *Service) {
		s.executor = executor
	}
}

// WithListeners registers listeners notified for every job.
func WithListeners(listeners ...*event.Listeners) Option {
	return func(s *Service) {
		s.listeners = append(s.listeners, listeners...)
	}
}

// WithIDGenerator overrides job id generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

// WithLogger sets the logger passed to every component.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithAllowUnknownInputs accepts submitted inputs a spec does not declare.
func WithAllowUnknownInputs() Option {
	return func(s *Service) {
		s.allowUnknown = true
	}
}

// WithTracing configures OpenTelemetry tracing. If outputFile is empty the
// stdout exporter is used. The first successful initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}

// WithTracingExporter configures OpenTelemetry tracing with a custom SpanExporter.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		_ = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}
