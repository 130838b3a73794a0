package jobrunner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/viant/jobrunner/internal/logging"
	"github.com/viant/jobrunner/model/input"
	"github.com/viant/jobrunner/model/job"
	"github.com/viant/jobrunner/model/spec"
	"github.com/viant/jobrunner/progress"
	"github.com/viant/jobrunner/promise"
	"github.com/viant/jobrunner/service/dao"
	"github.com/viant/jobrunner/service/dao/jobs"
	jfs "github.com/viant/jobrunner/service/dao/jobs/fs"
	jmemory "github.com/viant/jobrunner/service/dao/jobs/memory"
	"github.com/viant/jobrunner/service/dao/jobs/sqlite"
	"github.com/viant/jobrunner/service/dao/specs"
	sfs "github.com/viant/jobrunner/service/dao/specs/fs"
	smemory "github.com/viant/jobrunner/service/dao/specs/memory"
	"github.com/viant/jobrunner/service/event"
	"github.com/viant/jobrunner/service/executor"
	"github.com/viant/jobrunner/service/identity"
	"github.com/viant/jobrunner/service/meta"
	"github.com/viant/jobrunner/service/scheduler"
	"github.com/viant/jobrunner/tracing"

	"github.com/viant/afs/storage"
)

const (
	// Name is the service name reported to tracing.
	Name    = "jobrunner"
	Version = "0.1.0"
)

// Service admits job requests: it resolves the caller, looks up the spec,
// validates inputs and hands the valid request to the scheduler.
type Service struct {
	config         *Config
	specs          specs.Repository
	specList       []*spec.Spec
	specsFsOptions []storage.Option
	identity       identity.Provider
	persistence    jobs.Service
	executor       executor.Service
	scheduler      *scheduler.Service
	listeners      []*event.Listeners
	newID          func() string
	logger         *slog.Logger
	allowUnknown   bool
	closers        []func() error
}

// Validate resolves the caller and checks the request against its spec.
// input.ValidationErrors or *input.DecodeError report rejected inputs.
func (s *Service) Validate(ctx context.Context, request *job.Request, credential string) (*job.ValidRequest, error) {
	if request == nil {
		return nil, fmt.Errorf("job request was nil")
	}
	owner, err := s.identity.Identify(ctx, credential)
	if err != nil {
		return nil, err
	}
	if err = s.config.Policy.Check(request.Spec); err != nil {
		return nil, err
	}
	aSpec, err := s.specs.Lookup(ctx, request.Spec)
	if err != nil {
		return nil, err
	}
	var options []input.Option
	if s.allowUnknown {
		options = append(options, input.WithAllowUnknown())
	}
	values, err := input.Validate(aSpec.ExpectedInputs, request.Inputs, options...)
	if err != nil {
		return nil, err
	}
	return &job.ValidRequest{Spec: aSpec, Name: request.Name, Inputs: values, Owner: owner}, nil
}

// Submit validates and schedules a request. Rejected requests create no job.
// The returned promise resolves once the job reached a terminal status;
// canceling it aborts the job.
func (s *Service) Submit(ctx context.Context, request *job.Request, credential string, opts ...scheduler.SubmitOption) (string, *promise.Promise[job.Finalized], error) {
	valid, err := s.Validate(ctx, request, credential)
	if err != nil {
		if request != nil {
			s.logger.InfoContext(ctx, "job request rejected", "spec_id", request.Spec, "error", err)
		}
		return "", nil, err
	}
	return s.scheduler.Submit(ctx, valid, opts...)
}

// TryAbort aborts a pending or running job; it reports whether the abort was accepted.
func (s *Service) TryAbort(ctx context.Context, id string) bool {
	return s.scheduler.TryAbort(ctx, id)
}

// Job returns a live job snapshot or, for jobs from earlier runs, the persisted record.
func (s *Service) Job(ctx context.Context, id string) (*job.Record, error) {
	if record, ok := s.scheduler.Job(id); ok {
		return record, nil
	}
	return s.persistence.Load(ctx, id)
}

// Jobs lists persisted job records matching parameters, see dao.ParameterStatus.
func (s *Service) Jobs(ctx context.Context, parameters ...*dao.Parameter) ([]*job.Record, error) {
	return s.persistence.List(ctx, parameters...)
}

// Specs lists published spec summaries.
func (s *Service) Specs(ctx context.Context) ([]*spec.Summary, error) {
	return s.specs.Summaries(ctx)
}

// Spec returns a published spec.
func (s *Service) Spec(ctx context.Context, id string) (*spec.Spec, error) {
	return s.specs.Lookup(ctx, id)
}

// Example returns a request for specID whose inputs pass validation.
func (s *Service) Example(ctx context.Context, specID string) (*job.Request, error) {
	aSpec, err := s.specs.Lookup(ctx, specID)
	if err != nil {
		return nil, err
	}
	return &job.Request{Spec: aSpec.ID, Name: aSpec.Name, Inputs: aSpec.ExampleRequest()}, nil
}

// Progress returns job counters since the service started.
func (s *Service) Progress() progress.Progress {
	return s.scheduler.Progress()
}

// Config returns the effective configuration.
func (s *Service) Config() *Config {
	return s.config
}

// Shutdown aborts pending and running jobs, waits for them to settle and
// releases persistence resources.
func (s *Service) Shutdown(ctx context.Context) error {
	err := s.scheduler.Shutdown(ctx)
	for _, closer := range s.closers {
		err = errors.Join(err, closer())
	}
	return err
}

func (s *Service) init(ctx context.Context) error {
	config := s.config
	if s.logger == nil {
		s.logger = logging.New(config.Log.Verbose)
	}
	if config.Tracing.Enabled {
		if err := tracing.Init(Name, Version, config.Tracing.Output); err != nil {
			return fmt.Errorf("failed to init tracing: %w", err)
		}
	}
	if err := s.ensureSpecs(); err != nil {
		return err
	}
	if s.identity == nil {
		provider, err := identity.New(ctx, config.Identity)
		if err != nil {
			return err
		}
		s.identity = provider
	}
	if err := s.ensurePersistence(ctx); err != nil {
		return err
	}
	if s.executor == nil {
		anExecutor, err := executor.New(executor.WithConfig(&config.Executor), executor.WithLogger(s.logger))
		if err != nil {
			return err
		}
		s.executor = anExecutor
	}
	if config.Events.MaxBufferedBytes > 0 {
		config.Scheduler.MaxBufferedBytes = config.Events.MaxBufferedBytes
	}
	if config.Executor.DeleteWorkDir {
		config.Scheduler.DeleteWorkDir = true
	}
	options := []scheduler.Option{
		scheduler.WithConfig(&config.Scheduler),
		scheduler.WithExecutor(s.executor),
		scheduler.WithPersistence(s.persistence),
		scheduler.WithListeners(s.listeners...),
		scheduler.WithLogger(s.logger),
	}
	if s.newID != nil {
		options = append(options, scheduler.WithIDGenerator(s.newID))
	}
	var err error
	s.scheduler, err = scheduler.New(options...)
	return err
}

func (s *Service) ensureSpecs() error {
	if s.specs != nil {
		return nil
	}
	if s.config.Specs.URL != "" && len(s.specList) == 0 {
		repository, err := sfs.New(meta.New(nil, s.config.Specs.URL, s.specsFsOptions...))
		if err != nil {
			return err
		}
		s.specs = repository
		return nil
	}
	repository, err := smemory.New(s.specList...)
	if err != nil {
		return err
	}
	s.specs = repository
	return nil
}

func (s *Service) ensurePersistence(ctx context.Context) error {
	if s.persistence != nil {
		return nil
	}
	var err error
	switch s.config.Persistence.Kind {
	case PersistenceFs:
		s.persistence, err = jfs.New(s.config.Persistence.URL)
	case PersistenceSQLite:
		var store *sqlite.Service
		if store, err = sqlite.Open(ctx, s.config.Persistence.URL); err == nil {
			s.persistence = store
			s.closers = append(s.closers, store.Close)
		}
	default:
		s.persistence = jmemory.New()
	}
	return err
}

// New creates a service with DefaultConfig.
func New(options ...Option) (*Service, error) {
	return NewFromConfig(context.Background(), DefaultConfig(), options...)
}

// NewFromConfig creates a service from config; options override config sections.
func NewFromConfig(ctx context.Context, config *Config, options ...Option) (*Service, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	ret := &Service{config: config}
	for _, option := range options {
		option(ret)
	}
	if err := ret.init(ctx); err != nil {
		for _, closer := range ret.closers {
			_ = closer()
		}
		return nil, err
	}
	return ret, nil
}
