package executor

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/jobrunner/model/job"
	"github.com/viant/jobrunner/runtime/template"
)

// Observer receives a job's status changes and output chunks as they happen.
// Implementations must not block.
type Observer interface {
	StatusChanged(timestamp job.Timestamp)
	Stdout(chunk []byte)
	Stderr(chunk []byte)
}

// Handle controls a started job.
type Handle interface {
	// Abort requests termination; it never blocks and is safe to call many times.
	Abort()
	// Done is closed once the job reached a terminal status.
	Done() <-chan struct{}
	// Result returns the finalized job; it is nil until Done is closed.
	Result() *job.Finalized
}

// Service bridges admitted jobs with operating system processes.
type Service interface {
	// Start launches the job asynchronously. The job must be in the submitted status.
	Start(ctx context.Context, aJob *job.Job, observer Observer) Handle
	// Dispose removes the job working directory.
	Dispose(ctx context.Context, aJob *job.Job) error
}

type service struct {
	config    *Config
	fs        afs.Service
	templates *template.Service
	logger    *slog.Logger
}

// Start launches aJob.
func (s *service) Start(ctx context.Context, aJob *job.Job, observer Observer) Handle {
	if observer == nil {
		observer = nopObserver{}
	}
	run := &execution{
		service:  s,
		job:      aJob,
		observer: observer,
		abort:    make(chan struct{}),
		done:     make(chan struct{}),
	}
	go run.run(context.WithoutCancel(ctx))
	return run
}

// Dispose removes the working directory of a settled job.
func (s *service) Dispose(ctx context.Context, aJob *job.Job) error {
	dir := aJob.WorkDir()
	if dir == "" {
		return nil
	}
	if ok, _ := s.fs.Exists(ctx, dir); !ok {
		return nil
	}
	if err := s.fs.Delete(ctx, dir); err != nil {
		return fmt.Errorf("failed to delete working directory %s: %w", dir, err)
	}
	return nil
}

// Config returns the effective configuration.
func (s *service) Config() *Config {
	return s.config
}

// New creates an executor service.
func New(opts ...Option) (Service, error) {
	s := &service{config: DefaultConfig(), logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.config.Validate(); err != nil {
		return nil, err
	}
	workDir, err := filepath.Abs(s.config.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("executor: invalid workDir %q: %w", s.config.WorkDir, err)
	}
	s.config.WorkDir = workDir
	if s.config.OutputGrace == 0 {
		s.config.OutputGrace = DefaultOutputGrace
	}
	if s.fs == nil {
		s.fs = afs.New()
	}
	if s.templates == nil {
		s.templates = template.New(s.fs)
	}
	return s, nil
}

type nopObserver struct{}

func (nopObserver) StatusChanged(job.Timestamp) {}
func (nopObserver) Stdout([]byte)               {}
func (nopObserver) Stderr([]byte)               {}

// execution is the Handle of a single job run.
type execution struct {
	service   *service
	job       *job.Job
	observer  Observer
	abort     chan struct{}
	abortOnce sync.Once
	done      chan struct{}
	mux       sync.Mutex
	result    *job.Finalized
}

func (e *execution) Abort() {
	e.abortOnce.Do(func() { close(e.abort) })
}

func (e *execution) Done() <-chan struct{} {
	return e.done
}

func (e *execution) Result() *job.Finalized {
	e.mux.Lock()
	defer e.mux.Unlock()
	return e.result
}

func (e *execution) aborted() bool {
	select {
	case <-e.abort:
		return true
	default:
		return false
	}
}
