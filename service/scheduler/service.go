package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/viant/jobrunner/internal/idgen"
	"github.com/viant/jobrunner/internal/logging"
	"github.com/viant/jobrunner/model/job"
	"github.com/viant/jobrunner/progress"
	"github.com/viant/jobrunner/promise"
	"github.com/viant/jobrunner/service/event"
	"github.com/viant/jobrunner/service/executor"
	"github.com/viant/jobrunner/tracing"
)

// Persistence records job changes durably. Failures are logged and never
// affect scheduling.
type Persistence interface {
	OnTimestamp(ctx context.Context, aJob *job.Job, timestamp job.Timestamp) error
	OnFinalized(ctx context.Context, aJob *job.Job) error
}

// Service is the job scheduler. The pending queue and running set are only
// touched while holding mux.
type Service struct {
	config      *Config
	executor    executor.Service
	persistence Persistence
	listeners   []*event.Listeners
	newID       func() string
	logger      *slog.Logger
	progress    *progress.Tracker

	mux     sync.Mutex
	pending []*entry
	running map[string]*entry
	jobs    map[string]*entry
	settled map[string]*job.Record
	closed  bool
	wg      sync.WaitGroup
}

// entry tracks an admitted job; it is the executor observer of that job.
type entry struct {
	ctx        context.Context
	scheduler  *Service
	job        *job.Job
	promise    *promise.Promise[job.Finalized]
	dispatcher *event.Dispatcher
	handle     executor.Handle
}

func (e *entry) StatusChanged(timestamp job.Timestamp) {
	e.scheduler.progress.Transition(e.previous(timestamp.Status), timestamp.Status)
	e.scheduler.persist(e, timestamp)
	e.dispatcher.StatusChanged(timestamp)
}

// previous returns the status recorded before status.
func (e *entry) previous(status job.Status) job.Status {
	timestamps := e.job.Timestamps()
	for i := len(timestamps) - 1; i > 0; i-- {
		if timestamps[i].Status == status {
			return timestamps[i-1].Status
		}
	}
	return ""
}

func (e *entry) Stdout(chunk []byte) {
	e.dispatcher.Stdout(chunk)
}

func (e *entry) Stderr(chunk []byte) {
	e.dispatcher.Stderr(chunk)
}

// Submit admits a validated request. The job starts right away when fewer
// than MaxRunning jobs run, otherwise it waits in FIFO order. Canceling the
// returned promise aborts the job.
func (s *Service) Submit(ctx context.Context, request *job.ValidRequest, opts ...SubmitOption) (id string, result *promise.Promise[job.Finalized], err error) {
	ctx, span := tracing.StartSpan(ctx, "scheduler.Submit", "PRODUCER")
	defer func() { tracing.EndSpan(span, err) }()
	if request == nil || request.Spec == nil {
		return "", nil, fmt.Errorf("scheduler: request without spec")
	}
	s.mux.Lock()
	if s.closed {
		s.mux.Unlock()
		return "", nil, ErrShutdown
	}
	// holds Shutdown until the job is queued or aborted
	s.wg.Add(1)
	s.mux.Unlock()
	defer s.wg.Done()

	sub := &submission{}
	for _, opt := range opts {
		opt(sub)
	}

	id = s.newID()
	ctx = logging.WithJob(context.WithoutCancel(ctx), id, request.Spec.ID)
	span.WithAttributes(map[string]string{"job_id": id, "spec_id": request.Spec.ID})
	observers := append(append([]*event.Listeners{}, s.listeners...), sub.listeners...)
	e := &entry{
		ctx:       ctx,
		scheduler: s,
		job:       job.New(id, request),
		promise:   promise.New[job.Finalized](),
		dispatcher: event.NewDispatcher(id, observers,
			event.WithMaxBufferedBytes(s.config.MaxBufferedBytes),
			event.WithLogger(s.logger)),
	}
	timestamp, err := e.job.Append(job.StatusSubmitted, "")
	if err != nil {
		_ = e.dispatcher.Close(ctx)
		return "", nil, err
	}
	e.StatusChanged(timestamp)
	s.logger.InfoContext(ctx, "job submitted", "owner", e.job.Owner)

	s.mux.Lock()
	s.jobs[id] = e
	if s.closed {
		s.wg.Add(1)
		s.mux.Unlock()
		s.abortPending(e, "scheduler shut down")
		return id, e.promise, nil
	}
	s.pending = append(s.pending, e)
	s.startEligibleLocked()
	s.mux.Unlock()

	e.promise.Attach(func(outcome promise.Outcome[job.Finalized]) {
		if outcome.Canceled {
			s.TryAbort(ctx, id)
		}
	})
	return id, e.promise, nil
}

// startEligibleLocked starts pending jobs while there is room under the ceiling.
func (s *Service) startEligibleLocked() {
	for len(s.running) < s.config.MaxRunning && len(s.pending) > 0 {
		e := s.pending[0]
		s.pending[0] = nil
		s.pending = s.pending[1:]
		s.running[e.job.ID] = e
		e.handle = s.executor.Start(e.ctx, e.job, e)
		s.wg.Add(1)
		go s.await(e)
	}
}

func (s *Service) await(e *entry) {
	defer s.wg.Done()
	<-e.handle.Done()
	s.mux.Lock()
	delete(s.running, e.job.ID)
	s.startEligibleLocked()
	s.mux.Unlock()

	result := e.handle.Result()
	if result == nil {
		result = &job.Finalized{Record: e.job.Record(), Err: e.job.Err()}
	}
	s.finalize(e, result)
	s.release(e)
	s.retire(e)
}

// TryAbort aborts a pending job directly or forwards an abort to a running
// one. It returns false for unknown and terminal jobs.
func (s *Service) TryAbort(ctx context.Context, id string) bool {
	s.mux.Lock()
	e, ok := s.jobs[id]
	if !ok {
		s.mux.Unlock()
		return false
	}
	for i, candidate := range s.pending {
		if candidate != e {
			continue
		}
		s.pending = append(s.pending[:i], s.pending[i+1:]...)
		s.wg.Add(1)
		s.mux.Unlock()
		s.abortPending(e, "aborted before start")
		return true
	}
	_, running := s.running[id]
	if !running || e.job.Status().IsTerminal() {
		s.mux.Unlock()
		return false
	}
	handle := e.handle
	s.mux.Unlock()
	s.logger.InfoContext(logging.WithJob(ctx, id, e.job.SpecID), "aborting running job")
	handle.Abort()
	return true
}

// abortPending settles a job that never started. The caller must have
// registered the release with wg.
func (s *Service) abortPending(e *entry, message string) {
	timestamp, err := e.job.Append(job.StatusAborted, message)
	if err != nil {
		s.logger.WarnContext(e.ctx, "status not recorded", "error", err)
	} else {
		e.StatusChanged(timestamp)
	}
	s.finalize(e, &job.Finalized{Record: e.job.Record()})
	go func() {
		defer s.wg.Done()
		s.release(e)
		s.retire(e)
	}()
}

// retire replaces a settled entry with its record so the request and its
// file payloads can be collected.
func (s *Service) retire(e *entry) {
	record := e.job.Record()
	s.mux.Lock()
	delete(s.jobs, e.job.ID)
	s.settled[e.job.ID] = record
	s.mux.Unlock()
}

func (s *Service) finalize(e *entry, result *job.Finalized) {
	if s.persistence != nil {
		if err := s.persistence.OnFinalized(e.ctx, e.job); err != nil {
			s.logger.ErrorContext(e.ctx, "failed to persist finalized job", "error", err)
		}
	}
	s.logger.InfoContext(e.ctx, "job settled", "status", string(result.Status()))
	e.promise.Resolve(*result)
}

// release waits for the observers then disposes the working directory.
func (s *Service) release(e *entry) {
	if err := e.dispatcher.Close(e.ctx); err != nil {
		s.logger.WarnContext(e.ctx, "observers not drained", "error", err)
	}
	if dropped := e.dispatcher.Dropped(); dropped > 0 {
		s.logger.WarnContext(e.ctx, "output chunks dropped for slow observers", "dropped", dropped)
	}
	if !s.config.DeleteWorkDir {
		return
	}
	if err := s.executor.Dispose(e.ctx, e.job); err != nil {
		s.logger.WarnContext(e.ctx, "failed to dispose working directory", "error", err)
	}
}

func (s *Service) persist(e *entry, timestamp job.Timestamp) {
	if s.persistence == nil {
		return
	}
	if err := s.persistence.OnTimestamp(e.ctx, e.job, timestamp); err != nil {
		s.logger.ErrorContext(e.ctx, "failed to persist timestamp", "status", string(timestamp.Status), "error", err)
	}
}

// Job returns a snapshot of a job admitted by this scheduler.
func (s *Service) Job(id string) (*job.Record, bool) {
	s.mux.Lock()
	e, ok := s.jobs[id]
	record, settled := s.settled[id]
	s.mux.Unlock()
	if ok {
		return e.job.Record(), true
	}
	return record, settled
}

// Running returns the number of started jobs that have not settled.
func (s *Service) Running() int {
	s.mux.Lock()
	defer s.mux.Unlock()
	return len(s.running)
}

// Pending returns the number of jobs waiting for a slot.
func (s *Service) Pending() int {
	s.mux.Lock()
	defer s.mux.Unlock()
	return len(s.pending)
}

// Progress returns the job counters of this scheduler.
func (s *Service) Progress() progress.Progress {
	return s.progress.Snapshot()
}

// Shutdown stops admission, aborts every pending and running job and waits
// until all of them settled or ctx is done.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mux.Lock()
	s.closed = true
	pending := s.pending
	s.pending = nil
	s.wg.Add(len(pending))
	var handles []executor.Handle
	for _, e := range s.running {
		handles = append(handles, e.handle)
	}
	s.mux.Unlock()

	for _, e := range pending {
		s.abortPending(e, "scheduler shut down")
	}
	for _, handle := range handles {
		handle.Abort()
	}
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// New creates a scheduler.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		config:  DefaultConfig(),
		newID:   idgen.New,
		logger:  slog.Default(),
		running: map[string]*entry{},
		jobs:    map[string]*entry{},
		settled: map[string]*job.Record{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.progress == nil {
		s.progress = progress.New(nil)
	}
	if err := s.config.Validate(); err != nil {
		return nil, err
	}
	if s.executor == nil {
		var err error
		if s.executor, err = executor.New(executor.WithLogger(s.logger)); err != nil {
			return nil, err
		}
	}
	return s, nil
}
