package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/jobrunner/model/input"
	"github.com/viant/jobrunner/model/job"
	"github.com/viant/jobrunner/model/spec"
	"github.com/viant/jobrunner/promise"
	"github.com/viant/jobrunner/service/event"
	"github.com/viant/jobrunner/service/executor"
	"go.uber.org/goleak"
)

type fakeHandle struct {
	job      *job.Job
	observer executor.Observer
	once     sync.Once
	done     chan struct{}
	mux      sync.Mutex
	result   *job.Finalized
	onFinish func()
}

func (h *fakeHandle) finish(status job.Status, message string) {
	h.once.Do(func() {
		if status == job.StatusFinished {
			h.job.SetExit(0)
		}
		if ts, err := h.job.Append(status, message); err == nil {
			h.observer.StatusChanged(ts)
		}
		h.mux.Lock()
		h.result = &job.Finalized{Record: h.job.Record()}
		h.mux.Unlock()
		if h.onFinish != nil {
			h.onFinish()
		}
		close(h.done)
	})
}

func (h *fakeHandle) Abort() {
	go h.finish(job.StatusAborted, "aborted")
}

func (h *fakeHandle) Done() <-chan struct{} { return h.done }

func (h *fakeHandle) Result() *job.Finalized {
	h.mux.Lock()
	defer h.mux.Unlock()
	return h.result
}

type fakeExecutor struct {
	mux      sync.Mutex
	started  []string
	handles  map[string]*fakeHandle
	disposed []string
	// auto finishes started jobs after the delay when set.
	auto    time.Duration
	running atomic.Int32
	peak    atomic.Int32
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{handles: map[string]*fakeHandle{}}
}

func (f *fakeExecutor) Start(ctx context.Context, aJob *job.Job, observer executor.Observer) executor.Handle {
	current := f.running.Add(1)
	for {
		peak := f.peak.Load()
		if current <= peak || f.peak.CompareAndSwap(peak, current) {
			break
		}
	}
	handle := &fakeHandle{job: aJob, observer: observer, done: make(chan struct{}), onFinish: func() { f.running.Add(-1) }}
	if ts, err := aJob.Append(job.StatusRunning, ""); err == nil {
		observer.StatusChanged(ts)
	}
	f.mux.Lock()
	f.started = append(f.started, aJob.ID)
	f.handles[aJob.ID] = handle
	f.mux.Unlock()
	if f.auto > 0 {
		go func() {
			time.Sleep(f.auto)
			handle.finish(job.StatusFinished, "exit code 0")
		}()
	}
	return handle
}

func (f *fakeExecutor) Dispose(ctx context.Context, aJob *job.Job) error {
	f.mux.Lock()
	f.disposed = append(f.disposed, aJob.ID)
	f.mux.Unlock()
	return nil
}

func (f *fakeExecutor) handle(id string) *fakeHandle {
	f.mux.Lock()
	defer f.mux.Unlock()
	return f.handles[id]
}

func (f *fakeExecutor) startedIDs() []string {
	f.mux.Lock()
	defer f.mux.Unlock()
	return append([]string(nil), f.started...)
}

type fakePersistence struct {
	mux        sync.Mutex
	timestamps map[string][]job.Status
	finalized  map[string]job.Status
}

func newFakePersistence() *fakePersistence {
	return &fakePersistence{timestamps: map[string][]job.Status{}, finalized: map[string]job.Status{}}
}

func (p *fakePersistence) OnTimestamp(ctx context.Context, aJob *job.Job, ts job.Timestamp) error {
	p.mux.Lock()
	defer p.mux.Unlock()
	p.timestamps[aJob.ID] = append(p.timestamps[aJob.ID], ts.Status)
	return nil
}

func (p *fakePersistence) OnFinalized(ctx context.Context, aJob *job.Job) error {
	p.mux.Lock()
	defer p.mux.Unlock()
	p.finalized[aJob.ID] = aJob.Status()
	return nil
}

func sequentialIDs() func() string {
	var counter atomic.Int32
	return func() string {
		return fmt.Sprintf("job-%d", counter.Add(1))
	}
}

func request() *job.ValidRequest {
	return &job.ValidRequest{Spec: &spec.Spec{ID: "echo", Name: "echo", Execution: &spec.Execution{Application: "echo"}}}
}

func newScheduler(t *testing.T, maxRunning int, opts ...Option) (*Service, *fakeExecutor) {
	t.Helper()
	exec := newFakeExecutor()
	config := DefaultConfig()
	config.MaxRunning = maxRunning
	options := append([]Option{WithConfig(config), WithExecutor(exec), WithIDGenerator(sequentialIDs())}, opts...)
	srv, err := New(options...)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, srv.Shutdown(ctx))
	})
	return srv, exec
}

func wait(t *testing.T, p *promise.Promise[job.Finalized]) job.Finalized {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result, err := p.Wait(ctx)
	require.NoError(t, err)
	return result
}

func statuses(timestamps []job.Timestamp) []job.Status {
	var ret []job.Status
	for _, ts := range timestamps {
		ret = append(ret, ts.Status)
	}
	return ret
}

func TestService_Ceiling(t *testing.T) {
	defer goleak.VerifyNone(t)
	srv, exec := newScheduler(t, 2)
	ctx := context.Background()
	var promises []*promise.Promise[job.Finalized]
	for i := 0; i < 5; i++ {
		_, p, err := srv.Submit(ctx, request())
		require.NoError(t, err)
		promises = append(promises, p)
	}
	assert.Equal(t, 2, srv.Running())
	assert.Equal(t, 3, srv.Pending())
	assert.Equal(t, []string{"job-1", "job-2"}, exec.startedIDs())
	record, ok := srv.Job("job-3")
	require.True(t, ok)
	assert.Equal(t, job.StatusSubmitted, record.Status())

	exec.handle("job-2").finish(job.StatusFinished, "")
	assert.Equal(t, job.StatusFinished, wait(t, promises[1]).Status())
	require.Eventually(t, func() bool { return len(exec.startedIDs()) == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "job-3", exec.startedIDs()[2])

	for _, id := range []string{"job-1", "job-3", "job-4", "job-5"} {
		require.Eventually(t, func() bool { return exec.handle(id) != nil }, time.Second, 5*time.Millisecond)
		exec.handle(id).finish(job.StatusFinished, "")
	}
	for _, p := range promises {
		result := wait(t, p)
		assert.Equal(t, []job.Status{job.StatusSubmitted, job.StatusRunning, job.StatusFinished}, statuses(result.Timestamps))
	}
	assert.Equal(t, []string{"job-1", "job-2", "job-3", "job-4", "job-5"}, exec.startedIDs())
	assert.Equal(t, 0, srv.Running())
}

func TestService_CeilingUnderBurst(t *testing.T) {
	defer goleak.VerifyNone(t)
	srv, exec := newScheduler(t, 3)
	exec.auto = 2 * time.Millisecond
	var wg sync.WaitGroup
	promises := make(chan *promise.Promise[job.Finalized], 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, p, err := srv.Submit(context.Background(), request())
			assert.NoError(t, err)
			promises <- p
		}()
	}
	wg.Wait()
	close(promises)
	for p := range promises {
		assert.Equal(t, job.StatusFinished, wait(t, p).Status())
	}
	assert.LessOrEqual(t, exec.peak.Load(), int32(3))
	assert.Len(t, exec.startedIDs(), 50)
}

func TestService_TryAbort(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()

	t.Run("pending", func(t *testing.T) {
		srv, exec := newScheduler(t, 1)
		_, first, err := srv.Submit(ctx, request())
		require.NoError(t, err)
		id, second, err := srv.Submit(ctx, request())
		require.NoError(t, err)

		assert.True(t, srv.TryAbort(ctx, id))
		result := wait(t, second)
		assert.Equal(t, []job.Status{job.StatusSubmitted, job.StatusAborted}, statuses(result.Timestamps))
		assert.Equal(t, 0, srv.Pending())

		exec.handle("job-1").finish(job.StatusFinished, "")
		wait(t, first)
		assert.Equal(t, []string{"job-1"}, exec.startedIDs())
		record, _ := srv.Job(id)
		assert.Equal(t, job.StatusAborted, record.Status())
	})

	t.Run("running", func(t *testing.T) {
		srv, _ := newScheduler(t, 1)
		id, p, err := srv.Submit(ctx, request())
		require.NoError(t, err)
		assert.True(t, srv.TryAbort(ctx, id))
		assert.Equal(t, job.StatusAborted, wait(t, p).Status())
	})

	t.Run("terminal and unknown", func(t *testing.T) {
		srv, exec := newScheduler(t, 1)
		id, p, err := srv.Submit(ctx, request())
		require.NoError(t, err)
		exec.handle(id).finish(job.StatusFinished, "")
		before := wait(t, p).Timestamps
		require.Eventually(t, func() bool { return srv.Running() == 0 }, time.Second, 5*time.Millisecond)

		assert.False(t, srv.TryAbort(ctx, id))
		assert.False(t, srv.TryAbort(ctx, "unknown"))
		record, _ := srv.Job(id)
		assert.Equal(t, before, record.Timestamps)
	})

	t.Run("promise cancel", func(t *testing.T) {
		srv, exec := newScheduler(t, 1)
		_, _, err := srv.Submit(ctx, request())
		require.NoError(t, err)
		id, p, err := srv.Submit(ctx, request())
		require.NoError(t, err)
		assert.True(t, p.Cancel())
		_, err = p.Wait(ctx)
		assert.ErrorIs(t, err, promise.ErrCanceled)

		record, _ := srv.Job(id)
		assert.Equal(t, job.StatusAborted, record.Status())
		exec.handle("job-1").finish(job.StatusFinished, "")
		require.Eventually(t, func() bool { return srv.Running() == 0 }, time.Second, 5*time.Millisecond)
		assert.Equal(t, []string{"job-1"}, exec.startedIDs())
	})
}

func TestService_Notifications(t *testing.T) {
	defer goleak.VerifyNone(t)
	persistence := newFakePersistence()
	var mux sync.Mutex
	global := map[string][]job.Status{}
	var perJob []job.Status
	globalListeners := &event.Listeners{OnStatusChange: func(jobID string, ts job.Timestamp) {
		mux.Lock()
		global[jobID] = append(global[jobID], ts.Status)
		mux.Unlock()
	}}
	jobListeners := &event.Listeners{OnStatusChange: func(jobID string, ts job.Timestamp) {
		mux.Lock()
		perJob = append(perJob, ts.Status)
		mux.Unlock()
	}}
	config := DefaultConfig()
	config.MaxRunning = 1
	config.DeleteWorkDir = true
	srv, exec := newScheduler(t, 1, WithConfig(config), WithPersistence(persistence), WithListeners(globalListeners))

	ctx := context.Background()
	id, p, err := srv.Submit(ctx, request(), WithJobListeners(jobListeners))
	require.NoError(t, err)
	other, _, err := srv.Submit(ctx, request())
	require.NoError(t, err)
	exec.handle(id).finish(job.StatusFinished, "")
	wait(t, p)
	require.NoError(t, srv.Shutdown(ctx))

	expected := []job.Status{job.StatusSubmitted, job.StatusRunning, job.StatusFinished}
	mux.Lock()
	assert.Equal(t, expected, perJob)
	assert.Equal(t, expected, global[id])
	mux.Unlock()
	persistence.mux.Lock()
	assert.Equal(t, expected, persistence.timestamps[id])
	assert.Equal(t, job.StatusFinished, persistence.finalized[id])
	assert.Equal(t, job.StatusAborted, persistence.finalized[other])
	persistence.mux.Unlock()
	exec.mux.Lock()
	assert.Contains(t, exec.disposed, id)
	exec.mux.Unlock()
}

func TestService_Shutdown(t *testing.T) {
	defer goleak.VerifyNone(t)
	srv, _ := newScheduler(t, 1)
	ctx := context.Background()
	_, running, err := srv.Submit(ctx, request())
	require.NoError(t, err)
	_, pending, err := srv.Submit(ctx, request())
	require.NoError(t, err)

	require.NoError(t, srv.Shutdown(ctx))
	assert.Equal(t, job.StatusAborted, wait(t, running).Status())
	result := wait(t, pending)
	assert.Equal(t, []job.Status{job.StatusSubmitted, job.StatusAborted}, statuses(result.Timestamps))
	counters := srv.Progress()
	assert.Equal(t, 2, counters.Submitted)
	assert.Equal(t, 2, counters.Aborted)
	assert.Equal(t, 0, counters.Running+counters.Pending)

	_, _, err = srv.Submit(ctx, request())
	assert.ErrorIs(t, err, ErrShutdown)
}

// blockingPersistence holds the first SUBMITTED timestamp until release is closed.
type blockingPersistence struct {
	*fakePersistence
	blocked chan struct{}
	release chan struct{}
	once    sync.Once
}

func (p *blockingPersistence) OnTimestamp(ctx context.Context, aJob *job.Job, ts job.Timestamp) error {
	if ts.Status == job.StatusSubmitted {
		p.once.Do(func() {
			close(p.blocked)
			<-p.release
		})
	}
	return p.fakePersistence.OnTimestamp(ctx, aJob, ts)
}

func TestService_SubmitDuringShutdown(t *testing.T) {
	defer goleak.VerifyNone(t)
	persistence := &blockingPersistence{fakePersistence: newFakePersistence(), blocked: make(chan struct{}), release: make(chan struct{})}
	srv, exec := newScheduler(t, 1, WithPersistence(persistence))
	ctx := context.Background()

	type submitted struct {
		id      string
		promise *promise.Promise[job.Finalized]
		err     error
	}
	submits := make(chan submitted, 1)
	go func() {
		id, p, err := srv.Submit(ctx, request())
		submits <- submitted{id: id, promise: p, err: err}
	}()
	<-persistence.blocked

	shutdown := make(chan error, 1)
	go func() { shutdown <- srv.Shutdown(ctx) }()
	require.Eventually(t, func() bool {
		srv.mux.Lock()
		defer srv.mux.Unlock()
		return srv.closed
	}, time.Second, 5*time.Millisecond)
	select {
	case err := <-shutdown:
		t.Fatalf("shutdown returned before the submission settled: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	close(persistence.release)

	sub := <-submits
	require.NoError(t, sub.err)
	assert.Equal(t, "job-1", sub.id)
	result := wait(t, sub.promise)
	assert.Equal(t, []job.Status{job.StatusSubmitted, job.StatusAborted}, statuses(result.Timestamps))
	assert.Equal(t, "scheduler shut down", result.Timestamps[1].Message)
	require.NoError(t, <-shutdown)
	assert.Empty(t, exec.startedIDs())

	_, _, err := srv.Submit(ctx, request())
	assert.ErrorIs(t, err, ErrShutdown)
	persistence.mux.Lock()
	assert.Len(t, persistence.timestamps, 1)
	assert.Equal(t, job.StatusAborted, persistence.finalized["job-1"])
	persistence.mux.Unlock()
}

func TestService_RetiresSettledJobs(t *testing.T) {
	defer goleak.VerifyNone(t)
	srv, exec := newScheduler(t, 1)
	ctx := context.Background()
	aRequest := request()
	aRequest.Inputs = input.Values{"doc": input.File{Filename: "a.txt", Data: []byte("payload")}}
	id, p, err := srv.Submit(ctx, aRequest)
	require.NoError(t, err)
	exec.handle(id).finish(job.StatusFinished, "")
	wait(t, p)

	require.Eventually(t, func() bool {
		srv.mux.Lock()
		defer srv.mux.Unlock()
		_, live := srv.jobs[id]
		return !live
	}, time.Second, 5*time.Millisecond)
	record, ok := srv.Job(id)
	require.True(t, ok)
	assert.Equal(t, job.StatusFinished, record.Status())
	assert.Contains(t, record.Inputs, "doc")
	assert.False(t, srv.TryAbort(ctx, id))
}

func TestConfig_Validate(t *testing.T) {
	config := DefaultConfig()
	assert.NoError(t, config.Validate())
	config.MaxRunning = 0
	assert.Error(t, config.Validate())
}
