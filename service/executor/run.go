package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/viant/afs/file"
	"github.com/viant/jobrunner/internal/logging"
	"github.com/viant/jobrunner/model/job"
	"github.com/viant/jobrunner/runtime/template"
	"github.com/viant/jobrunner/tracing"
	"golang.org/x/sync/errgroup"
)

func (e *execution) run(ctx context.Context) {
	aJob := e.job
	ctx = logging.WithJob(ctx, aJob.ID, aJob.SpecID)
	ctx, span := tracing.StartSpan(ctx, "executor.Run", "INTERNAL")
	span.WithAttributes(map[string]string{"job_id": aJob.ID, "spec_id": aJob.SpecID})
	captured := &streams{
		stdout: capture{limit: e.service.config.MaxCapture},
		stderr: capture{limit: e.service.config.MaxCapture},
	}
	var err error
	defer func() {
		tracing.EndSpan(span, err)
		e.finish(captured)
	}()

	if err = e.prepare(ctx); err != nil {
		e.fail(ctx, err)
		return
	}
	if e.aborted() {
		e.transition(ctx, job.StatusAborted, "aborted before start")
		return
	}
	request := aJob.Request
	invocation, err := e.service.templates.Expand(ctx, &template.Context{
		Spec:    request.Spec,
		Inputs:  request.Inputs,
		JobID:   aJob.ID,
		Name:    aJob.Name,
		Owner:   aJob.Owner,
		WorkDir: aJob.WorkDir(),
	})
	if err != nil {
		e.fail(ctx, err)
		return
	}
	aJob.SetArgv(invocation.Argv)
	err = e.execute(ctx, invocation, captured)
}

// prepare creates the working directory with the request, the spec and the dependencies.
func (e *execution) prepare(ctx context.Context) error {
	fs := e.service.fs
	aJob := e.job
	if aJob.Request.Spec.Execution == nil {
		return fmt.Errorf("spec %q has no execution", aJob.SpecID)
	}
	dir := filepath.Join(e.service.config.WorkDir, aJob.ID)
	if err := fs.Create(ctx, filepath.Join(dir, OutputsDir), file.DefaultDirOsMode, true); err != nil {
		return fmt.Errorf("%w: %w", ErrWorkDir, err)
	}
	aJob.SetWorkDir(dir)

	documents := map[string]interface{}{
		RequestFile: aJob.Record(),
		SpecFile:    aJob.Request.Spec,
	}
	for name, document := range documents {
		data, err := json.MarshalIndent(document, "", "  ")
		if err != nil {
			return fmt.Errorf("%w: failed to encode %s: %w", ErrWorkDir, name, err)
		}
		if err = fs.Upload(ctx, filepath.Join(dir, name), file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
			return fmt.Errorf("%w: %w", ErrWorkDir, err)
		}
	}
	for _, dependency := range aJob.Request.Spec.Execution.Dependencies {
		target := filepath.Join(dir, filepath.Clean("/"+dependency.Target))
		if err := fs.Copy(ctx, dependency.Source, target); err != nil {
			return fmt.Errorf("%w: failed to copy dependency %s: %w", ErrWorkDir, dependency.Source, err)
		}
	}
	return nil
}

func (e *execution) execute(ctx context.Context, invocation *template.Invocation, captured *streams) error {
	dir := e.job.WorkDir()
	argv := invocation.Argv
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = dir
	setProcessGroup(cmd)
	if len(invocation.Stdin) > 0 {
		cmd.Stdin = bytes.NewReader(invocation.Stdin)
	}
	stdoutFile, err := os.Create(filepath.Join(dir, StdoutFile))
	if err != nil {
		return e.fail(ctx, fmt.Errorf("%w: %w", ErrWorkDir, err))
	}
	defer stdoutFile.Close()
	stderrFile, err := os.Create(filepath.Join(dir, StderrFile))
	if err != nil {
		return e.fail(ctx, fmt.Errorf("%w: %w", ErrWorkDir, err))
	}
	defer stderrFile.Close()
	stdout, err := newPipe()
	if err != nil {
		return e.fail(ctx, fmt.Errorf("%w: %w", ErrSpawn, err))
	}
	defer stdout.close()
	stderr, err := newPipe()
	if err != nil {
		return e.fail(ctx, fmt.Errorf("%w: %w", ErrSpawn, err))
	}
	defer stderr.close()
	cmd.Stdout, cmd.Stderr = stdout.writer, stderr.writer

	if err = cmd.Start(); err != nil {
		return e.fail(ctx, fmt.Errorf("%w %s: %w", ErrSpawn, argv[0], err))
	}
	stdout.closeWriter()
	stderr.closeWriter()

	group := &errgroup.Group{}
	group.Go(func() error { return e.drain(stdout.reader, stdoutFile, &captured.stdout, e.observer.Stdout) })
	group.Go(func() error { return e.drain(stderr.reader, stderrFile, &captured.stderr, e.observer.Stderr) })
	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()
	e.transition(ctx, job.StatusRunning, "pid "+strconv.Itoa(cmd.Process.Pid))

	var deadline <-chan time.Time
	if timeout := e.timeout(); timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}
	var waitErr error
	select {
	case waitErr = <-exited:
		e.settle(ctx, cmd, group, stdout, stderr)
	case <-e.abort:
		e.stop(ctx, cmd, exited)
		e.settle(ctx, cmd, group, stdout, stderr)
		e.transition(ctx, job.StatusAborted, "aborted")
		return nil
	case <-deadline:
		e.stop(ctx, cmd, exited)
		e.settle(ctx, cmd, group, stdout, stderr)
		e.transition(ctx, job.StatusAborted, "timeout")
		return nil
	}

	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		e.service.logger.WarnContext(ctx, "process wait failed", "error", waitErr)
	}
	code := -1
	if cmd.ProcessState != nil {
		code = cmd.ProcessState.ExitCode()
	}
	e.job.SetExit(code)
	outputs := e.collect(ctx)
	e.job.SetOutputs(outputs)
	if err = e.writeManifest(ctx, outputs); err != nil {
		e.service.logger.WarnContext(ctx, "failed to write outputs manifest", "error", err)
	}
	e.transition(ctx, job.StatusFinished, "exit code "+strconv.Itoa(code))
	return nil
}

// settle waits for both drains once the process exited. Descendants that still
// hold the pipes after OutputGrace are terminated and the pipes are closed.
func (e *execution) settle(ctx context.Context, cmd *exec.Cmd, group *errgroup.Group, pipes ...*pipe) {
	drained := make(chan error, 1)
	go func() { drained <- group.Wait() }()
	grace := time.NewTimer(e.service.config.OutputGrace)
	defer grace.Stop()
	var err error
	select {
	case err = <-drained:
	case <-grace.C:
		e.service.logger.InfoContext(ctx, "output still open after exit, closing", "grace", e.service.config.OutputGrace)
		if termErr := terminate(cmd); termErr != nil {
			e.service.logger.DebugContext(ctx, "terminate failed", "error", termErr)
		}
		for _, p := range pipes {
			p.close()
		}
		err = <-drained
	}
	if err != nil {
		e.service.logger.WarnContext(ctx, "failed to capture output", "error", err)
	}
}

// stop sends SIGTERM to the process group and SIGKILL once the grace period expires.
func (e *execution) stop(ctx context.Context, cmd *exec.Cmd, exited <-chan error) {
	if err := terminate(cmd); err != nil {
		e.service.logger.DebugContext(ctx, "terminate failed", "error", err)
	}
	grace := time.NewTimer(e.service.config.AbortGrace)
	defer grace.Stop()
	select {
	case <-exited:
		return
	case <-grace.C:
	}
	e.service.logger.InfoContext(ctx, "process did not exit in time, killing", "grace", e.service.config.AbortGrace)
	if err := kill(cmd); err != nil {
		e.service.logger.DebugContext(ctx, "kill failed", "error", err)
	}
	<-exited
}

func (e *execution) timeout() time.Duration {
	if timeout := e.job.Request.Spec.Execution.Timeout; timeout > 0 {
		return timeout.Duration()
	}
	return e.service.config.Timeout
}

func (e *execution) transition(ctx context.Context, status job.Status, message string) {
	timestamp, err := e.job.Append(status, message)
	if err != nil {
		e.service.logger.WarnContext(ctx, "status not recorded", "status", string(status), "error", err)
		return
	}
	e.service.logger.InfoContext(ctx, "job status changed", "status", string(status), "message", message)
	tracing.SpanFromContext(ctx).AddEvent(string(status), map[string]string{"message": message})
	e.observer.StatusChanged(timestamp)
}

func (e *execution) fail(ctx context.Context, err error) error {
	e.job.SetError(err)
	e.transition(ctx, job.StatusFatalError, err.Error())
	return err
}

func (e *execution) finish(captured *streams) {
	result := &job.Finalized{
		Record:     e.job.Record(),
		Stdout:     captured.stdout.data,
		Stderr:     captured.stderr.data,
		StdoutSize: captured.stdout.size,
		StderrSize: captured.stderr.size,
		Err:        e.job.Err(),
	}
	e.mux.Lock()
	e.result = result
	e.mux.Unlock()
	close(e.done)
}
