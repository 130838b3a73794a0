package executor

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/jobrunner/model/input"
	"github.com/viant/jobrunner/model/job"
	"github.com/viant/jobrunner/model/spec"
	"github.com/viant/jobrunner/runtime/template"
)

type recorder struct {
	mux      sync.Mutex
	statuses []job.Status
	stdout   int
	stderr   int
	running  chan struct{}
	once     sync.Once
}

func newRecorder() *recorder {
	return &recorder{running: make(chan struct{})}
}

func (r *recorder) StatusChanged(ts job.Timestamp) {
	r.mux.Lock()
	r.statuses = append(r.statuses, ts.Status)
	r.mux.Unlock()
	if ts.Status == job.StatusRunning {
		r.once.Do(func() { close(r.running) })
	}
}

func (r *recorder) Stdout(chunk []byte) {
	r.mux.Lock()
	r.stdout += len(chunk)
	r.mux.Unlock()
}

func (r *recorder) Stderr(chunk []byte) {
	r.mux.Lock()
	r.stderr += len(chunk)
	r.mux.Unlock()
}

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh is not available")
	}
}

func newService(t *testing.T, adjust ...func(c *Config)) (Service, *Config) {
	t.Helper()
	config := DefaultConfig()
	config.WorkDir = t.TempDir()
	config.AbortGrace = 200 * time.Millisecond
	for _, fn := range adjust {
		fn(config)
	}
	srv, err := New(WithConfig(config))
	require.NoError(t, err)
	return srv, config
}

func newJob(t *testing.T, id string, aSpec *spec.Spec, inputs input.Values) *job.Job {
	t.Helper()
	aSpec.Init()
	aJob := job.New(id, &job.ValidRequest{Spec: aSpec, Inputs: inputs, Owner: "alice"})
	_, err := aJob.Append(job.StatusSubmitted, "")
	require.NoError(t, err)
	return aJob
}

func shellSpec(script string) *spec.Spec {
	return &spec.Spec{ID: "shell", Execution: &spec.Execution{Application: "sh", Arguments: []string{"-c", script}}}
}

func await(t *testing.T, handle Handle) *job.Finalized {
	t.Helper()
	select {
	case <-handle.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("job did not finish in time")
	}
	result := handle.Result()
	require.NotNil(t, result)
	return result
}

func TestService_Finished(t *testing.T) {
	requireShell(t)
	srv, config := newService(t)
	aSpec := shellSpec("echo {{name}}; echo err >&2; printf data > result.txt")
	aSpec.ExpectedOutputs = []*spec.Output{{ID: "result", Path: "*.txt", Metadata: map[string]string{"k": "v"}}}
	aJob := newJob(t, "job-1", aSpec, input.Values{"name": input.String("X")})
	observer := newRecorder()

	result := await(t, srv.Start(context.Background(), aJob, observer))

	assert.Equal(t, job.StatusFinished, result.Status())
	require.NotNil(t, result.ExitCode)
	assert.Equal(t, 0, *result.ExitCode)
	assert.Equal(t, "X\n", string(result.Stdout))
	assert.Equal(t, "err\n", string(result.Stderr))
	assert.Equal(t, int64(2), result.StdoutSize)
	assert.Equal(t, []string{"sh", "-c", "echo X; echo err >&2; printf data > result.txt"}, result.Argv)
	assert.Equal(t, []job.Status{job.StatusRunning, job.StatusFinished}, observer.statuses)
	assert.Equal(t, 2, observer.stdout)
	assert.Equal(t, 4, observer.stderr)

	require.Len(t, result.Outputs, 1)
	output := result.Outputs[0]
	assert.Equal(t, "result", output.ID)
	assert.Equal(t, "result.txt", output.Path)
	assert.Equal(t, int64(4), output.Size)
	assert.Contains(t, output.MimeType, "text/plain")
	assert.Equal(t, "v", output.Metadata["k"])

	dir := filepath.Join(config.WorkDir, "job-1")
	assert.Equal(t, dir, result.WorkDir)
	for _, name := range []string{RequestFile, SpecFile, StdoutFile, StderrFile, ManifestFile, filepath.Join(OutputsDir, "result.txt")} {
		assert.FileExists(t, filepath.Join(dir, name))
	}
	stdout, err := os.ReadFile(filepath.Join(dir, StdoutFile))
	require.NoError(t, err)
	assert.Equal(t, "X\n", string(stdout))

	manifest, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	require.NoError(t, err)
	var outputs []*job.Output
	require.NoError(t, json.Unmarshal(manifest, &outputs))
	require.Len(t, outputs, 1)
	assert.Equal(t, "result.txt", outputs[0].Path)

	require.NoError(t, srv.Dispose(context.Background(), aJob))
	assert.NoDirExists(t, dir)
}

func TestService_ExitCodes(t *testing.T) {
	requireShell(t)
	testCases := []struct {
		description string
		script      string
		stdin       string
		exitCode    int
		stdout      string
	}{
		{description: "success", script: "true", exitCode: 0},
		{description: "non zero exit is finished", script: "echo partial; exit 3", exitCode: 3, stdout: "partial\n"},
		{description: "stdin", script: "cat", stdin: "{{name}}", stdout: "X"},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			srv, _ := newService(t)
			aSpec := shellSpec(tc.script)
			aSpec.Execution.Stdin = tc.stdin
			result := await(t, srv.Start(context.Background(), newJob(t, "job", aSpec, input.Values{"name": input.String("X")}), nil))
			assert.Equal(t, job.StatusFinished, result.Status())
			require.NotNil(t, result.ExitCode)
			assert.Equal(t, tc.exitCode, *result.ExitCode)
			assert.Equal(t, tc.stdout, string(result.Stdout))
		})
	}
}

func TestService_FatalError(t *testing.T) {
	requireShell(t)
	testCases := []struct {
		description string
		spec        *spec.Spec
		expectErr   func(t *testing.T, err error)
	}{
		{
			description: "template failure",
			spec:        shellSpec("echo {{missing}}"),
			expectErr: func(t *testing.T, err error) {
				var templateErr *template.Error
				assert.True(t, errors.As(err, &templateErr))
			},
		},
		{
			description: "spawn failure",
			spec:        &spec.Spec{ID: "missing", Execution: &spec.Execution{Application: "/nonexistent/jobrunner-binary"}},
			expectErr: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrSpawn)
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			srv, _ := newService(t)
			observer := newRecorder()
			result := await(t, srv.Start(context.Background(), newJob(t, "job", tc.spec, nil), observer))
			assert.Equal(t, job.StatusFatalError, result.Status())
			assert.Nil(t, result.ExitCode)
			assert.NotEmpty(t, result.Error)
			tc.expectErr(t, result.Err)
			assert.Equal(t, []job.Status{job.StatusFatalError}, observer.statuses)
		})
	}
}

func TestService_Abort(t *testing.T) {
	requireShell(t)
	testCases := []struct {
		description string
		script      string
		timeout     spec.Duration
		message     string
	}{
		{description: "graceful", script: "echo started; sleep 10", message: "aborted"},
		{description: "forced", script: "trap '' TERM; echo started; sleep 10", message: "aborted"},
		{description: "timeout", script: "echo started; sleep 10", timeout: spec.Duration(200 * time.Millisecond), message: "timeout"},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			srv, _ := newService(t)
			aSpec := shellSpec(tc.script)
			aSpec.Execution.Timeout = tc.timeout
			observer := newRecorder()
			started := time.Now()
			handle := srv.Start(context.Background(), newJob(t, "job", aSpec, nil), observer)
			if tc.timeout == 0 {
				select {
				case <-observer.running:
				case <-time.After(5 * time.Second):
					t.Fatal("job did not start")
				}
				time.Sleep(100 * time.Millisecond)
				handle.Abort()
				handle.Abort()
			}
			result := await(t, handle)
			assert.Less(t, time.Since(started), 5*time.Second)
			assert.Equal(t, job.StatusAborted, result.Status())
			assert.Equal(t, tc.message, result.Timestamps[len(result.Timestamps)-1].Message)
			assert.Nil(t, result.ExitCode)
			assert.Equal(t, "started\n", string(result.Stdout))
		})
	}
}

func TestService_DetachedDescendant(t *testing.T) {
	requireShell(t)
	srv, _ := newService(t, func(c *Config) { c.OutputGrace = 100 * time.Millisecond })
	observer := newRecorder()
	started := time.Now()
	result := await(t, srv.Start(context.Background(), newJob(t, "job", shellSpec("sleep 5 & echo parent done; exit 0"), nil), observer))
	assert.Less(t, time.Since(started), 3*time.Second)
	assert.Equal(t, job.StatusFinished, result.Status())
	require.NotNil(t, result.ExitCode)
	assert.Equal(t, 0, *result.ExitCode)
	assert.Equal(t, "parent done\n", string(result.Stdout))
	assert.Equal(t, []job.Status{job.StatusRunning, job.StatusFinished}, observer.statuses)
}

// blockedRecorder holds the RUNNING transition until want stdout bytes arrived.
type blockedRecorder struct {
	*recorder
	want    int
	drained bool
}

func (r *blockedRecorder) StatusChanged(ts job.Timestamp) {
	if ts.Status == job.StatusRunning {
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) && !r.drained {
			r.mux.Lock()
			r.drained = r.stdout >= r.want
			r.mux.Unlock()
			time.Sleep(10 * time.Millisecond)
		}
	}
	r.recorder.StatusChanged(ts)
}

func TestService_OutputDrainedDuringSlowTransition(t *testing.T) {
	requireShell(t)
	srv, _ := newService(t)
	observer := &blockedRecorder{recorder: newRecorder(), want: 200000}
	result := await(t, srv.Start(context.Background(), newJob(t, "job", shellSpec("head -c 200000 /dev/zero"), nil), observer))
	assert.True(t, observer.drained)
	assert.Equal(t, job.StatusFinished, result.Status())
	assert.Equal(t, int64(200000), result.StdoutSize)
}

func TestService_CaptureLimit(t *testing.T) {
	requireShell(t)
	srv, config := newService(t, func(c *Config) {
		c.ChunkSize = 1024
		c.MaxCapture = 1000
	})
	observer := newRecorder()
	aJob := newJob(t, "big", shellSpec("head -c 200000 /dev/zero"), nil)
	result := await(t, srv.Start(context.Background(), aJob, observer))
	assert.Equal(t, job.StatusFinished, result.Status())
	assert.Equal(t, int64(200000), result.StdoutSize)
	assert.Len(t, result.Stdout, 1000)
	assert.Equal(t, 200000, observer.stdout)
	info, err := os.Stat(filepath.Join(config.WorkDir, "big", StdoutFile))
	require.NoError(t, err)
	assert.Equal(t, int64(200000), info.Size())
}

func TestService_MissingOutputTolerated(t *testing.T) {
	requireShell(t)
	srv, config := newService(t)
	aSpec := shellSpec("true")
	aSpec.ExpectedOutputs = []*spec.Output{{ID: "report", Path: "report.csv", MimeType: "text/csv"}}
	result := await(t, srv.Start(context.Background(), newJob(t, "job", aSpec, nil), nil))
	assert.Equal(t, job.StatusFinished, result.Status())
	assert.Empty(t, result.Outputs)
	manifest, err := os.ReadFile(filepath.Join(config.WorkDir, "job", ManifestFile))
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(manifest))
}

func TestService_Dependencies(t *testing.T) {
	requireShell(t)
	source := filepath.Join(t.TempDir(), "dep.txt")
	require.NoError(t, os.WriteFile(source, []byte("dependency"), 0o644))
	srv, _ := newService(t)
	aSpec := shellSpec("cat dep.txt")
	aSpec.Execution.Dependencies = []*spec.Dependency{{Source: source, Target: "dep.txt"}}
	result := await(t, srv.Start(context.Background(), newJob(t, "job", aSpec, nil), nil))
	assert.Equal(t, job.StatusFinished, result.Status())
	assert.Equal(t, "dependency", string(result.Stdout))
}

func TestConfig_Validate(t *testing.T) {
	testCases := []struct {
		description string
		adjust      func(c *Config)
		expectErr   bool
	}{
		{description: "default", adjust: func(c *Config) {}},
		{description: "empty work dir", adjust: func(c *Config) { c.WorkDir = "" }, expectErr: true},
		{description: "zero chunk", adjust: func(c *Config) { c.ChunkSize = 0 }, expectErr: true},
		{description: "negative grace", adjust: func(c *Config) { c.AbortGrace = -1 }, expectErr: true},
		{description: "negative output grace", adjust: func(c *Config) { c.OutputGrace = -1 }, expectErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			config := DefaultConfig()
			tc.adjust(config)
			err := config.Validate()
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
