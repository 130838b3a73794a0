package jobs_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/jobrunner/model/input"
	"github.com/viant/jobrunner/model/job"
	"github.com/viant/jobrunner/model/spec"
	"github.com/viant/jobrunner/service/dao"
	"github.com/viant/jobrunner/service/dao/jobs"
	"github.com/viant/jobrunner/service/dao/jobs/fs"
	"github.com/viant/jobrunner/service/dao/jobs/memory"
	"github.com/viant/jobrunner/service/dao/jobs/sqlite"
)

func newJob(id, owner, specID string) *job.Job {
	return job.New(id, &job.ValidRequest{
		Spec:   &spec.Spec{ID: specID, Name: specID},
		Owner:  owner,
		Inputs: input.Values{"name": input.String("X")},
	})
}

func advance(t *testing.T, ctx context.Context, srv jobs.Service, aJob *job.Job, statuses ...job.Status) {
	t.Helper()
	for _, status := range statuses {
		ts, err := aJob.Append(status, string(status))
		require.NoError(t, err)
		require.NoError(t, srv.OnTimestamp(ctx, aJob, ts))
	}
}

func statusesOf(record *job.Record) []job.Status {
	var ret []job.Status
	for _, ts := range record.Timestamps {
		ret = append(ret, ts.Status)
	}
	return ret
}

func TestService(t *testing.T) {
	testCases := []struct {
		description string
		new         func(t *testing.T) jobs.Service
	}{
		{description: "memory", new: func(t *testing.T) jobs.Service { return memory.New() }},
		{description: "fs", new: func(t *testing.T) jobs.Service {
			srv, err := fs.New(filepath.Join(t.TempDir(), "jobs"))
			require.NoError(t, err)
			return srv
		}},
		{description: "sqlite", new: func(t *testing.T) jobs.Service {
			srv, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "jobs.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = srv.Close() })
			return srv
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			ctx := context.Background()
			srv := tc.new(t)

			first := newJob("job-1", "alice", "echo")
			advance(t, ctx, srv, first, job.StatusSubmitted, job.StatusRunning)
			first.SetExit(0)
			advance(t, ctx, srv, first, job.StatusFinished)
			require.NoError(t, srv.OnFinalized(ctx, first))

			second := newJob("job-2", "bob", "echo")
			advance(t, ctx, srv, second, job.StatusSubmitted, job.StatusAborted)

			third := newJob("job-3", "alice", "cat")
			advance(t, ctx, srv, third, job.StatusSubmitted)

			record, err := srv.Load(ctx, "job-1")
			require.NoError(t, err)
			assert.Equal(t, []job.Status{job.StatusSubmitted, job.StatusRunning, job.StatusFinished}, statusesOf(record))
			assert.Equal(t, "running", record.Timestamps[1].Message)
			require.NotNil(t, record.ExitCode)
			assert.Equal(t, 0, *record.ExitCode)
			assert.Equal(t, "X", record.Inputs["name"])
			assert.True(t, record.Timestamps[0].Time.Equal(first.Timestamps()[0].Time))

			_, err = srv.Load(ctx, "missing")
			assert.ErrorIs(t, err, dao.ErrNotFound)

			all, err := srv.List(ctx)
			require.NoError(t, err)
			assert.Len(t, all, 3)

			byOwner, err := srv.List(ctx, dao.NewParameter(dao.ParameterOwner, "alice"))
			require.NoError(t, err)
			var ids []string
			for _, r := range byOwner {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, []string{"job-1", "job-3"}, ids)

			terminal, err := srv.List(ctx, dao.NewParameter(dao.ParameterStatus, "finished", "aborted"), dao.NewParameter(dao.ParameterSpec, "echo"))
			require.NoError(t, err)
			assert.Len(t, terminal, 2)

			require.NoError(t, srv.Delete(ctx, "job-2"))
			_, err = srv.Load(ctx, "job-2")
			assert.ErrorIs(t, err, dao.ErrNotFound)
			assert.ErrorIs(t, srv.Delete(ctx, "job-2"), dao.ErrNotFound)
			assert.ErrorIs(t, srv.Save(ctx, nil), dao.ErrNilEntity)
		})
	}
}
