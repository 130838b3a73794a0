package memory

import (
	"context"

	"github.com/viant/jobrunner/model/job"
	"github.com/viant/jobrunner/service/dao"
	"github.com/viant/jobrunner/service/dao/criteria"
	"github.com/viant/jobrunner/service/dao/jobs"
	"github.com/viant/jobrunner/service/dao/store"
)

// Service keeps job records in memory. Records are snapshots, so callers
// never share state with live jobs.
type Service struct {
	*store.MemoryStore[string, job.Record]
}

var _ jobs.Service = (*Service)(nil)

func (s *Service) OnTimestamp(ctx context.Context, aJob *job.Job, _ job.Timestamp) error {
	return s.Save(ctx, aJob.Record())
}

func (s *Service) OnFinalized(ctx context.Context, aJob *job.Job) error {
	return s.Save(ctx, aJob.Record())
}

// New creates an in-memory job store.
func New() *Service {
	return &Service{
		MemoryStore: store.NewMemoryStore[string, job.Record](
			func(r *job.Record) string { return r.ID },
			func(r *job.Record, parameters []*dao.Parameter) bool { return criteria.MatchRecord(r, parameters) },
		),
	}
}
