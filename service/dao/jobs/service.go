// Package jobs defines durable job storage. Implementations receive every
// status change and the finalized job; they never drive scheduling.
package jobs

import (
	"context"

	"github.com/viant/jobrunner/model/job"
	"github.com/viant/jobrunner/service/dao"
)

// Service stores job records.
type Service interface {
	dao.Service[string, job.Record]

	// OnTimestamp is called after every status append.
	OnTimestamp(ctx context.Context, aJob *job.Job, timestamp job.Timestamp) error

	// OnFinalized is called once the job settled.
	OnFinalized(ctx context.Context, aJob *job.Job) error
}
