package fs

import (
	"time"

	"github.com/viant/jobrunner/model/job"
)

func submittedAt(record *job.Record) time.Time {
	if len(record.Timestamps) == 0 {
		return time.Time{}
	}
	return record.Timestamps[0].Time
}
