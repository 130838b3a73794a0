package criteria

import (
	"github.com/viant/jobrunner/model/job"
	"github.com/viant/jobrunner/service/dao"
)

// Filter reports whether value satisfies every parameter named name.
// Parameters with other names are ignored.
func Filter(name, value string, parameters []*dao.Parameter) bool {
	for _, parameter := range parameters {
		if parameter == nil || parameter.Name != name {
			continue
		}
		matched := false
		for _, candidate := range parameter.Values() {
			if candidate == value {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// MatchRecord applies the status, owner and spec parameters to record.
func MatchRecord(record *job.Record, parameters []*dao.Parameter) bool {
	return Filter(dao.ParameterStatus, string(record.Status()), parameters) &&
		Filter(dao.ParameterOwner, record.Owner, parameters) &&
		Filter(dao.ParameterSpec, record.SpecID, parameters)
}
