package executor

import "errors"

var (
	// ErrWorkDir reports a failure preparing the job working directory.
	ErrWorkDir = errors.New("executor: failed to prepare working directory")
	// ErrSpawn reports a failure starting the process.
	ErrSpawn = errors.New("executor: failed to start process")
)
