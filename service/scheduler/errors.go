package scheduler

import "errors"

// ErrShutdown is returned by Submit once Shutdown was called.
var ErrShutdown = errors.New("scheduler: shut down")
