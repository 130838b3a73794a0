// Package scheduler admits validated job requests, enforces the running job
// ceiling and hands jobs to the executor in FIFO order. Every submission is
// answered with a promise that settles once the job is terminal.
package scheduler
