// Package executor runs admitted jobs as operating system processes. For
// every job it prepares a working directory, expands the spec templates,
// spawns the process, streams stdout and stderr to capture files and
// observers, enforces abort and timeout with a graceful then forced
// termination, and finally collects the declared outputs.
package executor
