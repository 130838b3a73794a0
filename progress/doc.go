// Package progress aggregates job counters for a scheduler: how many jobs were
// admitted, are waiting or running, and how many settled in each terminal status.
package progress
