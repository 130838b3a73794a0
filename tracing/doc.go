// Package tracing wraps OpenTelemetry so that the scheduler and executor can
// open spans without importing the SDK directly. Until Init or
// InitWithExporter installs a provider every span is a no-op.
package tracing
