package tracing

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopSpan(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "noop", "PRODUCER")
	require.NotNil(t, span)
	span.WithAttributes(map[string]string{"job_id": "1"}).AddEvent("running", nil)
	EndSpan(span, nil)
	assert.NotNil(t, SpanFromContext(ctx))
	EndSpan(nil, nil)
}

func TestTracingFile(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "span_test.txt")

	require.NoError(t, Init("jobrunner", "0.0.1", fname))

	_, span := StartSpan(context.Background(), "test", "INTERNAL")
	span.WithAttributes(map[string]string{"k": "v"})
	EndSpan(span, nil)

	data, err := os.ReadFile(fname)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}
