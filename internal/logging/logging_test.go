package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContextAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, false)

	ctx := WithJob(context.Background(), "j1", "echo")
	logger.InfoContext(ctx, "started", "status", "running")
	logger.DebugContext(ctx, "hidden")

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	require.Equal(t, "started", record["msg"])
	require.Equal(t, "j1", record["job_id"])
	require.Equal(t, "echo", record["spec_id"])
	require.Equal(t, "running", record["status"])
}

func TestContextAttrsDoNotLeak(t *testing.T) {
	base := ContextAttrs(context.Background(), slog.String("component", "scheduler"))
	a := WithJob(base, "a", "s")
	b := WithJob(base, "b", "s")

	attrsA := a.Value(attrsKey{}).([]slog.Attr)
	attrsB := b.Value(attrsKey{}).([]slog.Attr)
	require.Len(t, attrsA, 3)
	require.Len(t, attrsB, 3)
	require.Equal(t, "a", attrsA[1].Value.String())
	require.Equal(t, "b", attrsB[1].Value.String())
}
