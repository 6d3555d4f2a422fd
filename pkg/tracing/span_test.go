package tracing

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpanTree(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "batch", "")
	require.NotEmpty(t, root.TraceID)
	assert.Same(t, root, SpanFromContext(ctx))

	_, child := StartChildSpan(ctx, "query")
	child.SetAttr("query_index", 3)
	child.End()
	root.End()

	require.Len(t, root.Children, 1)
	assert.Equal(t, root.TraceID, child.TraceID)
	assert.Equal(t, 3, child.Attrs["query_index"])
	assert.GreaterOrEqual(t, root.Duration, child.Duration)

	var buf bytes.Buffer
	root.Log(slog.New(slog.NewTextHandler(&buf, nil)))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "span=batch")
	assert.Contains(t, lines[1], "span=query")
	assert.Contains(t, lines[1], "depth=1")
}

func TestStartChildSpanWithoutParent(t *testing.T) {
	_, span := StartChildSpan(context.Background(), "orphan")
	assert.NotEmpty(t, span.TraceID)
}

func TestLogDuration(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	var buf bytes.Buffer
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))

	stop := LogDuration("load documents")
	stop()

	assert.Contains(t, buf.String(), `span="load documents"`)
}
