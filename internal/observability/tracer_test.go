package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTracing_Disabled(t *testing.T) {
	tp, err := InitTracing(context.Background(), Config{ServiceName: "compass-engine"})
	require.NoError(t, err)

	assert.False(t, tp.IsEnabled())
	_, span := tp.Tracer("test").Start(context.Background(), "noop")
	span.End()
	assert.False(t, span.SpanContext().IsValid())
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestInitTracing_Enabled(t *testing.T) {
	tp, err := InitTracing(context.Background(), Config{
		ServiceName:    "compass-engine",
		ServiceVersion: "test",
		Environment:    "test",
		Enabled:        true,
		Endpoint:       "http://127.0.0.1:1",
	})
	require.NoError(t, err)
	assert.True(t, tp.IsEnabled())

	_, span := tp.Tracer("test").Start(context.Background(), "turn")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	// Export fails against the closed port; shutdown must still return.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = tp.Shutdown(ctx)
}

func TestTurnAttributes(t *testing.T) {
	attrs := TurnAttributes("id", "gemini_quest.json", "move", "sandy_shores", 3)
	require.Len(t, attrs, 5)
	assert.Equal(t, "game.intent", string(attrs[2].Key))
	assert.Equal(t, int64(3), attrs[4].Value.AsInt64())
}
