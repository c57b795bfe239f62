package log

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerateRequestID(t *testing.T) {
	id := GenerateRequestID()
	assert.Len(t, id, 10)

	for _, c := range id {
		assert.True(t, (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z'),
			"request id must be lowercase base36, got %q", id)
	}

	// Not a strict uniqueness proof, but collisions here would be alarming.
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		seen[GenerateRequestID()] = true
	}
	assert.Greater(t, len(seen), 95)
}

func TestRequestContextRoundTrip(t *testing.T) {
	ctx := WithRequestContext(context.Background(), "abc123defg")

	reqCtx := GetRequestContext(ctx)
	assert.Equal(t, "abc123defg", reqCtx.RequestID)
	assert.False(t, reqCtx.StartTime.IsZero())

	assert.Equal(t, "abc123defg", GetRequestID(ctx))
}

func TestGetRequestContextDefaults(t *testing.T) {
	reqCtx := GetRequestContext(context.Background())
	assert.Equal(t, "unknown", reqCtx.RequestID)

	reqCtx = GetRequestContext(nil)
	assert.Equal(t, "unknown", reqCtx.RequestID)
}

func TestGetElapsedTime(t *testing.T) {
	assert.Equal(t, int64(0), GetElapsedTime(context.Background()))

	ctx := WithRequestContext(context.Background(), GenerateRequestID())
	time.Sleep(5 * time.Millisecond)
	assert.GreaterOrEqual(t, GetElapsedTime(ctx), int64(5))
}
