package infrastructure

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendThrottleBurstPerChat(t *testing.T) {
	th := NewSendThrottle(0.001, 2)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	require.NoError(t, th.Wait(ctx, 1))
	require.NoError(t, th.Wait(ctx, 1))
	assert.Error(t, th.Wait(ctx, 1))

	// Other chats have their own bucket.
	assert.NoError(t, th.Wait(ctx, 2))
	assert.Equal(t, 2, th.ActiveChats())
}

func TestSendThrottleWaitHonoursContext(t *testing.T) {
	th := NewSendThrottle(0.001, 1)
	require.NoError(t, th.Wait(context.Background(), 7))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, th.Wait(ctx, 7))
}

func TestSendThrottleSweepsIdleChats(t *testing.T) {
	th := NewSendThrottle(1, 1)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	th.now = func() time.Time { return now }

	ctx := context.Background()
	require.NoError(t, th.Wait(ctx, 1))
	require.NoError(t, th.Wait(ctx, 2))
	require.Equal(t, 2, th.ActiveChats())

	now = now.Add(11 * time.Minute)
	require.NoError(t, th.Wait(ctx, 3))
	assert.Equal(t, 1, th.ActiveChats())
}
