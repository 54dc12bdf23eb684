package infrastructure

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// SendThrottle limits outgoing messages per chat with a token bucket, so a
// burst of updates from one chat does not hit Telegram's flood limits.
type SendThrottle struct {
	mu        sync.Mutex
	limiters  map[int64]*chatLimiter
	rate      rate.Limit
	burst     int
	idleAfter time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type chatLimiter struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// NewSendThrottle creates a throttle allowing perSecond messages per chat
// with the given burst capacity.
func NewSendThrottle(perSecond float64, burst int) *SendThrottle {
	return &SendThrottle{
		limiters:  make(map[int64]*chatLimiter),
		rate:      rate.Limit(perSecond),
		burst:     burst,
		idleAfter: 10 * time.Minute,
		now:       time.Now,
	}
}

// Wait blocks until a message to chatID may be sent or ctx is done.
func (t *SendThrottle) Wait(ctx context.Context, chatID int64) error {
	return t.limiter(chatID).Wait(ctx)
}

func (t *SendThrottle) limiter(chatID int64) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if now.Sub(t.lastSweep) > t.idleAfter {
		t.sweep(now)
	}

	cl, ok := t.limiters[chatID]
	if !ok {
		cl = &chatLimiter{limiter: rate.NewLimiter(t.rate, t.burst)}
		t.limiters[chatID] = cl
	}
	cl.lastUsed = now
	return cl.limiter
}

// sweep drops limiters of chats that stayed idle. Callers hold t.mu.
func (t *SendThrottle) sweep(now time.Time) {
	for chatID, cl := range t.limiters {
		if now.Sub(cl.lastUsed) > t.idleAfter {
			delete(t.limiters, chatID)
		}
	}
	t.lastSweep = now
}

// ActiveChats returns how many chats currently have a limiter.
func (t *SendThrottle) ActiveChats() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.limiters)
}
