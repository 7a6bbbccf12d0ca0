package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrTurnInFlight is returned when a conversation already has a turn
// running. Callers drop the new input rather than queueing it.
var ErrTurnInFlight = fmt.Errorf("orchestrator: turn already in flight")

// Gate serializes turns per conversation. At most one turn mutates state
// for a conversation at a time.
type Gate interface {
	Acquire(ctx context.Context, conversationID string) (release func(), err error)
}

// gateTTL bounds how long a crashed turn can hold its lock.
const gateTTL = 2 * time.Minute

// RedisGate implements Gate over a shared Redis, which also covers
// multi-process deployments.
type RedisGate struct {
	client *redis.Client
}

func NewRedisGate(client *redis.Client) *RedisGate {
	return &RedisGate{client: client}
}

func (g *RedisGate) Acquire(ctx context.Context, conversationID string) (func(), error) {
	key := "turn_gate:" + conversationID
	ok, err := g.client.SetNX(ctx, key, "1", gateTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("gate acquire %s: %w", conversationID, err)
	}
	if !ok {
		return nil, ErrTurnInFlight
	}
	return func() {
		g.client.Del(context.Background(), key)
	}, nil
}

// LocalGate implements Gate in process memory for single-node runs and
// tests.
type LocalGate struct {
	mu    sync.Mutex
	taken map[string]bool
}

func NewLocalGate() *LocalGate {
	return &LocalGate{taken: make(map[string]bool)}
}

func (g *LocalGate) Acquire(_ context.Context, conversationID string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.taken[conversationID] {
		return nil, ErrTurnInFlight
	}
	g.taken[conversationID] = true
	return func() {
		g.mu.Lock()
		delete(g.taken, conversationID)
		g.mu.Unlock()
	}, nil
}
