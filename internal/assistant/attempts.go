package assistant

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
)

// AttemptStore tracks how many automated responses were attempted per
// ticket. Counters only grow; Reset exists for cleanup once a ticket
// reaches a terminal state.
type AttemptStore interface {
	Get(ctx context.Context, ticketID string) (int, error)
	Increment(ctx context.Context, ticketID string) (int, error)
	Reset(ctx context.Context, ticketID string) error
}

// MemoryAttemptStore keeps attempt counters in process memory. This is
// the default backing store for a single-instance deployment.
type MemoryAttemptStore struct {
	mu       sync.Mutex
	attempts map[string]int
}

// NewMemoryAttemptStore creates an empty in-memory attempt store.
func NewMemoryAttemptStore() *MemoryAttemptStore {
	return &MemoryAttemptStore{attempts: make(map[string]int)}
}

func (s *MemoryAttemptStore) Get(_ context.Context, ticketID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts[ticketID], nil
}

func (s *MemoryAttemptStore) Increment(_ context.Context, ticketID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[ticketID]++
	return s.attempts[ticketID], nil
}

func (s *MemoryAttemptStore) Reset(_ context.Context, ticketID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attempts, ticketID)
	return nil
}

const redisAttemptPrefix = "aidesk:attempts:"

// RedisAttemptStore keeps attempt counters in Redis so they survive
// restarts and can be shared by future multi-instance deployments.
type RedisAttemptStore struct {
	client *redis.Client
}

// NewRedisAttemptStore creates an attempt store backed by the given
// Redis client.
func NewRedisAttemptStore(client *redis.Client) *RedisAttemptStore {
	return &RedisAttemptStore{client: client}
}

func (s *RedisAttemptStore) Get(ctx context.Context, ticketID string) (int, error) {
	n, err := s.client.Get(ctx, redisAttemptPrefix+ticketID).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *RedisAttemptStore) Increment(ctx context.Context, ticketID string) (int, error) {
	n, err := s.client.Incr(ctx, redisAttemptPrefix+ticketID).Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *RedisAttemptStore) Reset(ctx context.Context, ticketID string) error {
	return s.client.Del(ctx, redisAttemptPrefix+ticketID).Err()
}
