package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationStore remembers logged-out session ids until they would have expired.
type RevocationStore interface {
	Revoke(ctx context.Context, sessionID string, until time.Time) error
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}

// MemoryRevocationStore tracks revoked sessions in process memory.
type MemoryRevocationStore struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

// NewMemoryRevocationStore constructs an empty store.
func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{revoked: make(map[string]time.Time), now: time.Now}
}

func (s *MemoryRevocationStore) Revoke(ctx context.Context, sessionID string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, expiry := range s.revoked {
		if !now.Before(expiry) {
			delete(s.revoked, id)
		}
	}
	s.revoked[sessionID] = until
	return nil
}

func (s *MemoryRevocationStore) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.revoked[sessionID]
	return ok, nil
}

// RedisRevocationStore keeps revoked session ids in Redis with a TTL.
type RedisRevocationStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisRevocationStore constructs a Redis-backed revocation list.
func NewRedisRevocationStore(client *redis.Client, prefix string) *RedisRevocationStore {
	if prefix == "" {
		prefix = "extension"
	}
	return &RedisRevocationStore{client: client, prefix: prefix + ":session:revoked:", now: time.Now}
}

func (s *RedisRevocationStore) Revoke(ctx context.Context, sessionID string, until time.Time) error {
	ttl := until.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, s.prefix+sessionID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func (s *RedisRevocationStore) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	err := s.client.Get(ctx, s.prefix+sessionID).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check session revocation: %w", err)
	}
	return true, nil
}
