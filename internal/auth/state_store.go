package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// StateStore holds in-flight PKCE attempts keyed by their state token. Take
// removes the entry so a state can be redeemed at most once.
type StateStore interface {
	Save(ctx context.Context, state PKCEState) error
	Take(ctx context.Context, state string) (PKCEState, bool, error)
}

// MemoryStateStore keeps attempts in process memory.
type MemoryStateStore struct {
	mu      sync.Mutex
	entries map[string]PKCEState
	now     func() time.Time
}

// NewMemoryStateStore constructs an empty in-memory store.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{entries: make(map[string]PKCEState), now: time.Now}
}

func (s *MemoryStateStore) Save(ctx context.Context, state PKCEState) error {
	if state.State == "" {
		return errors.New("state token must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	s.entries[state.State] = state
	return nil
}

func (s *MemoryStateStore) Take(ctx context.Context, state string) (PKCEState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[state]
	if !ok {
		return PKCEState{}, false, nil
	}
	delete(s.entries, state)
	if entry.Expired(s.now()) {
		return PKCEState{}, false, nil
	}
	return entry, true, nil
}

// sweep drops abandoned attempts; callers hold mu.
func (s *MemoryStateStore) sweep() {
	now := s.now()
	for key, entry := range s.entries {
		if entry.Expired(now) {
			delete(s.entries, key)
		}
	}
}

// RedisStateStore keeps attempts in Redis with a TTL matching their expiry.
type RedisStateStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisStateStore constructs a Redis-backed store using keys under prefix.
func NewRedisStateStore(client *redis.Client, prefix string) *RedisStateStore {
	if prefix == "" {
		prefix = "extension"
	}
	return &RedisStateStore{client: client, prefix: prefix + ":oauth:state:", now: time.Now}
}

func (s *RedisStateStore) Save(ctx context.Context, state PKCEState) error {
	if state.State == "" {
		return errors.New("state token must not be empty")
	}
	ttl := state.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return errors.New("state already expired")
	}
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode pkce state: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+state.State, payload, ttl).Err(); err != nil {
		return fmt.Errorf("store pkce state: %w", err)
	}
	return nil
}

func (s *RedisStateStore) Take(ctx context.Context, state string) (PKCEState, bool, error) {
	if state == "" {
		return PKCEState{}, false, nil
	}
	raw, err := s.client.GetDel(ctx, s.prefix+state).Bytes()
	if errors.Is(err, redis.Nil) {
		return PKCEState{}, false, nil
	}
	if err != nil {
		return PKCEState{}, false, fmt.Errorf("load pkce state: %w", err)
	}
	var entry PKCEState
	if err := json.Unmarshal(raw, &entry); err != nil {
		return PKCEState{}, false, fmt.Errorf("decode pkce state: %w", err)
	}
	if entry.Expired(s.now()) {
		return PKCEState{}, false, nil
	}
	return entry, true, nil
}
