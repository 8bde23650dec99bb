package feedcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is the materialized-view cache for feed lanes: JSON entry lists keyed
// by lane, with a TTL. An empty list is never stored; setting one deletes the
// key so "empty" always reads as a miss and forces a rebuild.
type Store struct {
	client  *redis.Client
	timeout time.Duration
}

// NewStore wraps an existing Redis client. timeout bounds every call.
func NewStore(client *redis.Client, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Store{client: client, timeout: timeout}
}

// Get returns the cached entries for key. The second result reports a hit;
// a missing or unreadable value is a miss. Entries come back as fresh values,
// never the ones that were stored.
func (s *Store) Get(ctx context.Context, key string) ([]Entry, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get %s: %w", key, err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		// Corrupt value, treat as a miss and let the caller rebuild over it.
		return nil, false, nil
	}
	if len(entries) == 0 {
		return nil, false, nil
	}
	return entries, true, nil
}

// Set stores entries under key with the given TTL. An empty slice deletes the
// key instead.
func (s *Store) Set(ctx context.Context, key string, entries []Entry, ttl time.Duration) error {
	if len(entries) == 0 {
		return s.Delete(ctx, key)
	}
	payload, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("cache marshal %s: %w", key, err)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("cache delete %s: %w", key, err)
	}
	return nil
}
