// Package cache provides the request-keyed read-through cache the service
// layers read course and quiz data through. Reads with equal keys share one
// in-flight fetch and one cached value; mutations invalidate their declared
// keys before reporting success, so no reader observes stale data across the
// invalidation boundary.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// ErrKeyIncomplete is returned when a key component is absent. Reads with
// incomplete keys never fire their fetcher, which prevents spurious requests
// built from missing identifiers.
var ErrKeyIncomplete = errors.New("cache key has an empty component")

// Key is a structurally comparable tuple identifying one cached read.
type Key struct {
	parts []string
}

// NewKey builds a key from its components, e.g. NewKey("course", courseID).
func NewKey(parts ...string) Key {
	return Key{parts: parts}
}

// NewEntityKey builds the common "<kind>:<id>" key for a numeric identifier.
// A zero identifier yields an incomplete key.
func NewEntityKey(kind string, id uint) Key {
	if id == 0 {
		return Key{parts: []string{kind, ""}}
	}
	return Key{parts: []string{kind, fmt.Sprintf("%d", id)}}
}

// Complete reports whether every component is present.
func (k Key) Complete() bool {
	if len(k.parts) == 0 {
		return false
	}
	for _, part := range k.parts {
		if strings.TrimSpace(part) == "" {
			return false
		}
	}
	return true
}

// String renders the canonical form used for storage and de-duplication.
func (k Key) String() string {
	return strings.Join(k.parts, ":")
}

// Fetcher produces the value for a cache miss.
type Fetcher func(ctx context.Context) (interface{}, error)

// Store is a redis-backed read-through cache with per-key request
// de-duplication.
type Store struct {
	client *redis.Client
	group  singleflight.Group
	logger zerolog.Logger
}

// New builds a cache store. A nil client degrades to fetch-only behaviour
// with de-duplication still in effect.
func New(client *redis.Client, logger zerolog.Logger) *Store {
	return &Store{
		client: client,
		logger: logger.With().Str("component", "cache").Logger(),
	}
}

// Get resolves a read through the cache. Concurrent callers with equal keys
// share a single fetch; the shared result is unmarshalled into dest for each
// caller. Cache backend failures degrade to a direct fetch rather than
// failing the read.
func (s *Store) Get(ctx context.Context, key Key, ttl time.Duration, dest interface{}, fetch Fetcher) error {
	if !key.Complete() {
		return ErrKeyIncomplete
	}

	name := key.String()

	if s.client != nil {
		cached, err := s.client.Get(ctx, name).Bytes()
		if err == nil {
			if unmarshalErr := json.Unmarshal(cached, dest); unmarshalErr == nil {
				return nil
			}
			s.logger.Warn().Str("key", name).Msg("discarding undecodable cache entry")
			_ = s.client.Del(ctx, name).Err()
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Str("key", name).Msg("cache read failed")
		}
	}

	payload, err, _ := s.group.Do(name, func() (interface{}, error) {
		value, fetchErr := fetch(ctx)
		if fetchErr != nil {
			return nil, fetchErr
		}

		encoded, marshalErr := json.Marshal(value)
		if marshalErr != nil {
			return nil, marshalErr
		}

		if s.client != nil {
			if setErr := s.client.Set(ctx, name, encoded, ttl).Err(); setErr != nil {
				s.logger.Warn().Err(setErr).Str("key", name).Msg("cache write failed")
			}
		}

		return encoded, nil
	})
	if err != nil {
		return err
	}

	return json.Unmarshal(payload.([]byte), dest)
}

// Invalidate drops the cached values for the given keys. Incomplete keys are
// skipped: they can never have been populated.
func (s *Store) Invalidate(ctx context.Context, keys ...Key) error {
	if s.client == nil {
		return nil
	}

	names := make([]string, 0, len(keys))
	for _, key := range keys {
		if key.Complete() {
			names = append(names, key.String())
			s.group.Forget(key.String())
		}
	}
	if len(names) == 0 {
		return nil
	}

	if err := s.client.Del(ctx, names...).Err(); err != nil {
		return fmt.Errorf("cache invalidation failed: %w", err)
	}
	return nil
}

// Mutate runs a write operation and, on success, applies its declared
// invalidations before returning. A read issued after Mutate returns nil is
// guaranteed to observe fresh data for every invalidated key.
func (s *Store) Mutate(ctx context.Context, op func(ctx context.Context) error, invalidates ...Key) error {
	if err := op(ctx); err != nil {
		return err
	}

	if err := s.Invalidate(ctx, invalidates...); err != nil {
		s.logger.Error().Err(err).Msg("post-mutation invalidation failed")
		return err
	}
	return nil
}
