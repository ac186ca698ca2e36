// Package otp keeps one-time passwords for password resets in an expiring cache.
package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix      = "otp:"
	attemptsPrefix = "otp:attempts:"

	// MaxAttempts is how many verifications a code survives.
	MaxAttempts = 5
)

// ErrInvalid is returned for a wrong, expired or already used code.
var ErrInvalid = errors.New("invalid or expired code")

// Store is a keyed, expiring code cache. Verify consumes the code on success.
type Store interface {
	Save(ctx context.Context, email, code string, ttl time.Duration) error
	Verify(ctx context.Context, email, code string) error
}

// Generate returns a random six-digit code.
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func sameCode(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// RedisStore keeps codes under "otp:<email>" with SET EX.
type RedisStore struct {
	Client redis.Cmdable
}

func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{Client: client}
}

func (s *RedisStore) Save(ctx context.Context, email, code string, ttl time.Duration) error {
	key := normalize(email)
	if err := s.Client.Set(ctx, keyPrefix+key, code, ttl).Err(); err != nil {
		return err
	}
	return s.Client.Set(ctx, attemptsPrefix+key, 0, ttl).Err()
}

// Verify counts the attempt first; after MaxAttempts wrong guesses the code is dropped.
// A matching code is consumed with GETDEL so concurrent verifies cannot both succeed.
func (s *RedisStore) Verify(ctx context.Context, email, code string) error {
	key := keyPrefix + normalize(email)
	attemptsKey := attemptsPrefix + normalize(email)

	n, err := s.Client.Incr(ctx, attemptsKey).Result()
	if err != nil {
		return err
	}
	if n > MaxAttempts {
		return s.drop(ctx, key, attemptsKey)
	}

	stored, err := s.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return s.drop(ctx, key, attemptsKey)
	}
	if err != nil {
		return err
	}
	if !sameCode(stored, code) {
		return ErrInvalid
	}

	consumed, err := s.Client.GetDel(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return ErrInvalid
	}
	if err != nil {
		return err
	}
	if !sameCode(consumed, code) {
		return ErrInvalid
	}
	return s.Client.Del(ctx, attemptsKey).Err()
}

func (s *RedisStore) drop(ctx context.Context, keys ...string) error {
	if err := s.Client.Del(ctx, keys...).Err(); err != nil {
		return err
	}
	return ErrInvalid
}

type entry struct {
	code      string
	expiresAt time.Time
	attempts  int
}

// MemoryStore is an in-process TTL map, used when Redis is not configured.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]entry), now: time.Now}
}

func (s *MemoryStore) Save(_ context.Context, email, code string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked()
	s.entries[normalize(email)] = entry{code: code, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Verify(_ context.Context, email, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked()

	key := normalize(email)
	e, ok := s.entries[key]
	if !ok {
		return ErrInvalid
	}
	e.attempts++
	if sameCode(e.code, code) {
		delete(s.entries, key)
		return nil
	}
	if e.attempts >= MaxAttempts {
		delete(s.entries, key)
	} else {
		s.entries[key] = e
	}
	return ErrInvalid
}

func (s *MemoryStore) evictLocked() {
	now := s.now()
	for k, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, k)
		}
	}
}

// Len reports how many unexpired codes are held.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked()
	return len(s.entries)
}
