package distlock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotAcquired means another holder owns the lock.
	ErrNotAcquired = errors.New("lock not acquired")
	// ErrNotHeld means the lock expired or was taken over before release.
	ErrNotHeld = errors.New("lock not held")
)

// releaseScript deletes the key only when this holder still owns it, so a
// slow holder never releases a successor's lock.
var releaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

var extendScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("PEXPIRE", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// Manager hands out TTL-bound mutual-exclusion locks backed by Redis SET NX.
// One Manager is shared by all schedulers of one process.
type Manager struct {
	client redis.UniversalClient
}

func NewManager(client redis.UniversalClient) *Manager {
	return &Manager{client: client}
}

// Lock is one acquired lease. The value is a random token identifying this
// holder; release and extend are conditional on it.
type Lock struct {
	client redis.UniversalClient
	key    string
	value  string
	ttl    time.Duration
}

// Acquire takes the lock or returns ErrNotAcquired without waiting.
func (m *Manager) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lock, error) {
	value, err := newHolderToken()
	if err != nil {
		return nil, err
	}

	ok, err := m.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("setnx %s: %w", key, err)
	}
	if !ok {
		return nil, ErrNotAcquired
	}

	return &Lock{client: m.client, key: key, value: value, ttl: ttl}, nil
}

// Release frees the lock. Returns ErrNotHeld when the lease already expired.
func (l *Lock) Release(ctx context.Context) error {
	result, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.value).Int()
	if err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	if result == 0 {
		return ErrNotHeld
	}

	return nil
}

// Extend pushes the lease out by another interval.
func (l *Lock) Extend(ctx context.Context, extension time.Duration) error {
	result, err := extendScript.Run(ctx, l.client, []string{l.key}, l.value, extension.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("extend %s: %w", l.key, err)
	}
	if result == 0 {
		return ErrNotHeld
	}

	l.ttl = extension
	return nil
}

func newHolderToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
