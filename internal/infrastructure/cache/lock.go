package cache

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrLockNotHeld is returned by an unlock whose lease already expired or
// was taken over
var ErrLockNotHeld = errors.New("cache: lock not held")

// UnlockFunc releases a lock obtained from a Locker
type UnlockFunc func(ctx context.Context) error

// LocalLocker is a process-local lease lock
type LocalLocker struct {
	mu     sync.Mutex
	leases map[string]lease
	now    func() time.Time
}

type lease struct {
	token     string
	expiresAt time.Time
}

// NewLocalLocker creates a LocalLocker
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{leases: make(map[string]lease), now: time.Now}
}

// TryLock takes name for ttl. ok is false when another holder's lease is live.
func (l *LocalLocker) TryLock(_ context.Context, name string, ttl time.Duration) (UnlockFunc, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if cur, held := l.leases[name]; held && now.Before(cur.expiresAt) {
		return nil, false, nil
	}
	token := newToken()
	l.leases[name] = lease{token: token, expiresAt: now.Add(ttl)}

	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if cur, held := l.leases[name]; !held || cur.token != token {
			return ErrLockNotHeld
		}
		delete(l.leases, name)
		return nil
	}, true, nil
}

// RedisLocker is a lease lock shared through Redis
type RedisLocker struct {
	client    redis.UniversalClient
	keyPrefix string
}

// unlock only deletes the key while it still holds our token
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// NewRedisLocker creates a RedisLocker
func NewRedisLocker(client redis.UniversalClient, keyPrefix string) *RedisLocker {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &RedisLocker{client: client, keyPrefix: keyPrefix + "lock:"}
}

// TryLock takes name for ttl with SET NX PX
func (l *RedisLocker) TryLock(ctx context.Context, name string, ttl time.Duration) (UnlockFunc, bool, error) {
	key := l.keyPrefix + name
	token := newToken()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lock %s: %w", name, err)
	}
	if !ok {
		return nil, false, nil
	}

	return func(ctx context.Context) error {
		n, err := unlockScript.Run(ctx, l.client, []string{key}, token).Int()
		if err != nil {
			return fmt.Errorf("failed to release lock %s: %w", name, err)
		}
		if n == 0 {
			return ErrLockNotHeld
		}
		return nil
	}, true, nil
}

func newToken() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
